package store

import "time"

// Session statuses. At most one session may be in an open status
// (waiting or countdown) at a time; duplicates are reconciled, not rejected.
const (
	StatusWaiting   = "waiting"
	StatusCountdown = "countdown"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Log categories for the in-session activity feed.
const (
	LogJoin      = "join"
	LogDrawStart = "draw_start"
	LogWinner    = "winner"
	LogInfo      = "info"
)

type Player struct {
	ID            string    `json:"id"`
	TelegramID    int64     `json:"telegram_id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PhotoURL      string    `json:"photo_url"`
	IsPremium     bool      `json:"is_premium"`
	GamesPlayed   int       `json:"games_played"`
	GamesWon      int       `json:"games_won"`
	TotalWonMilli int64     `json:"total_won_milli"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is one wheel round. All value amounts are int64 milliTON.
type Session struct {
	ID                  string     `json:"id"`
	RollNumber          int64      `json:"roll_number"`
	Status              string     `json:"status"`
	SeedCommitment      string     `json:"seed_commitment"`
	SeedReveal          string     `json:"seed_reveal,omitempty"`
	CountdownEndsAt     *time.Time `json:"countdown_ends_at,omitempty"`
	WinnerParticipantID string     `json:"winner_participant_id,omitempty"`
	WinnerChance        float64    `json:"winner_chance,omitempty"`
	TotalPotMilli       int64      `json:"total_pot_milli,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// Open reports whether the session still accepts joins.
func (s *Session) Open() bool {
	return s.Status == StatusWaiting || s.Status == StatusCountdown
}

// CountdownRemaining derives the remaining countdown from the absolute
// deadline, so every reader computes the same value regardless of when it
// last polled. Returns false when no countdown has been started.
func (s *Session) CountdownRemaining(now time.Time) (time.Duration, bool) {
	if s.CountdownEndsAt == nil {
		return 0, false
	}
	left := s.CountdownEndsAt.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

type Participant struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	PlayerID       string    `json:"player_id"`
	PlayerName     string    `json:"player_name"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	BalanceMilli   int64     `json:"balance_milli"`
	GiftValueMilli int64     `json:"gift_value_milli"`
	Color          string    `json:"color"`
	PositionIndex  int       `json:"position_index"`
	Gifts          []string  `json:"gifts"`
	CreatedAt      time.Time `json:"created_at"`
}

// StakeMilli is the participant's full contribution to the pot.
func (p *Participant) StakeMilli() int64 {
	return p.BalanceMilli + p.GiftValueMilli
}

type Gift struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Emoji          string `json:"emoji"`
	BaseValueMilli int64  `json:"base_value_milli"`
	Rarity         string `json:"rarity"`
	IsActive       bool   `json:"is_active"`
}

type GiftSelection struct {
	GiftID   string `json:"gift_id"`
	Quantity int    `json:"quantity"`
}

type InventoryItem struct {
	GiftID         string `json:"gift_id"`
	Name           string `json:"name"`
	Emoji          string `json:"emoji"`
	BaseValueMilli int64  `json:"base_value_milli"`
	Quantity       int    `json:"quantity"`
}

type SessionLog struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id,omitempty"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type MatchHistoryEntry struct {
	SessionID     string        `json:"session_id"`
	RollNumber    int64         `json:"roll_number"`
	WinnerName    string        `json:"winner_name"`
	WinnerChance  float64       `json:"winner_chance"`
	TotalPotMilli int64         `json:"total_pot_milli"`
	CompletedAt   time.Time     `json:"completed_at"`
	Participants  []Participant `json:"participants"`
}
