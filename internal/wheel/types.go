package wheel

import "pvp-wheel/internal/store"

type JoinRequest struct {
	BalanceMilli int64                 `json:"balance_milli"`
	Gifts        []store.GiftSelection `json:"gifts"`
}

type JoinResponse struct {
	Participant      store.Participant `json:"participant"`
	SessionID        string            `json:"session_id"`
	ParticipantCount int               `json:"participant_count"`
	PotMilli         int64             `json:"pot_milli"`
}

// StateSnapshot is the resync payload: everything a client needs to render
// the wheel from scratch.
type StateSnapshot struct {
	Session            store.Session       `json:"session"`
	Participants       []store.Participant `json:"participants"`
	PotMilli           int64               `json:"pot_milli"`
	CountdownRemaining *int64              `json:"countdown_remaining_seconds,omitempty"`
	ServerTS           int64               `json:"server_ts"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
