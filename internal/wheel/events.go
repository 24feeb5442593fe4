package wheel

// Event names pushed to subscribed clients. Clients that miss any of these
// resync with a full state snapshot; events carry enough to avoid the
// round-trip in the common case.
const (
	EventSessionCreated   = "session_created"
	EventPlayerJoined     = "player_joined"
	EventCountdownStarted = "countdown_started"
	EventDrawStarted      = "draw_started"
	EventWinnerAnnounced  = "winner_announced"
	EventPing             = "ping"
)

type StreamEvent struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	ServerTS  int64  `json:"server_ts"`
	Data      any    `json:"data"`
}
