package wheel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pvp-wheel/internal/store"
	"pvp-wheel/internal/telegram"
)

func StateHandler(coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := coord.State(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, snap)
	}
}

func JoinHandler(coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricJoinTotal.Add(1)
		player := telegram.PlayerFrom(r.Context())
		if player == nil {
			metricJoinErrors.Add(1)
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricJoinErrors.Add(1)
			writeErr(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := coord.Join(r.Context(), player, req)
		if err != nil {
			metricJoinErrors.Add(1)
			status, code := mapJoinErr(err)
			writeErr(w, status, code)
			return
		}
		writeJSON(w, res)
	}
}

func mapJoinErr(err error) (int, string) {
	switch {
	case errors.Is(err, ErrStakeRequired):
		return http.StatusBadRequest, "stake_required"
	case errors.Is(err, store.ErrInsufficientGifts):
		return http.StatusBadRequest, "insufficient_gifts"
	case errors.Is(err, store.ErrDuplicateParticipant):
		return http.StatusConflict, "duplicate_participant"
	case errors.Is(err, store.ErrSessionNotJoinable):
		return http.StatusConflict, "session_not_joinable"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// LogsHandler serves the activity feed for the current round, or for an
// explicit session_id when replaying a past one.
func LogsHandler(coord *Coordinator, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			sessionID = coord.CurrentSessionID()
		}
		if sessionID == "" {
			writeJSON(w, []store.SessionLog{})
			return
		}
		logs, err := st.ListLogs(r.Context(), sessionID, queryLimit(r, 20))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, logs)
	}
}

func HistoryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := st.ListMatchHistory(r.Context(), queryLimit(r, 50))
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, history)
	}
}

func GiftsHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gifts, err := st.ListGifts(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, gifts)
	}
}

func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := telegram.PlayerFrom(r.Context())
		if player == nil {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeJSON(w, player)
	}
}

func InventoryHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := telegram.PlayerFrom(r.Context())
		if player == nil {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		items, err := st.ListPlayerInventory(r.Context(), player.ID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, items)
	}
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: code})
}
