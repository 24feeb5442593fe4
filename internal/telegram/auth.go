package telegram

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"pvp-wheel/internal/store"
)

var (
	ErrMissingInitData = errors.New("missing_init_data")
	ErrInvalidInitData = errors.New("invalid_init_data")
)

type ctxKey int

const playerKey ctxKey = 0

// User is the subset of the Mini-App user payload the server cares about.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
	IsPremium bool   `json:"is_premium"`
}

// VerifyInitData checks the Mini-App initData signature and returns the
// embedded user. The check string is every field except hash, sorted by key,
// joined with newlines; the secret key is HMAC-SHA256 of the bot token keyed
// with the literal "WebAppData".
func VerifyInitData(initData, botToken string) (*User, error) {
	if initData == "" {
		return nil, ErrMissingInitData
	}
	params, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	hash := params.Get("hash")
	if hash == "" {
		return nil, ErrInvalidInitData
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params.Get(k))
	}
	checkString := strings.Join(parts, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, ErrInvalidInitData
	}

	return parseUser(params.Get("user"))
}

// ParseInitDataUnverified extracts the user without checking the signature.
// Only for local development with no bot token configured.
func ParseInitDataUnverified(initData string) (*User, error) {
	if initData == "" {
		return nil, ErrMissingInitData
	}
	params, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	return parseUser(params.Get("user"))
}

func parseUser(raw string) (*User, error) {
	if raw == "" {
		return nil, ErrInvalidInitData
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, ErrInvalidInitData
	}
	if u.ID == 0 {
		return nil, ErrInvalidInitData
	}
	return &u, nil
}

// Auth validates initData from the X-Telegram-Init-Data header (falling back
// to the tg_init_data query param), resolves the player row, and stores it
// in the request context.
func Auth(st *store.Store, botToken string, allowUnverified bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			initData := r.Header.Get("X-Telegram-Init-Data")
			if initData == "" {
				initData = r.URL.Query().Get("tg_init_data")
			}
			var (
				user *User
				err  error
			)
			if allowUnverified && botToken == "" {
				user, err = ParseInitDataUnverified(initData)
			} else {
				user, err = VerifyInitData(initData, botToken)
			}
			if err != nil {
				writeAuthErr(w, err)
				return
			}
			player, err := st.GetOrCreatePlayer(r.Context(), store.TelegramProfile{
				TelegramID: user.ID,
				Username:   user.Username,
				FirstName:  user.FirstName,
				LastName:   user.LastName,
				PhotoURL:   user.PhotoURL,
				IsPremium:  user.IsPremium,
			})
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal_error"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), player)))
		})
	}
}

func writeAuthErr(w http.ResponseWriter, err error) {
	code := "invalid_init_data"
	if errors.Is(err, ErrMissingInitData) {
		code = "missing_init_data"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}

func WithPlayer(ctx context.Context, p *store.Player) context.Context {
	return context.WithValue(ctx, playerKey, p)
}

// PlayerFrom returns the authenticated player, or nil outside the auth
// middleware.
func PlayerFrom(ctx context.Context) *store.Player {
	p, _ := ctx.Value(playerKey).(*store.Player)
	return p
}
