package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"testing"
)

const testBotToken = "12345:TEST-TOKEN"

func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(parts, "\n")))

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestVerifyInitDataAcceptsSignedPayload(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"auth_date": "1700000000",
		"query_id":  "AAE1",
		"user":      `{"id":777,"username":"spinner","first_name":"Spin","is_premium":true}`,
	})
	user, err := VerifyInitData(initData, testBotToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != 777 || user.Username != "spinner" || !user.IsPremium {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestVerifyInitDataRejectsTampering(t *testing.T) {
	initData := signInitData(t, testBotToken, map[string]string{
		"auth_date": "1700000000",
		"user":      `{"id":777,"username":"spinner"}`,
	})
	tampered := strings.Replace(initData, "777", "778", 1)
	if _, err := VerifyInitData(tampered, testBotToken); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("tampered payload: err = %v, want ErrInvalidInitData", err)
	}
}

func TestVerifyInitDataRejectsWrongToken(t *testing.T) {
	initData := signInitData(t, "99999:OTHER-TOKEN", map[string]string{
		"auth_date": "1700000000",
		"user":      `{"id":777,"username":"spinner"}`,
	})
	if _, err := VerifyInitData(initData, testBotToken); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("wrong token: err = %v, want ErrInvalidInitData", err)
	}
}

func TestVerifyInitDataRejectsMissingPieces(t *testing.T) {
	if _, err := VerifyInitData("", testBotToken); !errors.Is(err, ErrMissingInitData) {
		t.Fatalf("empty: err = %v, want ErrMissingInitData", err)
	}
	if _, err := VerifyInitData("auth_date=1700000000", testBotToken); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("no hash: err = %v, want ErrInvalidInitData", err)
	}
	noUser := signInitData(t, testBotToken, map[string]string{"auth_date": "1700000000"})
	if _, err := VerifyInitData(noUser, testBotToken); !errors.Is(err, ErrInvalidInitData) {
		t.Fatalf("no user: err = %v, want ErrInvalidInitData", err)
	}
}

func TestParseInitDataUnverified(t *testing.T) {
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Dev"}`)
	user, err := ParseInitDataUnverified(values.Encode())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if user.ID != 42 || user.FirstName != "Dev" {
		t.Fatalf("unexpected user: %+v", user)
	}
}
