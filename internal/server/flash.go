package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

const flashCookie = "dse_flash"

// flashes carries one-shot user messages across a redirect in a cookie
// signed with the server secret.
type flashes struct {
	key []byte
}

func newFlashes(secret string) (*flashes, error) {
	if secret == "" {
		return nil, eris.New("server: secret key is required for flash messages")
	}
	return &flashes{key: []byte(secret)}, nil
}

func (f *flashes) sign(payload string) string {
	mac := hmac.New(sha256.New, f.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (f *flashes) encode(msgs []string) (string, error) {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return "", eris.Wrap(err, "server: marshal flashes")
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + f.sign(payload), nil
}

func (f *flashes) decode(value string) ([]string, error) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, eris.New("server: malformed flash cookie")
	}
	if !hmac.Equal([]byte(sig), []byte(f.sign(payload))) {
		return nil, eris.New("server: flash cookie signature mismatch")
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, eris.Wrap(err, "server: decode flash cookie")
	}
	var msgs []string
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, eris.Wrap(err, "server: unmarshal flashes")
	}
	return msgs, nil
}

// Add queues msg for the next page render, keeping messages that are
// already pending.
func (f *flashes) Add(w http.ResponseWriter, r *http.Request, msg string) error {
	msgs := f.peek(r)
	msgs = append(msgs, msg)
	value, err := f.encode(msgs)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop returns pending messages and clears them. Tampered cookies yield
// no messages.
func (f *flashes) Pop(w http.ResponseWriter, r *http.Request) []string {
	msgs := f.peek(r)
	if _, err := r.Cookie(flashCookie); err == nil {
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	return msgs
}

func (f *flashes) peek(r *http.Request) []string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	msgs, err := f.decode(c.Value)
	if err != nil {
		return nil
	}
	return msgs
}
