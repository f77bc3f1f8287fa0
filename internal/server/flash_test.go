package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashes_RoundTrip(t *testing.T) {
	f, err := newFlashes("secret")
	require.NoError(t, err)

	value, err := f.encode([]string{"No file part", "No selected file"})
	require.NoError(t, err)

	msgs, err := f.decode(value)
	require.NoError(t, err)
	assert.Equal(t, []string{"No file part", "No selected file"}, msgs)
}

func TestFlashes_RejectsOtherKey(t *testing.T) {
	a, _ := newFlashes("secret")
	b, _ := newFlashes("other")

	value, err := a.encode([]string{"hello"})
	require.NoError(t, err)

	_, err = b.decode(value)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature mismatch")

	_, err = a.decode("no-dot")
	assert.Error(t, err)
}

func TestFlashes_AddAndPop(t *testing.T) {
	f, _ := newFlashes("secret")

	rec := httptest.NewRecorder()
	require.NoError(t, f.Add(rec, httptest.NewRequest(http.MethodPost, "/", nil), "Pattern not found in the text."))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	assert.Equal(t, []string{"Pattern not found in the text."}, f.Pop(rec, req))

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestFlashes_TamperedCookieIgnored(t *testing.T) {
	f, _ := newFlashes("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: "WyJoYWNrZWQiXQ.bogus"})
	assert.Empty(t, f.Pop(httptest.NewRecorder(), req))
}

func TestNewFlashes_RequiresSecret(t *testing.T) {
	_, err := newFlashes("")
	assert.Error(t, err)
}
