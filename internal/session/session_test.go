package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager(t *testing.T, keys ...string) *Manager {
	t.Helper()
	m, err := NewManager(Options{Keys: keys, MaxAge: time.Hour})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresKeys(t *testing.T) {
	_, err := NewManager(Options{})
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := newManager(t, "k1")

	raw, err := m.Encode(LoggedInAs("user-1"))
	require.NoError(t, err)

	s, err := m.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Session{LoggedIn: true, UserID: "user-1"}, s)
}

func TestDecode_KeyRotation(t *testing.T) {
	old := newManager(t, "old-key")
	raw, err := old.Encode(LoggedInAs("user-1"))
	require.NoError(t, err)

	rotated := newManager(t, "new-key", "old-key")
	s, err := rotated.Decode(raw)
	require.NoError(t, err, "cookies signed with a retained key still verify")
	assert.True(t, s.LoggedIn)

	retired := newManager(t, "new-key")
	_, err = retired.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecode_Tampered(t *testing.T) {
	m := newManager(t, "k1")
	raw, err := m.Encode(LoggedInAs("user-1"))
	require.NoError(t, err)

	other, err := m.Encode(LoggedInAs("user-2"))
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = m.Decode(forged)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecode_Expired(t *testing.T) {
	m := newManager(t, "k1")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := m.Encode(LoggedInAs("user-1"))
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSaveLoadClear_Cookie(t *testing.T) {
	m := newManager(t, "k1")

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, m.Save(ctx, LoggedInAs("user-1")))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)

	w2 := httptest.NewRecorder()
	ctx2, _ := gin.CreateTestContext(w2)
	ctx2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	ctx2.Request.AddCookie(cookies[0])
	assert.Equal(t, LoggedInAs("user-1"), m.Load(ctx2))

	m.Clear(ctx2)
	cleared := w2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestLoad_NoCookieIsAnonymous(t *testing.T) {
	m := newManager(t, "k1")
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Equal(t, Session{}, m.Load(ctx))
}
