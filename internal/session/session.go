package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid = errors.New("invalid session")
	ErrNoKeys  = errors.New("at least one session key is required")
)

// Session is the client-held login state. It is a value: handlers read the
// one loaded for the request and commit a new one through Manager.Save.
type Session struct {
	LoggedIn bool
	UserID   string
}

// LoggedInAs is the session committed after a successful login.
func LoggedInAs(userID string) Session {
	return Session{LoggedIn: true, UserID: userID}
}

type claims struct {
	LoggedIn bool   `json:"isLoggedIn"`
	UserID   string `json:"userID,omitempty"`
	jwt.RegisteredClaims
}

type signingKey struct {
	id     string
	secret []byte
}

type Options struct {
	// Keys are tried in order when verifying; Keys[0] signs new cookies.
	Keys       []string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

type Manager struct {
	keys       []signingKey
	cookieName string
	maxAge     time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(opts Options) (*Manager, error) {
	if len(opts.Keys) == 0 {
		return nil, ErrNoKeys
	}

	keys := make([]signingKey, 0, len(opts.Keys))
	for _, k := range opts.Keys {
		keys = append(keys, signingKey{id: keyID(k), secret: []byte(k)})
	}

	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}

	return &Manager{
		keys:       keys,
		cookieName: opts.CookieName,
		maxAge:     opts.MaxAge,
		secure:     opts.Secure,
		now:        time.Now,
	}, nil
}

// keyID names a key without revealing it.
func keyID(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}

func (m *Manager) Encode(s Session) (string, error) {
	now := m.now().UTC()

	c := claims{
		LoggedIn: s.LoggedIn,
		UserID:   s.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
			Subject:   s.UserID,
		},
	}

	signer := m.keys[0]
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token.Header["kid"] = signer.id

	return token.SignedString(signer.secret)
}

func (m *Manager) Decode(raw string) (Session, error) {
	token, err := jwt.ParseWithClaims(raw, &claims{}, m.lookupKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Session{}, ErrInvalid
	}

	return Session{LoggedIn: c.LoggedIn, UserID: c.UserID}, nil
}

func (m *Manager) lookupKey(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)

	for _, k := range m.keys {
		if k.id == kid {
			return k.secret, nil
		}
	}
	return nil, errors.New("unknown signing key")
}

// Load returns the session carried by the request cookie. Missing, tampered,
// expired or retired-key cookies all read as the zero Session.
func (m *Manager) Load(ctx *gin.Context) Session {
	raw, err := ctx.Cookie(m.cookieName)
	if err != nil || raw == "" {
		return Session{}
	}

	s, err := m.Decode(raw)
	if err != nil {
		return Session{}
	}
	return s
}

func (m *Manager) Save(ctx *gin.Context, s Session) error {
	raw, err := m.Encode(s)
	if err != nil {
		return err
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(m.cookieName, raw, int(m.maxAge.Seconds()), "/", "", m.secure, true)
	return nil
}

func (m *Manager) Clear(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

func (m *Manager) CookieName() string {
	return m.cookieName
}
