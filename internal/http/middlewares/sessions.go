package middlewares

import (
	"github.com/geocoder89/ledgerauth/internal/session"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type SessionLoader interface {
	Load(ctx *gin.Context) session.Session
}

// Sessions decodes the session cookie once per request and stashes the value
// on the context. Handlers never mutate it; they commit a replacement.
func Sessions(loader SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxSession, loader.Load(c))
		c.Next()
	}
}

// SessionFrom returns the session loaded for this request.
func SessionFrom(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(CtxSession)
	if !ok {
		return session.Session{}, false
	}
	s, ok := v.(session.Session)
	return s, ok
}
