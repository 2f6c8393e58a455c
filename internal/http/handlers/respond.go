package handlers

import (
	"net/http"

	"github.com/geocoder89/ledgerauth/internal/http/middlewares"
	"github.com/geocoder89/ledgerauth/internal/http/views"
	"github.com/gin-gonic/gin"
)

const (
	notFoundHTML   = "<h1>404 Page Not Found!</h1>"
	registeredHTML = `Your account has been create successfully, Now you can go back to <a href="/">login</a>`
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func respondHTML(ctx *gin.Context, status int, body string) {
	ctx.Data(status, "text/html; charset=utf-8", []byte(body))
}

// RespondInternal renders the generic failure page. err is attached to the
// context so the request logger records it; it is never shown to the user.
func RespondInternal(ctx *gin.Context, message string, err error) {
	if err != nil {
		_ = ctx.Error(err)
	}

	ctx.HTML(http.StatusInternalServerError, views.Error, views.ErrorPage{
		Message:   message,
		RequestID: requestIDFrom(ctx),
	})
}

func RespondNotFound(ctx *gin.Context) {
	respondHTML(ctx, http.StatusNotFound, notFoundHTML)
}

// NotFound is the catch-all route.
func NotFound(ctx *gin.Context) {
	RespondNotFound(ctx)
}
