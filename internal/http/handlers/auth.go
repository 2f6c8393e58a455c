package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/ledgerauth/internal/domain/user"
	"github.com/geocoder89/ledgerauth/internal/http/middlewares"
	"github.com/geocoder89/ledgerauth/internal/http/views"
	"github.com/geocoder89/ledgerauth/internal/security"
	"github.com/geocoder89/ledgerauth/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	msgNameTaken       = "This name already registered"
	msgInvalidUsername = "Invalid Username!"
	msgInvalidPassword = "Invalid Password"
	msgBadForm         = "Invalid form submission"
)

type UserStore interface {
	CountByName(ctx context.Context, name string) (int, error)
	GetByName(ctx context.Context, name string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, req user.CreateRequest) (user.User, error)
}

type SessionStore interface {
	Save(ctx *gin.Context, s session.Session) error
	Clear(ctx *gin.Context)
}

type AuthHandler struct {
	users    UserStore
	sessions SessionStore
}

func NewAuthHandler(users UserStore, sessions SessionStore) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
	}
}

type RegisterForm struct {
	Name         string `form:"user_name" validate:"required" msg:"Username is empty"`
	Password     string `form:"user_pass" validate:"min=6,max=12" msg:"Password must be 6-12 characters"`
	Type         string `form:"user_type" validate:"required" msg:"Please select one"`
	Organization string `form:"user_org" validate:"required" msg:"Please select one"`
}

func (f *RegisterForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Password = strings.TrimSpace(f.Password)
}

type LoginForm struct {
	Name     string `form:"user_name"`
	Password string `form:"user_pass" validate:"required" msg:"Password is empty!"`
}

func (f *LoginForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Password = strings.TrimSpace(f.Password)
}

// Home renders the account page for a logged-in session and the combined
// login/register page otherwise.
func (h *AuthHandler) Home(ctx *gin.Context) {
	sess, _ := middlewares.SessionFrom(ctx)

	if !sess.LoggedIn {
		h.renderLoginRegister(ctx, views.NewLoginRegisterPage())
		return
	}

	h.renderHome(ctx, sess)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	sess, _ := middlewares.SessionFrom(ctx)
	if sess.LoggedIn {
		h.renderHome(ctx, sess)
		return
	}

	var form RegisterForm
	if err := BindForm(ctx, &form); err != nil {
		page := views.NewLoginRegisterPage()
		page.RegisterErrors = []string{msgBadForm}
		ctx.HTML(http.StatusBadRequest, views.LoginRegister, page)
		return
	}
	form.normalize()

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	errs := make([]string, 0, 4)

	if form.Name != "" {
		n, err := h.users.CountByName(cctx, form.Name)
		if err != nil {
			RespondInternal(ctx, "Could not create user", err)
			return
		}
		if n > 0 {
			errs = append(errs, msgNameTaken)
		}
	}

	errs = append(errs, ValidationMessages(&form)...)

	if len(errs) > 0 {
		h.renderRegisterErrors(ctx, form, errs)
		return
	}

	hash, err := security.HashPassword(form.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	_, err = h.users.Create(cctx, user.CreateRequest{
		Name:         form.Name,
		PasswordHash: hash,
		Type:         form.Type,
		Organization: form.Organization,
	})
	if err != nil {
		// lost the race against a concurrent registration of the same name
		if errors.Is(err, user.ErrNameTaken) {
			h.renderRegisterErrors(ctx, form, []string{msgNameTaken})
			return
		}

		RespondInternal(ctx, "Could not create user", err)
		return
	}

	respondHTML(ctx, http.StatusOK, registeredHTML)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	sess, _ := middlewares.SessionFrom(ctx)
	if sess.LoggedIn {
		h.renderHome(ctx, sess)
		return
	}

	var form LoginForm
	if err := BindForm(ctx, &form); err != nil {
		page := views.NewLoginRegisterPage()
		page.LoginErrors = []string{msgBadForm}
		ctx.HTML(http.StatusBadRequest, views.LoginRegister, page)
		return
	}
	form.normalize()

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	errs := make([]string, 0, 2)

	n, err := h.users.CountByName(cctx, form.Name)
	if err != nil {
		RespondInternal(ctx, "Could not log in", err)
		return
	}
	if n != 1 {
		errs = append(errs, msgInvalidUsername)
	}

	errs = append(errs, ValidationMessages(&form)...)

	if len(errs) > 0 {
		h.renderLoginErrors(ctx, errs)
		return
	}

	foundUser, err := h.users.GetByName(cctx, form.Name)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.renderLoginErrors(ctx, []string{msgInvalidUsername})
			return
		}

		RespondInternal(ctx, "Could not log in", err)
		return
	}

	ok, err := security.MatchPassword(foundUser.PasswordHash, form.Password)
	if err != nil {
		RespondInternal(ctx, "Could not log in", err)
		return
	}
	if !ok {
		h.renderLoginErrors(ctx, []string{msgInvalidPassword})
		return
	}

	if err := h.sessions.Save(ctx, session.LoggedInAs(foundUser.ID)); err != nil {
		RespondInternal(ctx, "Could not create session", err)
		return
	}

	ctx.Redirect(http.StatusFound, "/")
}

// Logout clears the session whether or not one exists.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.sessions.Clear(ctx)
	ctx.Redirect(http.StatusFound, "/")
}

// Helper functions

func (h *AuthHandler) renderHome(ctx *gin.Context, sess session.Session) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, sess.UserID)
	if err != nil {
		// the account behind a still-valid cookie is gone; start over
		if errors.Is(err, user.ErrNotFound) {
			h.sessions.Clear(ctx)
			h.renderLoginRegister(ctx, views.NewLoginRegisterPage())
			return
		}

		RespondInternal(ctx, "Could not load your account", err)
		return
	}

	ctx.HTML(http.StatusOK, views.Home, views.HomePage{Name: u.Name})
}

func (h *AuthHandler) renderLoginRegister(ctx *gin.Context, page views.LoginRegisterPage) {
	ctx.HTML(http.StatusOK, views.LoginRegister, page)
}

func (h *AuthHandler) renderRegisterErrors(ctx *gin.Context, form RegisterForm, errs []string) {
	page := views.NewLoginRegisterPage()
	page.RegisterErrors = errs
	page.Old = views.RegisterForm{
		Name:         form.Name,
		Type:         form.Type,
		Organization: form.Organization,
	}
	h.renderLoginRegister(ctx, page)
}

func (h *AuthHandler) renderLoginErrors(ctx *gin.Context, errs []string) {
	page := views.NewLoginRegisterPage()
	page.LoginErrors = errs
	h.renderLoginRegister(ctx, page)
}
