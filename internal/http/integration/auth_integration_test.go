package integration__test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/geocoder89/ledgerauth/internal/config"
	"github.com/geocoder89/ledgerauth/internal/db"
	apphttp "github.com/geocoder89/ledgerauth/internal/http"
	"github.com/geocoder89/ledgerauth/internal/repo/postgres"
	"github.com/geocoder89/ledgerauth/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testConfigAuth() config.Config {
	return config.Config{
		Env:            "test",
		SessionKeys:    []string{"test-session-key"},
		SessionCookie:  "session",
		LoginRateLimit: 1000,
	}
}

// setupAuthTestRouter needs a disposable Postgres in TEST_DB_DSN; the schema
// is migrated on every run.
func setupAuthTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	if err := db.Migrate(dsn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := testConfigAuth()

	mgr, err := session.NewManager(session.Options{Keys: cfg.SessionKeys, CookieName: cfg.SessionCookie})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	router, err := apphttp.NewRouter(apphttp.Deps{
		Log:      logger,
		Cfg:      cfg,
		Users:    postgres.NewUsersRepo(pool, nil),
		Sessions: mgr,
		Ping:     func() error { return pool.Ping(context.Background()) },
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	return router, pool
}

func resetAuthDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE users, record
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// helpers

func extractSessionCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range response.Cookies() {
		if c.Name == "session" {
			return c
		}
	}

	t.Fatalf("session cookie not found in response")

	return nil
}

func doForm(router http.Handler, method, path string, form url.Values, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func TestAuthIntegration_Register_Login_Home_Logout(t *testing.T) {
	router, pool := setupAuthTestRouter(t)
	resetAuthDB(t, pool)

	defer resetAuthDB(t, pool)

	// register

	registerForm := url.Values{
		"user_name": {"alice"},
		"user_pass": {"secret1"},
		"user_type": {"Doctor"},
		"user_org":  {"Org1"},
	}

	w, _ := doForm(router, http.MethodPost, "/register", registerForm)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "create successfully") {
		t.Fatalf("register got status %d, body=%s", w.Code, w.Body.String())
	}

	var hash string
	if err := pool.QueryRow(context.Background(), `SELECT password_hash FROM users WHERE name = 'alice'`).Scan(&hash); err != nil {
		t.Fatalf("read stored user: %v", err)
	}
	if hash == "secret1" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}

	// same name again is refused

	w2, _ := doForm(router, http.MethodPost, "/register", registerForm)
	if !strings.Contains(w2.Body.String(), "This name already registered") {
		t.Fatalf("duplicate register body=%s", w2.Body.String())
	}

	// login

	w3, response3 := doForm(router, http.MethodPost, "/", url.Values{"user_name": {"alice"}, "user_pass": {"secret1"}})
	if w3.Code != http.StatusFound {
		t.Fatalf("login got status %d, want %d, body=%s", w3.Code, http.StatusFound, w3.Body.String())
	}

	sessionCookie := extractSessionCookie(t, response3)

	// home

	w4, _ := doForm(router, http.MethodGet, "/", nil, sessionCookie)
	if !strings.Contains(w4.Body.String(), "Welcome alice") {
		t.Fatalf("home body=%s", w4.Body.String())
	}

	// logout clears the cookie

	w5, response5 := doForm(router, http.MethodGet, "/logout", nil, sessionCookie)
	if w5.Code != http.StatusFound {
		t.Fatalf("logout got status %d, want %d", w5.Code, http.StatusFound)
	}

	cleared := false

	for _, c := range response5.Cookies() {
		if c.Name == "session" && (c.MaxAge < 0 || c.Value == "") {
			cleared = true
		}
	}

	if !cleared {
		t.Fatalf("expected logout to clear session cookie")
	}
}
