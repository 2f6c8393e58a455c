// Package views holds the server-rendered HTML pages.
package views

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

const (
	LoginRegister = "login-register.html"
	Home          = "home.html"
	Error         = "error.html"
)

// Load parses every page; templates are addressed by file name.
func Load() (*template.Template, error) {
	return template.ParseFS(files, "templates/*.html")
}

// RegisterForm is echoed back into the register form after a failed attempt.
// The password is never echoed.
type RegisterForm struct {
	Name         string
	Type         string
	Organization string
}

type LoginRegisterPage struct {
	RegisterErrors []string
	LoginErrors    []string
	Old            RegisterForm
	Types          []string
	Organizations  []string
}

type HomePage struct {
	Name string
}

type ErrorPage struct {
	Message   string
	RequestID string
}

var (
	UserTypes     = []string{"Owner", "Doctor", "Patient"}
	Organizations = []string{"Org1", "Org2"}
)

// NewLoginRegisterPage fills in the select options every render needs.
func NewLoginRegisterPage() LoginRegisterPage {
	return LoginRegisterPage{
		Types:         UserTypes,
		Organizations: Organizations,
	}
}
