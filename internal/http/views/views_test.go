package views

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoad_RendersEveryPage(t *testing.T) {
	tmpl, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	page := NewLoginRegisterPage()
	page.RegisterErrors = []string{"Password must be 6-12 characters"}
	page.Old = RegisterForm{Name: "<alice>", Type: "Doctor", Organization: "Org2"}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, LoginRegister, page); err != nil {
		t.Fatalf("render %s: %v", LoginRegister, err)
	}

	body := buf.String()
	if !strings.Contains(body, "Password must be 6-12 characters") {
		t.Fatalf("expected register error in body")
	}
	if strings.Contains(body, "<alice>") {
		t.Fatalf("old data must be escaped")
	}
	if !strings.Contains(body, `<option value="Doctor" selected>`) {
		t.Fatalf("expected previous type to stay selected, body=%s", body)
	}

	buf.Reset()
	if err := tmpl.ExecuteTemplate(&buf, Home, HomePage{Name: "alice"}); err != nil {
		t.Fatalf("render %s: %v", Home, err)
	}
	if !strings.Contains(buf.String(), "Welcome alice") {
		t.Fatalf("expected name in home page")
	}

	buf.Reset()
	if err := tmpl.ExecuteTemplate(&buf, Error, ErrorPage{Message: "oops"}); err != nil {
		t.Fatalf("render %s: %v", Error, err)
	}
}
