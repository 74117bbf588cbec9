package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huelip/huelip/internal/envelope"
	"github.com/huelip/huelip/internal/form"
)

// scripted answers prompts from per-field queues.  The last answer of a
// queue repeats.
type scripted struct {
	answers map[string][]any
	asked   []string
	warns   []string
}

func (s *scripted) Ask(f form.FieldDef, _ any) (any, error) {
	s.asked = append(s.asked, f.Name)
	q := s.answers[f.Name]
	if len(q) == 0 {
		return "", nil
	}
	v := q[0]
	if len(q) > 1 {
		s.answers[f.Name] = q[1:]
	}
	return v, nil
}

func (s *scripted) Warn(msg string) { s.warns = append(s.warns, msg) }

type fixture struct {
	session string
	out     *bytes.Buffer
}

// setup points the loader at an empty root and the client at handler.
func setup(t *testing.T, routes map[string]http.HandlerFunc) fixture {
	t.Helper()
	mux := http.NewServeMux()
	for p, h := range routes {
		mux.HandleFunc(p, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	sessionFile := filepath.Join(dir, "state", "session")
	t.Setenv("HUELIP_ROOT", dir)
	t.Setenv("HUELIP_CLIENT__API_URL", srv.URL)
	t.Setenv("HUELIP_CLIENT__SESSION_FILE", sessionFile)
	t.Setenv("HUELIP_LOG__LEVEL", "error")
	return fixture{session: sessionFile, out: &bytes.Buffer{}}
}

func reply(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { envelope.Write(w, status, body) }
}

var authBody = envelope.OK(200, map[string]any{
	"user":    map[string]any{"id": "u1", "name": "Sarah", "email": "sarah@example.com"},
	"session": map[string]any{"id": "s1", "token": "tok-123", "userId": "u1"},
}, "")

func TestLoginRetriesFailingFields(t *testing.T) {
	var calls atomic.Int32
	fx := setup(t, map[string]http.HandlerFunc{
		"POST /auth/signin": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				envelope.WriteFail(w, 401, "Invalid email or password")
				return
			}
			envelope.Write(w, 200, authBody)
		},
	})
	p := &scripted{answers: map[string][]any{
		"email":    {"not-an-email", "sarah@example.com"},
		"password": {"wrong-pass", "right-pass"},
	}}

	if err := run(context.Background(), []string{"login"}, false, fx.out, p); err != nil {
		t.Fatalf("login: %v", err)
	}

	// email asked twice (bad shape), password once, then password again
	// after the 401.
	want := []string{"email", "email", "password", "password"}
	if strings.Join(p.asked, ",") != strings.Join(want, ",") {
		t.Fatalf("asked = %v, want %v", p.asked, want)
	}
	if len(p.warns) != 2 || !strings.Contains(p.warns[1], "Invalid email or password") {
		t.Fatalf("warnings = %v", p.warns)
	}
	tok, _ := loadToken(fx.session)
	if tok != "tok-123" {
		t.Fatalf("token = %q", tok)
	}
	if !strings.Contains(fx.out.String(), "Signed in as Sarah") {
		t.Fatalf("out = %q", fx.out.String())
	}
}

func TestLoginGivesUpAfterMaxSubmits(t *testing.T) {
	fx := setup(t, map[string]http.HandlerFunc{
		"POST /auth/signin": reply(401, envelope.Fail(401, "Invalid email or password")),
	})
	p := &scripted{answers: map[string][]any{
		"email":    {"sarah@example.com"},
		"password": {"nope-nope"},
	}}
	if err := run(context.Background(), []string{"login"}, false, fx.out, p); err != errSubmitFailed {
		t.Fatalf("err = %v, want errSubmitFailed", err)
	}
	if _, err := os.Stat(fx.session); err == nil {
		t.Fatal("token written after failed login")
	}
}

func TestSignupRejectsTakenEmail(t *testing.T) {
	fx := setup(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": func(w http.ResponseWriter, r *http.Request) {
			var taken = strings.Contains(readAll(r), "taken@")
			envelope.WriteOK(w, 200, map[string]bool{"available": !taken}, "")
		},
		"POST /auth/signup": func(w http.ResponseWriter, _ *http.Request) {
			b := authBody
			b.StatusCode = 201
			envelope.Write(w, 201, b)
		},
	})
	p := &scripted{answers: map[string][]any{
		"name":     {"Sarah"},
		"email":    {"taken@example.com", "sarah@example.com"},
		"password": {"secret1"},
		"terms":    {false, true},
	}}

	start := time.Now()
	if err := run(context.Background(), []string{"signup"}, false, fx.out, p); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if time.Since(start) < 500*time.Millisecond {
		t.Fatal("email check was not debounced")
	}
	if len(p.warns) < 2 || p.warns[0] != "This email is already registered" {
		t.Fatalf("warnings = %v", p.warns)
	}
	if !strings.Contains(fx.out.String(), "Account created") {
		t.Fatalf("out = %q", fx.out.String())
	}
}

func TestSessionAndLogout(t *testing.T) {
	var signedOut atomic.Bool
	fx := setup(t, map[string]http.HandlerFunc{
		"GET /auth/session": func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("huelip_session"); err != nil || c.Value != "tok-123" || signedOut.Load() {
				envelope.WriteOK(w, 200, nil, "")
				return
			}
			envelope.Write(w, 200, authBody)
		},
		"GET /auth/signout": func(w http.ResponseWriter, _ *http.Request) {
			signedOut.Store(true)
			envelope.WriteOK(w, 200, nil, "User logged out successfully")
		},
	})
	if err := saveToken(fx.session, "tok-123"); err != nil {
		t.Fatal(err)
	}

	if err := run(context.Background(), []string{"session"}, false, fx.out, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fx.out.String(), `"email": "sarah@example.com"`) {
		t.Fatalf("session output = %q", fx.out.String())
	}

	fx.out.Reset()
	if err := run(context.Background(), []string{"logout"}, false, fx.out, nil); err != nil {
		t.Fatal(err)
	}
	if !signedOut.Load() {
		t.Fatal("server signout not called")
	}
	if tok, _ := loadToken(fx.session); tok != "" {
		t.Fatalf("token kept: %q", tok)
	}

	fx.out.Reset()
	run(context.Background(), []string{"session"}, false, fx.out, nil)
	if !strings.Contains(fx.out.String(), "Not signed in") {
		t.Fatalf("output = %q", fx.out.String())
	}
}

func TestCheckEmailCommand(t *testing.T) {
	fx := setup(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": reply(200, envelope.OK(200, map[string]bool{"available": false}, "")),
	})
	if err := run(context.Background(), []string{"check-email", "sarah@example.com"}, false, fx.out, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(fx.out.String()) != "This email is already registered" {
		t.Fatalf("out = %q", fx.out.String())
	}

	if err := run(context.Background(), []string{"check-email", "nope"}, false, fx.out, nil); err == nil {
		t.Fatal("invalid email reported as checked")
	}
	if err := run(context.Background(), []string{"check-email"}, false, fx.out, nil); err == nil {
		t.Fatal("missing argument accepted")
	}
	if err := run(context.Background(), []string{"dance"}, false, fx.out, nil); err == nil {
		t.Fatal("unknown command accepted")
	}
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	if tok, err := loadToken(path); tok != "" || err != nil {
		t.Fatalf("missing file = %q, %v", tok, err)
	}
	if err := saveToken(path, "abc"); err != nil {
		t.Fatal(err)
	}
	fi, _ := os.Stat(path)
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", fi.Mode())
	}
	if tok, _ := loadToken(path); tok != "abc" {
		t.Fatalf("token = %q", tok)
	}
	if err := clearToken(path); err != nil || clearToken(path) != nil {
		t.Fatal("clear not idempotent")
	}
}

func readAll(r *http.Request) string {
	var b bytes.Buffer
	b.ReadFrom(r.Body)
	return b.String()
}
