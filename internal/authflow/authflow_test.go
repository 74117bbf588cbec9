package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/huelip/huelip/internal/apiclient"
	"github.com/huelip/huelip/internal/envelope"
)

func init() {
	if err := LoadForms(); err != nil {
		panic(err)
	}
}

// fakeAPI answers every route with the handler registered for it.
func fakeAPI(t *testing.T, routes map[string]http.HandlerFunc) *apiclient.Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return apiclient.New(apiclient.Config{BaseURL: srv.URL})
}

func reply(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { envelope.Write(w, status, body) }
}

func fillSignup(s *Signup) {
	f := s.Form()
	f.SetField("name", "Sarah Jenkins")
	s.SetEmail("sarah@example.com")
	f.SetField("password", "secret1")
	f.SetField("terms", true)
}

func TestSignup_EmptySubmitShowsEveryError(t *testing.T) {
	var hits atomic.Int32
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/signup": func(w http.ResponseWriter, _ *http.Request) { hits.Add(1) },
	})
	s, err := NewSignup(c, nil)
	if err != nil {
		t.Fatalf("NewSignup: %v", err)
	}
	defer s.Close()

	if s.Form().Submit(context.Background()) {
		t.Fatal("empty form submitted")
	}
	want := map[string]string{
		"name":     "Name is required",
		"email":    "Email is required",
		"password": "Password is required",
		"terms":    "You must agree to the terms and conditions",
	}
	if diff := cmp.Diff(want, s.Form().Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if hits.Load() != 0 {
		t.Fatal("API called for an invalid form")
	}
}

func TestSignup_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   any
		want   map[string]string
	}{
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   envelope.Fail(409, "Email already registered"),
			want:   map[string]string{"email": MsgEmailTaken},
		},
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body: envelope.Fail(400, "Validation Error",
				envelope.FieldIssue("password", "Password must be at least 6 characters long"),
				envelope.FieldIssue("name", "Name is required")),
			want: map[string]string{
				"password": "Password must be at least 6 characters long",
				"name":     "Name is required",
			},
		},
		{
			name:   "server",
			status: http.StatusInternalServerError,
			body:   envelope.Fail(500, "Internal Server Error"),
			want:   map[string]string{"email": "Internal Server Error"},
		},
		{
			name:   "no message",
			status: http.StatusBadGateway,
			body:   map[string]any{"message": ""},
			want:   map[string]string{"email": "An error occurred"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := fakeAPI(t, map[string]http.HandlerFunc{
				"POST /auth/signup": reply(tc.status, tc.body),
			})
			s, err := NewSignup(c, nil)
			if err != nil {
				t.Fatalf("NewSignup: %v", err)
			}
			defer s.Close()
			fillSignup(s)

			if !s.Form().Submit(context.Background()) {
				t.Fatalf("submit blocked: %v", s.Form().Errors())
			}
			if diff := cmp.Diff(tc.want, s.Form().Errors()); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
			if s.Result() != nil {
				t.Fatal("result stored on failure")
			}
			if s.Form().IsSubmitting() {
				t.Fatal("still submitting")
			}
		})
	}
}

func TestSignup_ConnectivityFailureLandsOnEmail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	s, err := NewSignup(apiclient.New(apiclient.Config{BaseURL: srv.URL}), nil)
	if err != nil {
		t.Fatalf("NewSignup: %v", err)
	}
	defer s.Close()
	fillSignup(s)
	s.Form().Submit(context.Background())

	if msg, _ := s.Form().Error("email"); msg != apiclient.MsgConnectivity {
		t.Fatalf("email error = %q", msg)
	}
}

func TestSignup_Success(t *testing.T) {
	var got map[string]any
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/signup": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			envelope.WriteOK(w, http.StatusCreated, AuthResult{
				User:    User{ID: "u1", Name: "Sarah Jenkins", Email: "sarah@example.com"},
				Session: SessionInfo{Token: "tok"},
			}, "User registered successfully")
		},
	})
	s, err := NewSignup(c, nil)
	if err != nil {
		t.Fatalf("NewSignup: %v", err)
	}
	defer s.Close()
	fillSignup(s)
	s.Form().SetField("name", "  Sarah Jenkins  ")

	if !s.Form().Submit(context.Background()) {
		t.Fatalf("submit blocked: %v", s.Form().Errors())
	}
	res := s.Result()
	if res == nil || res.Session.Token != "tok" || res.User.ID != "u1" {
		t.Fatalf("result = %+v", res)
	}
	want := map[string]any{"name": "Sarah Jenkins", "email": "sarah@example.com", "password": "secret1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/signin": reply(http.StatusUnauthorized, envelope.Fail(401, "Invalid credentials")),
	})
	l, err := NewLogin(c, nil)
	if err != nil {
		t.Fatalf("NewLogin: %v", err)
	}
	l.Form().SetField("email", "wrong@example.com")
	l.Form().SetField("password", "wrongpassword")
	l.Form().Submit(context.Background())

	want := map[string]string{"password": MsgInvalidCredentials}
	if diff := cmp.Diff(want, l.Form().Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLogin_BackendValidationError(t *testing.T) {
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/signin": reply(http.StatusBadRequest, envelope.Fail(400, "Validation Error",
			envelope.FieldIssue("email", "Invalid email format"))),
	})
	l, err := NewLogin(c, nil)
	if err != nil {
		t.Fatalf("NewLogin: %v", err)
	}
	l.Form().SetField("email", "a@b.co")
	l.Form().SetField("password", "password123")
	l.Form().Submit(context.Background())

	if msg, _ := l.Form().Error("email"); msg != "Invalid email format" {
		t.Fatalf("email error = %q", msg)
	}
}

func TestEmailChecker_Check(t *testing.T) {
	var hits atomic.Int32
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			switch in["email"] {
			case "broken@example.com":
				envelope.WriteFail(w, 500, "Internal Server Error")
			default:
				envelope.WriteOK(w, 200, Availability{Available: in["email"] != "taken@example.com"}, "Email availability checked")
			}
		},
	})
	e := NewEmailChecker(c, 0, nil)

	if st := e.Check(context.Background(), "free@example.com"); st != EmailAvailable {
		t.Fatalf("status = %v", st)
	}
	if st := e.Check(context.Background(), "taken@example.com"); st != EmailUnavailable {
		t.Fatalf("status = %v", st)
	}
	if _, msg := e.Status(); msg != MsgEmailTaken {
		t.Fatalf("message = %q", msg)
	}
	if st := e.Check(context.Background(), "broken@example.com"); st != EmailIdle {
		t.Fatalf("status = %v", st)
	}
	if _, msg := e.Status(); msg != "" {
		t.Fatalf("message after failure = %q", msg)
	}

	before := hits.Load()
	if st := e.Check(context.Background(), "not-an-email"); st != EmailIdle {
		t.Fatalf("status = %v", st)
	}
	if hits.Load() != before {
		t.Fatal("invalid email reached the API")
	}
}

func TestSignup_BlurEmailSchedulesDebouncedCheck(t *testing.T) {
	var hits atomic.Int32
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			envelope.WriteOK(w, 200, Availability{Available: false}, "")
		},
	})
	s, err := NewSignup(c, nil)
	if err != nil {
		t.Fatalf("NewSignup: %v", err)
	}
	defer s.Close()
	s.checker.delay = 20 * time.Millisecond

	// Invalid email: blur sets the error and nothing is scheduled.
	s.SetEmail("bad")
	s.BlurEmail(context.Background())
	time.Sleep(60 * time.Millisecond)
	if hits.Load() != 0 {
		t.Fatal("check ran for an invalid email")
	}

	// Editing resets the status; a valid blur checks once.
	s.SetEmail("taken@example.com")
	s.BlurEmail(context.Background())
	s.BlurEmail(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		if st, _ := s.Checker().Status(); st == EmailUnavailable {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("check never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("hits = %d, want 1 (debounced)", n)
	}

	s.SetEmail("other@example.com")
	if st, msg := s.Checker().Status(); st != EmailIdle || msg != "" {
		t.Fatalf("status after edit = %v %q", st, msg)
	}
}

func TestEmailChecker_ResetDropsPendingCheck(t *testing.T) {
	var hits atomic.Int32
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": func(w http.ResponseWriter, _ *http.Request) { hits.Add(1) },
	})
	e := NewEmailChecker(c, 20*time.Millisecond, nil)
	e.Schedule(context.Background(), "a@b.co")
	e.Reset()
	time.Sleep(60 * time.Millisecond)
	if hits.Load() != 0 {
		t.Fatal("reset did not cancel the scheduled check")
	}
}

func TestCurrentSessionAndRedirect(t *testing.T) {
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"GET /auth/session": func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie("huelip_session")
			switch {
			case err != nil:
				envelope.WriteOK(w, 200, nil, "User session retrieved successfully")
			case ck.Value == "good":
				envelope.WriteOK(w, 200, AuthResult{User: User{ID: "u1"}}, "User session retrieved successfully")
			default:
				envelope.WriteFail(w, 401, "Unauthorized")
			}
		},
	})

	cur := CurrentSession(context.Background(), c, "good")
	if cur == nil || cur.User.ID != "u1" {
		t.Fatalf("session = %+v", cur)
	}
	if CurrentSession(context.Background(), c, "bad") != nil {
		t.Fatal("failed lookup returned a session")
	}
	if CurrentSession(context.Background(), c, "") != nil {
		t.Fatal("empty token returned a session")
	}

	if to, ok := Redirect(cur, "/login"); !ok || to != "/dashboard" {
		t.Fatalf("redirect = %q %v", to, ok)
	}
	if _, ok := Redirect(cur, "/dashboard"); ok {
		t.Fatal("dashboard redirected")
	}
	if _, ok := Redirect(nil, "/register"); ok {
		t.Fatal("anonymous visitor redirected")
	}
}

func TestLoadFormsWithOverride(t *testing.T) {
	if err := LoadForms(t.TempDir()); err != nil {
		t.Fatalf("LoadForms: %v", err)
	}
	if _, err := lookup(LoginFormID); err != nil {
		t.Fatal(err)
	}
	if _, err := lookup("auth/missing"); err == nil {
		t.Fatal("unknown form found")
	}
}

// A timer that already went off when Reset or Stop runs must not start the
// old email's check.
func TestEmailChecker_FiredScheduleAfterResetIsDropped(t *testing.T) {
	var hits atomic.Int32
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			envelope.WriteOK(w, 200, Availability{Available: false}, "")
		},
	})
	e := NewEmailChecker(c, time.Hour, nil)
	defer e.Stop()
	ctx := context.Background()

	token := func() uint64 {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.sched
	}

	e.Schedule(ctx, "taken@example.com")
	fired := token()
	e.Reset()
	e.fire(ctx, fired, "taken@example.com")

	e.Schedule(ctx, "taken@example.com")
	fired = token()
	e.Stop()
	e.fire(ctx, fired, "taken@example.com")

	if n := hits.Load(); n != 0 {
		t.Fatalf("hits = %d, want 0", n)
	}
	if st, msg := e.Status(); st != EmailIdle || msg != "" {
		t.Fatalf("status = %v %q, want idle", st, msg)
	}

	// A schedule that is still current runs.
	e.Schedule(ctx, "taken@example.com")
	e.fire(ctx, token(), "taken@example.com")
	if st, _ := e.Status(); st != EmailUnavailable || hits.Load() != 1 {
		t.Fatalf("status = %v hits = %d", st, hits.Load())
	}
}

func TestSignup_BlurEmailChecksTrimmedValue(t *testing.T) {
	sent := make(chan string, 1)
	c := fakeAPI(t, map[string]http.HandlerFunc{
		"POST /auth/check-email": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			sent <- body["email"]
			envelope.WriteOK(w, 200, Availability{Available: true}, "")
		},
	})
	s, err := NewSignup(c, nil)
	if err != nil {
		t.Fatalf("NewSignup: %v", err)
	}
	defer s.Close()
	s.checker.delay = 10 * time.Millisecond

	s.SetEmail("  sarah@example.com \t")
	s.BlurEmail(context.Background())

	select {
	case got := <-sent:
		if got != "sarah@example.com" {
			t.Fatalf("checked %q, want trimmed address", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("check never ran")
	}

	// Check on its own trims too.
	if st := s.Checker().Check(context.Background(), " sarah@example.com "); st != EmailAvailable {
		t.Fatalf("status = %v", st)
	}
	if got := <-sent; got != "sarah@example.com" {
		t.Fatalf("checked %q", got)
	}
}
