// components/auth/auth.go
//
// Huelip authentication component – JSON API.
//
// Context
// -------
// Mounted at “/api/auth”.  Every route answers with the envelope from
// internal/envelope.
//
//	POST     /signup       – create account + session, 201
//	POST     /signin       – open session, 200 or 401
//	GET|POST /signout      – drop session, 200
//	POST     /check-email  – {available}, 200
//	GET      /session      – {session, user} or null, 200
//
// Malformed JSON is a 400; validation failures are a 400 “Validation
// Error” with one issue per field; anything unexpected is a 500 “Internal
// Server Error” and is logged.
//
//------------------------------------------------------------------------------

package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/huelip/huelip/internal/auth"
	"github.com/huelip/huelip/internal/component"
	"github.com/huelip/huelip/internal/envelope"
	"github.com/huelip/huelip/internal/form"
	"github.com/huelip/huelip/internal/metrics"
	"github.com/huelip/huelip/internal/requestinfo"
	"github.com/huelip/huelip/internal/session"
	"github.com/huelip/huelip/internal/user"
	"github.com/huelip/huelip/internal/validation"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Response messages.
const (
	MsgValidation    = "Validation Error"
	MsgBadJSON       = "Invalid JSON payload"
	MsgInternal      = "Internal Server Error"
	MsgEmailTaken    = "Email already registered"
	MsgBadLogin      = "Invalid email or password"
	MsgSignedUp      = "User registered successfully"
	MsgSignedIn      = "User logged in successfully"
	MsgSignedOut     = "User logged out successfully"
	MsgEmailChecked  = "Email availability checked"
	MsgSessionLoaded = "User session retrieved successfully"

	CodeBadLogin = "INVALID_EMAIL_OR_PASSWORD"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// Component encapsulates the auth routes.
type Component struct {
	svc    *Service
	log    *zap.SugaredLogger
	secure bool
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Init builds the service from the shared stores and config.
func (c *Component) Init(d component.Deps) error {
	if d.Users == nil || d.Sessions == nil {
		return errors.New("auth: user and session stores are required")
	}
	var (
		cost int
		ttl  time.Duration
	)
	if d.Config != nil {
		cost, ttl = d.Config.Session.BcryptCost, d.Config.Session.TTL
		c.secure = d.Config.Session.SecureCookie
	}
	svc, err := NewService(d.Users, d.Sessions, cost, ttl)
	if err != nil {
		return err
	}
	c.svc, c.log = svc, d.Log
	return nil
}

// Routes builds the router mounted at “/api/auth”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(c.LoadSession)
	r.Post("/signup", c.instrument("signup", c.signup))
	r.Post("/signin", c.instrument("signin", c.signin))
	r.Get("/signout", c.instrument("signout", c.signout))
	r.Post("/signout", c.instrument("signout", c.signout))
	r.Post("/check-email", c.instrument("check-email", c.checkEmail))
	r.Get("/session", c.instrument("session", c.session))
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type authData struct {
	User    user.Public      `json:"user"`
	Session *session.Session `json:"session"`
}

func (c *Component) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !c.decode(w, r, signupSchema, &req) {
		return
	}

	u, sess, err := c.svc.SignUp(r.Context(), req.Name, req.Email, req.Password, meta(r))
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		envelope.WriteFail(w, http.StatusConflict, MsgEmailTaken,
			envelope.FieldIssue("email", "This email is already registered"))
		return
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		envelope.WriteFail(w, http.StatusBadRequest, MsgValidation,
			envelope.FieldIssue("password", "Password must be at most 72 bytes long"))
		return
	case err != nil:
		c.fail(w, r, err)
		return
	}

	session.SetCookie(w, r, sess, c.secure)
	envelope.WriteOK(w, http.StatusCreated, authData{User: u.Public(), Session: sess}, MsgSignedUp)
}

func (c *Component) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !c.decode(w, r, signinSchema, &req) {
		return
	}

	u, sess, err := c.svc.SignIn(r.Context(), req.Email, req.Password, meta(r))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		envelope.WriteFail(w, http.StatusUnauthorized, MsgBadLogin, envelope.Issue{
			Path:    []any{"email"},
			Message: MsgBadLogin,
			Code:    CodeBadLogin,
		})
		return
	case err != nil:
		c.fail(w, r, err)
		return
	}

	session.SetCookie(w, r, sess, c.secure)
	envelope.WriteOK(w, http.StatusOK, authData{User: u.Public(), Session: sess}, MsgSignedIn)
}

func (c *Component) signout(w http.ResponseWriter, r *http.Request) {
	token, _ := session.Token(r)
	if err := c.svc.SignOut(r.Context(), token); err != nil {
		c.fail(w, r, err)
		return
	}
	session.ClearCookie(w, r)
	envelope.WriteOK(w, http.StatusOK, nil, MsgSignedOut)
}

func (c *Component) checkEmail(w http.ResponseWriter, r *http.Request) {
	var req checkEmailRequest
	if !c.decode(w, r, checkEmailSchema, &req) {
		return
	}
	free, err := c.svc.EmailAvailable(r.Context(), req.Email)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	envelope.WriteOK(w, http.StatusOK, map[string]bool{"available": free}, MsgEmailChecked)
}

func (c *Component) session(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		envelope.WriteOK(w, http.StatusOK, nil, MsgSessionLoaded)
		return
	}
	u, err := c.svc.Owner(r.Context(), sess)
	switch {
	case errors.Is(err, user.ErrNotFound):
		envelope.WriteOK(w, http.StatusOK, nil, MsgSessionLoaded)
		return
	case err != nil:
		c.fail(w, r, err)
		return
	}
	envelope.WriteOK(w, http.StatusOK, authData{User: u.Public(), Session: sess}, MsgSessionLoaded)
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// decode reads a JSON object, validates it, and binds the coerced values
// onto out.  It writes the 400 itself and returns false when the request
// cannot proceed.
func (c *Component) decode(w http.ResponseWriter, r *http.Request, s *validation.Schema, out any) bool {
	var body map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		envelope.WriteFail(w, http.StatusBadRequest, MsgBadJSON)
		return false
	}
	data, issues := check(s, body)
	if issues != nil {
		envelope.WriteFail(w, http.StatusBadRequest, MsgValidation, issues...)
		return false
	}
	if err := form.Decode(data, out); err != nil {
		c.fail(w, r, err)
		return false
	}
	return true
}

// fail logs err and answers 500.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	c.logger().Errorw("auth request failed",
		"req_id", chimw.GetReqID(r.Context()),
		"path", r.URL.Path,
		"err", err,
	)
	envelope.WriteFail(w, http.StatusInternalServerError, MsgInternal)
}

func (c *Component) logger() *zap.SugaredLogger {
	if c.log == nil {
		return zap.S()
	}
	return c.log
}

// instrument counts responses per route and status.
func (c *Component) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		h(ww, r)
		metrics.AuthRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	}
}

// meta collects the client details stored on new sessions.
func meta(r *http.Request) ClientMeta {
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		return ClientMeta{IP: ri.IPString(), UserAgent: ri.UA.Raw}
	}
	m := ClientMeta{UserAgent: r.UserAgent()}
	if ip := requestinfo.ClientIP(r); ip != nil {
		m.IP = ip.String()
	}
	return m
}
