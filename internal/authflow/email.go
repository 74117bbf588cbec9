package authflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/apiclient"
	"github.com/huelip/huelip/internal/metrics"
	"github.com/huelip/huelip/internal/validation"
)

// DefaultEmailCheckDelay is the debounce between an email blur and the
// availability request.
const DefaultEmailCheckDelay = 500 * time.Millisecond

// EmailStatus is the availability state shown next to the email field.
type EmailStatus int

const (
	EmailIdle EmailStatus = iota
	EmailChecking
	EmailAvailable
	EmailUnavailable
)

func (s EmailStatus) String() string {
	switch s {
	case EmailChecking:
		return "checking"
	case EmailAvailable:
		return "available"
	case EmailUnavailable:
		return "unavailable"
	default:
		return "idle"
	}
}

// emailField is the shape check run before any request is made.
var emailField = validation.String().
	Trim().
	Required("Email is required").
	Email("Invalid email format")

// EmailChecker runs debounced availability checks for one email field.
//
// Every check bumps a generation counter; a result that arrives after a
// newer check, a Reset, or a Stop is dropped.  A new check also aborts the
// previous in-flight request through the client's request registry.  Check
// failures fall back to idle without a message.
type EmailChecker struct {
	client *apiclient.Client
	log    *zap.SugaredLogger
	delay  time.Duration
	id     string // request id, unique per checker

	mu       sync.Mutex
	timer    *time.Timer
	sched    uint64 // bumped by Schedule, Cancel, Reset, and Stop
	gen      uint64
	status   EmailStatus
	message  string
	onChange func(EmailStatus, string)
}

// NewEmailChecker returns an idle checker.  delay <= 0 means
// DefaultEmailCheckDelay.
func NewEmailChecker(c *apiclient.Client, delay time.Duration, log *zap.SugaredLogger) *EmailChecker {
	if delay <= 0 {
		delay = DefaultEmailCheckDelay
	}
	if log == nil {
		log = zap.S()
	}
	return &EmailChecker{
		client: c,
		log:    log,
		delay:  delay,
		id:     "check-email-" + uuid.NewString(),
	}
}

// OnChange registers fn to run after every status change.  fn runs on the
// goroutine that made the change and must not block.
func (e *EmailChecker) OnChange(fn func(EmailStatus, string)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Status returns the current status and its message ("" unless
// unavailable).
func (e *EmailChecker) Status() (EmailStatus, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, e.message
}

// Schedule runs Check(ctx, email) after the debounce delay, replacing any
// pending schedule.
func (e *EmailChecker) Schedule(ctx context.Context, email string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.sched++
	token := e.sched
	e.timer = time.AfterFunc(e.delay, func() { e.fire(ctx, token, email) })
}

// fire runs a scheduled check unless the schedule was replaced or
// cancelled after the timer went off.
func (e *EmailChecker) fire(ctx context.Context, token uint64, email string) {
	e.mu.Lock()
	if e.sched != token {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.gen++
	gen := e.gen
	e.mu.Unlock()
	e.run(ctx, gen, email)
}

// Cancel drops a pending schedule.  An in-flight check keeps running.
func (e *EmailChecker) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// Reset cancels everything and returns to idle.  Call it when the email
// value changes.
func (e *EmailChecker) Reset() {
	e.mu.Lock()
	e.sched++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	changed := e.status != EmailIdle || e.message != ""
	e.status, e.message = EmailIdle, ""
	fn := e.onChange
	e.mu.Unlock()

	e.client.CancelRequest(e.id)
	if changed && fn != nil {
		fn(EmailIdle, "")
	}
}

// Stop cancels a pending schedule and any in-flight request without
// changing the status.
func (e *EmailChecker) Stop() {
	e.mu.Lock()
	e.sched++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	e.mu.Unlock()
	e.client.CancelRequest(e.id)
}

// Check validates the email shape and asks the API whether it is free.  It
// blocks until the request settles and returns the status it computed.
func (e *EmailChecker) Check(ctx context.Context, email string) EmailStatus {
	return e.run(ctx, e.begin(), email)
}

// run performs the check for generation gen.  The email is trimmed the
// same way the form trims it before submit.
func (e *EmailChecker) run(ctx context.Context, gen uint64, email string) EmailStatus {
	email = strings.TrimSpace(email)
	if res := validation.ValidateField(emailField, email); !res.Success {
		metrics.EmailChecksTotal.WithLabelValues("invalid").Inc()
		e.set(gen, EmailIdle, "")
		return EmailIdle
	}

	e.set(gen, EmailChecking, "")
	e.client.CancelRequest(e.id)

	res, err := apiclient.Post[Availability](ctx, e.client, "/auth/check-email",
		map[string]string{"email": email}, apiclient.WithRequestID(e.id))
	if err != nil {
		e.log.Debugw("email check failed", "err", err)
		metrics.EmailChecksTotal.WithLabelValues("error").Inc()
		e.set(gen, EmailIdle, "")
		return EmailIdle
	}

	if res.Data.Available {
		metrics.EmailChecksTotal.WithLabelValues("available").Inc()
		e.set(gen, EmailAvailable, "")
		return EmailAvailable
	}
	metrics.EmailChecksTotal.WithLabelValues("unavailable").Inc()
	e.set(gen, EmailUnavailable, MsgEmailTaken)
	return EmailUnavailable
}

func (e *EmailChecker) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	return e.gen
}

// set applies a status when gen is still current.
func (e *EmailChecker) set(gen uint64, st EmailStatus, msg string) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.status, e.message = st, msg
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn(st, msg)
	}
}
