// internal/apiclient/client.go
//
// Huelip – typed JSON client for the Huelip API.
//
// Context
//   Every call the CLI and the auth flows make to the backend goes through
//   Client.  It joins the configured base URL with a path, sends JSON, and
//   turns whatever happens into one of two shapes: a Response on 2xx, or an
//   *Error for everything else.  Callers never see a raw transport error.
//
// Workflow
//   •  Each call derives a context bounded by the configured timeout.
//   •  When the caller supplies WithRequestID, the cancel func is registered
//      under that id before the request is sent and released when it
//      settles, so CancelRequest can abort it from another goroutine.
//   •  The body is read in full, then classified:
//        2xx              → Response{Data: body.data, Message: body.message or "Success"}
//        other status     → *Error{status, body.message or "An error occurred", body.errors}
//        timeout / cancel → *Error{408, fixed message, []}
//        no connection    → *Error{0, fixed message, []}
//        anything else    → *Error{500, fixed message, []}
//
// Notes
//   •  There are no retries.  A failure surfaces once.
//   •  An empty 2xx body yields the zero Data value.  A body that is not
//      JSON is an unexpected failure.
//
//------------------------------------------------------------------------------

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/envelope"
	"github.com/huelip/huelip/internal/metrics"
)

// Defaults applied by New.
const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 30 * time.Second
)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// Config configures a Client.  Zero values fall back to the defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client issues JSON requests.  It is safe for concurrent use.  The request
// registry belongs to the instance, so two clients never cancel each other.
type Client struct {
	base    string
	timeout time.Duration
	hc      *http.Client
	log     *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]*inflight
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.S()
	}
	return &Client{
		base:    cfg.BaseURL,
		timeout: cfg.Timeout,
		hc:      cfg.HTTPClient,
		log:     cfg.Logger,
		pending: make(map[string]*inflight),
	}
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string { return c.base }

// Response is a successful call.
type Response[T any] struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Data       T      `json:"data"`
	Message    string `json:"message"`
}

/*──────────────────────────── options ────────────────────────────────────*/

// RequestOption tunes a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	id     string
	header http.Header
}

// WithRequestID registers the call under id so CancelRequest(id) can abort
// it while it is in flight.
func WithRequestID(id string) RequestOption {
	return func(o *requestOptions) { o.id = id }
}

// WithHeader adds one request header, e.g. a forwarded Cookie.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Add(key, value)
	}
}

/*──────────────────────────── verbs ──────────────────────────────────────*/

// Post sends body as JSON.  A nil body sends no payload.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response[json.RawMessage], error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

// Get never carries a body.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response[json.RawMessage], error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

// Post is the typed form of Client.Post.  Data is decoded into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	raw, err := c.Post(ctx, path, body, opts...)
	if err != nil {
		return nil, err
	}
	return decodeData[T](raw)
}

// Get is the typed form of Client.Get.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	raw, err := c.Get(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return decodeData[T](raw)
}

func decodeData[T any](raw *Response[json.RawMessage]) (*Response[T], error) {
	out := &Response[T]{Success: raw.Success, StatusCode: raw.StatusCode, Message: raw.Message}
	if len(raw.Data) == 0 || bytes.Equal(raw.Data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw.Data, &out.Data); err != nil {
		return nil, unexpectedError()
	}
	return out, nil
}

/*──────────────────────────── core ───────────────────────────────────────*/

// wireBody is the part of the envelope the client reads.  Fields stay raw
// so one oddly shaped member never hides the rest of the body.
type wireBody struct {
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// message returns the body message, or "" when it is absent or not a string.
func (wb wireBody) message() string {
	var m string
	if len(wb.Message) > 0 {
		_ = json.Unmarshal(wb.Message, &m)
	}
	return m
}

// issues decodes the errors member.  It returns nil when the member is
// absent, null, or not a list of issues.
func (wb wireBody) issues() []envelope.Issue {
	if isNull(wb.Errors) {
		return nil
	}
	var out []envelope.Issue
	if err := json.Unmarshal(wb.Errors, &out); err != nil {
		return nil
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts []RequestOption) (*Response[json.RawMessage], error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if o.id != "" {
		e := c.register(o.id, cancel)
		defer c.release(o.id, e)
	}

	resp, err := c.send(reqCtx, method, path, body, o.header)
	c.record(method, err)
	if err != nil {
		c.log.Debugw("api request failed", "method", method, "path", path, "status", err.StatusCode, "msg", err.Message)
		return nil, err
	}
	return resp, nil
}

// send performs the round trip and classifies the outcome.
func (c *Client) send(ctx context.Context, method, path string, body any, header http.Header) (*Response[json.RawMessage], *Error) {
	var payload io.Reader
	if method == http.MethodPost && body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, unexpectedError()
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, unexpectedError()
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	// Only a body that is not JSON at all is unexpected.  Valid JSON that is
	// not an object simply has no envelope members.
	var wb wireBody
	if len(bytes.TrimSpace(raw)) > 0 {
		if !json.Valid(raw) {
			return nil, unexpectedError()
		}
		_ = json.Unmarshal(raw, &wb)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := wb.message()
		if msg == "" {
			msg = MsgAPIFallback
		}
		ae := &Error{StatusCode: res.StatusCode, Message: msg, Errors: wb.issues()}
		if !isNull(wb.Errors) {
			ae.RawErrors = append(json.RawMessage(nil), wb.Errors...)
		}
		return nil, ae
	}

	msg := wb.message()
	if msg == "" {
		msg = MsgSuccess
	}
	return &Response[json.RawMessage]{
		Success:    true,
		StatusCode: res.StatusCode,
		Data:       wb.Data,
		Message:    msg,
	}, nil
}

// transportError maps a failed round trip.  Anything that ended because the
// request context was done, or that the transport flags as a timeout, is a
// timeout.  Other dial and I/O failures are connectivity problems.
func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutError()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutError()
	}
	return networkError()
}

// record bumps the request counter.
func (c *Client) record(method string, err *Error) {
	outcome := "success"
	if err != nil {
		switch {
		case err.StatusCode == StatusNetwork:
			outcome = "network"
		case err.StatusCode == StatusTimeout && len(err.Errors) == 0 && err.Message == MsgTimeout:
			outcome = "timeout"
		case err.StatusCode == StatusUnknown && err.Message == MsgUnexpected:
			outcome = "unexpected"
		default:
			outcome = "api_error"
		}
	}
	metrics.ClientRequestsTotal.WithLabelValues(method, outcome).Inc()
}
