// cmd/huelip/main.go
//
// Huelip – command-line client for the Huelip API.
//
// Usage
// -----
//
//	huelip [-v] signup
//	huelip [-v] login
//	huelip [-v] logout
//	huelip [-v] session
//	huelip [-v] check-email <email>
//
// Context
// -------
// signup and login prompt the auth forms field by field and keep the
// session token in client.session_file (default: the user config dir).
// session prints the signed-in user as JSON; logout ends the session on
// the server and forgets the token.
//
// Configuration comes from the same loader as the API server, so
// HUELIP_CLIENT__API_URL points the CLI at another backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/apiclient"
	"github.com/huelip/huelip/internal/authflow"
	"github.com/huelip/huelip/internal/config"
	"github.com/huelip/huelip/internal/logger"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: huelip [-v] <command> [args]

commands:
  signup               create an account and sign in
  login                sign in
  logout               sign out and forget the session
  session              show the signed-in user
  check-email <email>  ask whether an email is free
`)
	flag.PrintDefaults()
}

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, flag.Args(), *verbose, os.Stdout, surveyPrompter{errOut: os.Stderr})
	switch {
	case err == nil:
	case errors.Is(err, errAborted), errors.Is(err, context.Canceled):
		os.Exit(130)
	default:
		fmt.Fprintln(os.Stderr, "huelip:", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	client *apiclient.Client
	log    *zap.SugaredLogger
	out    io.Writer
	p      prompter
	token  string // session file path
	wait   time.Duration
}

func run(ctx context.Context, args []string, verbose bool, out io.Writer, p prompter) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.NewConsole(level)

	if err := authflow.LoadForms(cfg.Forms.Dirs...); err != nil {
		return err
	}
	path, err := tokenPath(cfg.Client.SessionFile)
	if err != nil {
		return err
	}

	a := &app{
		client: apiclient.New(apiclient.Config{
			BaseURL: cfg.Client.APIURL,
			Timeout: cfg.Client.Timeout(),
			Logger:  log,
		}),
		log:   log,
		out:   out,
		p:     p,
		token: path,
		wait:  cfg.Client.Timeout() + authflow.DefaultEmailCheckDelay,
	}

	switch args[0] {
	case "signup":
		return a.signup(ctx)
	case "login":
		return a.login(ctx)
	case "logout":
		return a.logout(ctx)
	case "session":
		return a.session(ctx)
	case "check-email":
		if len(args) != 2 {
			return errors.New("usage: huelip check-email <email>")
		}
		return a.checkEmail(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

/*──────────────────────────── commands ─────────────────────────────────────*/

func (a *app) signup(ctx context.Context) error {
	s, err := authflow.NewSignup(a.client, a.log)
	if err != nil {
		return err
	}
	defer s.Close()

	statuses := make(chan authflow.EmailStatus, 8)
	s.Checker().OnChange(func(st authflow.EmailStatus, _ string) {
		select {
		case statuses <- st:
		default:
		}
	})

	h := hooks{
		set: func(name string, v any) {
			if name == "email" {
				str, _ := v.(string)
				s.SetEmail(str)
				return
			}
			s.Form().SetField(name, v)
		},
		blur: func(ctx context.Context, name string) string {
			if name != "email" {
				s.Form().Blur(name)
				return s.Form().DisplayError(name)
			}
			drain(statuses)
			s.BlurEmail(ctx)
			if msg := s.Form().DisplayError("email"); msg != "" {
				return msg
			}
			if st := a.awaitCheck(ctx, statuses); st == authflow.EmailUnavailable {
				_, msg := s.Checker().Status()
				return msg
			}
			return ""
		},
	}

	done := func() bool { return s.Result() != nil }
	if err := runForm(ctx, a.p, s.Definition(), s.Form(), h, done); err != nil {
		return err
	}
	return a.signedIn(s.Result(), "Account created")
}

// awaitCheck waits for the debounced availability check to settle.
func (a *app) awaitCheck(ctx context.Context, statuses <-chan authflow.EmailStatus) authflow.EmailStatus {
	timeout := time.NewTimer(a.wait)
	defer timeout.Stop()
	for {
		select {
		case st := <-statuses:
			if st != authflow.EmailChecking {
				return st
			}
		case <-timeout.C:
			return authflow.EmailIdle
		case <-ctx.Done():
			return authflow.EmailIdle
		}
	}
}

// drain discards statuses left over from earlier edits.
func drain(ch <-chan authflow.EmailStatus) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (a *app) login(ctx context.Context) error {
	l, err := authflow.NewLogin(a.client, a.log)
	if err != nil {
		return err
	}
	done := func() bool { return l.Result() != nil }
	if err := runForm(ctx, a.p, l.Definition(), l.Form(), hooks{}, done); err != nil {
		return err
	}
	return a.signedIn(l.Result(), "Signed in")
}

func (a *app) signedIn(res *authflow.AuthResult, verb string) error {
	if err := saveToken(a.token, res.Session.Token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(a.out, "%s as %s <%s>\n", verb, res.User.Name, res.User.Email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	tok, err := loadToken(a.token)
	if err != nil {
		return err
	}
	if err := authflow.Logout(ctx, a.client, tok); err != nil {
		a.log.Debugw("server logout failed", "err", err)
	}
	if err := clearToken(a.token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) session(ctx context.Context) error {
	tok, err := loadToken(a.token)
	if err != nil {
		return err
	}
	cur := authflow.CurrentSession(ctx, a.client, tok)
	if cur == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(cur)
}

func (a *app) checkEmail(ctx context.Context, email string) error {
	c := authflow.NewEmailChecker(a.client, 0, a.log)
	defer c.Stop()
	st := c.Check(ctx, email)
	switch st {
	case authflow.EmailAvailable:
		fmt.Fprintf(a.out, "%s is available\n", email)
	case authflow.EmailUnavailable:
		_, msg := c.Status()
		fmt.Fprintln(a.out, msg)
	default:
		return fmt.Errorf("could not check %q", email)
	}
	return nil
}
