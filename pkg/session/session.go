package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/browser"
	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
	"github.com/linkedin-outreach/pkg/stealth"
)

const (
	loginURL = "https://www.linkedin.com/login"
	feedURL  = "https://www.linkedin.com/feed/"
)

// Establisher drives login and optional step-up verification. It never
// lets a failure escape: every outcome, including errors, is folded into
// the returned Result after a diagnostic screenshot.
type Establisher struct {
	creds   *config.LinkedInConfig
	cfg     *config.SessionConfig
	sel     *config.Selectors
	surface browser.Surface
	timing  *stealth.TimingController
	log     *zap.SugaredLogger
}

type Result struct {
	Authenticated bool
	Message       string
	Err           error
}

func New(cfg *config.Config, s browser.Surface, timing *stealth.TimingController) *Establisher {
	return &Establisher{
		creds:   &cfg.LinkedIn,
		cfg:     &cfg.Session,
		sel:     &cfg.Selectors,
		surface: s,
		timing:  timing,
		log:     logger.WithComponent("session"),
	}
}

// Establish returns an authenticated or failed result, never an error
// past this boundary.
func (e *Establisher) Establish(ctx context.Context) *Result {
	res := e.establish(ctx)
	if !res.Authenticated {
		e.log.Warnf("Session not established: %s", res.Message)
		e.surface.CaptureFailure("session")
	}
	return res
}

func (e *Establisher) establish(ctx context.Context) *Result {
	e.log.Info("Establishing LinkedIn session...")

	if err := e.surface.Navigate(ctx, feedURL); err != nil {
		return failed("failed to reach feed", err)
	}

	// A persisted browser profile may still carry a live session.
	if e.markerPresent(ctx) {
		e.log.Info("Existing session reused")
		return &Result{Authenticated: true, Message: "session reused"}
	}

	e.log.Info("No live session, performing fresh login")
	return e.performLogin(ctx)
}

func (e *Establisher) performLogin(ctx context.Context) *Result {
	if err := e.surface.Navigate(ctx, loginURL); err != nil {
		return failed("failed to reach login page", err)
	}

	if _, err := e.surface.WaitFor(ctx, browser.Q(e.sel.LoginEmail), e.cfg.FieldTimeout); err != nil {
		return failed("login form did not appear", err)
	}

	e.log.Info("Entering credentials...")
	if err := e.surface.Type(ctx, browser.Q(e.sel.LoginEmail), e.creds.Email); err != nil {
		return failed("failed to enter email", err)
	}
	if err := e.timing.SleepThink(ctx); err != nil {
		return failed("interrupted", err)
	}
	if err := e.surface.Type(ctx, browser.Q(e.sel.LoginPassword), e.creds.Password); err != nil {
		return failed("failed to enter password", err)
	}
	if err := e.timing.SleepAction(ctx); err != nil {
		return failed("interrupted", err)
	}

	if err := e.surface.Click(ctx, browser.Q(e.sel.LoginSubmit)); err != nil {
		return failed("failed to submit login form", err)
	}
	if err := e.timing.SleepPageLoad(ctx); err != nil {
		return failed("interrupted", err)
	}

	// A step-up verification challenge needs out-of-band completion; grant
	// a fixed window before checking the outcome.
	if _, err := e.surface.WaitFor(ctx, browser.Q(e.sel.StepUpInput), e.cfg.MarkerTimeout); err == nil {
		e.log.Warnf("Verification challenge detected, waiting %s for manual completion", e.cfg.StepUpWait)
		if err := e.timing.Sleep(ctx, e.cfg.StepUpWait); err != nil {
			return failed("interrupted", err)
		}
	}

	// A wrong-credentials rejection keeps the login page up indefinitely;
	// this final probe is the only thing that catches it.
	if e.markerPresent(ctx) {
		e.log.Info("Login successful")
		return &Result{Authenticated: true, Message: "login successful"}
	}

	return failed("login did not reach an authenticated state", nil)
}

func (e *Establisher) markerPresent(ctx context.Context) bool {
	_, err := e.surface.WaitFor(ctx, browser.Q(e.sel.AuthenticatedMarker), e.cfg.MarkerTimeout)
	return err == nil
}

func failed(msg string, err error) *Result {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Result{Authenticated: false, Message: msg, Err: err}
}
