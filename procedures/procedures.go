// Package procedures drives the AWS console through a headless browser
// session. Selectors mirror the console pages as deployed; selector
// drift is fatal and surfaces at the invocation boundary.
package procedures

import (
	"context"
	"fmt"
	"time"

	"github.com/orgfoundry/account-controller/browser"
	"github.com/orgfoundry/account-controller/captcha"
	"github.com/orgfoundry/account-controller/common"
	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/secretmanager"
)

// ErrUnknownSignupStep reports a signup wizard landing neither on a
// known step nor on a success page. Recovery is operator replay; the
// orchestrator records the URL and stops.
type ErrUnknownSignupStep struct {
	URL string
}

func (e ErrUnknownSignupStep) Error() string {
	return fmt.Sprintf("unsure of location, send help! - %s", e.URL)
}

const defaultStepDelay = time.Second

type Library struct {
	loggerProvider logger.Provider
	sessions       browser.Factory
	diagnostics    *browser.Diagnostics
	secrets        secretmanager.ISecretsService
	solver         captcha.Solver
	gate           *captcha.Gate
	registry       connectflow.IRegistryStore
	cfg            *config.Config

	// stepDelay spaces UI actions out; console pages render
	// asynchronously and clicking too early hits detached nodes.
	stepDelay time.Duration
}

func NewLibrary(
	log logger.Provider,
	sessions browser.Factory,
	diagnostics *browser.Diagnostics,
	secrets secretmanager.ISecretsService,
	solver captcha.Solver,
	registry connectflow.IRegistryStore,
	cfg *config.Config,
) *Library {
	return &Library{
		loggerProvider: log,
		sessions:       sessions,
		diagnostics:    diagnostics,
		secrets:        secrets,
		solver:         solver,
		gate:           captcha.NewGate(),
		registry:       registry,
		cfg:            cfg,
		stepDelay:      defaultStepDelay,
	}
}

// WithSession opens a browser session, runs fn, captures a diagnostic
// screenshot on failure, and always closes the session.
func (l *Library) WithSession(ctx context.Context, fn func(ctx context.Context, d browser.Driver) error) error {
	d, err := l.sessions.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("opening browser session: %w", err)
	}

	defer d.Close(ctx)

	if err := fn(ctx, d); err != nil {
		l.diagnostics.Capture(ctx, d)
		return err
	}

	return nil
}

func (l *Library) pause(ctx context.Context, units int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(units) * l.stepDelay):
		return nil
	}
}

func (l *Library) signinHost() string {
	return fmt.Sprintf("https://%s.signin.aws.amazon.com", common.AccountID)
}

func (l *Library) regionalConsole(path string) string {
	return fmt.Sprintf("https://%s.console.aws.amazon.com%s", common.Region, path)
}
