package orchestrator

import (
	"context"

	"github.com/orgfoundry/account-controller/browser"
	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/procedures"
	"github.com/orgfoundry/account-controller/ssoapp"
)

// ConsoleAutomation is the orchestrator's view of the browser
// procedures: one call per business operation, session handling inside.
//
//go:generate mockery --name ConsoleAutomation --output ./mocks
type ConsoleAutomation interface {
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, link, email string, closeAfter bool) (bool, error)
	GrantAccess(ctx context.Context, ownerGUID, accountID string) error
	SetupTelephony(ctx context.Context, domain string) (*connectflow.Registry, error)
	TeardownTelephony(ctx context.Context, domain string) error
	SetupSSOApp(ctx context.Context) (*ssoapp.Descriptor, error)
	TeardownSSOApp(ctx context.Context) error
}

type Console struct {
	loggerProvider logger.Provider
	lib            *procedures.Library
	cfg            *config.Config
}

func NewConsole(log logger.Provider, lib *procedures.Library, cfg *config.Config) *Console {
	return &Console{loggerProvider: log, lib: lib, cfg: cfg}
}

func (c *Console) RequestPasswordReset(ctx context.Context, email string) error {
	return c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		return c.lib.TriggerReset(ctx, d, email)
	})
}

// CompletePasswordReset follows the emailed link and, when closeAfter
// is set, continues straight into root sign-in, signup completion and
// account closure within the same session.
func (c *Console) CompletePasswordReset(ctx context.Context, link, email string, closeAfter bool) (bool, error) {
	closed := false

	err := c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		if err := c.lib.CompleteReset(ctx, d, link); err != nil {
			return err
		}

		if !closeAfter {
			return nil
		}

		if err := c.lib.RootSignIn(ctx, d, email); err != nil {
			return err
		}

		var err error

		closed, err = c.lib.CompleteSignupAndClose(ctx, d)

		return err
	})

	return closed, err
}

func (c *Console) GrantAccess(ctx context.Context, ownerGUID, accountID string) error {
	return c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		if err := c.lib.Login(ctx, d); err != nil {
			return err
		}

		return c.lib.GrantAccountAccess(ctx, d, ownerGUID, accountID)
	})
}

// SetupTelephony builds the whole voice stack: instance, prompts, flow,
// number. The returned registry is not yet persisted.
func (c *Console) SetupTelephony(ctx context.Context, domain string) (*connectflow.Registry, error) {
	var reg *connectflow.Registry

	err := c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		if err := c.lib.Login(ctx, d); err != nil {
			return err
		}

		if err := c.lib.CreateInstance(ctx, d, domain); err != nil {
			return err
		}

		if err := c.lib.OpenInstance(ctx, d, domain); err != nil {
			return err
		}

		prompts, err := c.lib.UploadPrompts(ctx, d)
		if err != nil {
			return err
		}

		doc := connectflow.BuildVerificationFlow(c.cfg.TargetFunctionArn, prompts[connectflow.SilencePromptName])

		flowJSON, err := doc.JSON()
		if err != nil {
			return err
		}

		if err := c.lib.ImportFlow(ctx, d, flowJSON); err != nil {
			return err
		}

		number, err := c.lib.ClaimNumber(ctx, d)
		if err != nil {
			return err
		}

		reg = &connectflow.Registry{PhoneNumber: number}

		for i, name := range connectflow.DigitPromptNames {
			reg.Prompts[i] = prompts[name]
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return reg, nil
}

func (c *Console) TeardownTelephony(ctx context.Context, domain string) error {
	return c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		if err := c.lib.Login(ctx, d); err != nil {
			return err
		}

		return c.lib.DeleteInstance(ctx, d, domain)
	})
}

func (c *Console) SetupSSOApp(ctx context.Context) (*ssoapp.Descriptor, error) {
	var descriptor *ssoapp.Descriptor

	err := c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		if err := c.lib.Login(ctx, d); err != nil {
			return err
		}

		var err error

		descriptor, err = c.lib.CreateSSOApp(ctx, d)

		return err
	})
	if err != nil {
		return nil, err
	}

	return descriptor, nil
}

func (c *Console) TeardownSSOApp(ctx context.Context) error {
	return c.lib.WithSession(ctx, func(ctx context.Context, d browser.Driver) error {
		if err := c.lib.Login(ctx, d); err != nil {
			return err
		}

		return c.lib.DeleteSSOApp(ctx, d)
	})
}
