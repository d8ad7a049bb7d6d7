package procedures

import (
	"context"
	"fmt"
	"strings"

	"github.com/orgfoundry/account-controller/browser"
	"github.com/orgfoundry/account-controller/ssoapp"
)

const ssoConsolePath = "/singlesignon/home"

// CreateSSOApp registers the portal as a custom SAML application and
// scrapes the descriptor the portal needs to consume responses.
func (l *Library) CreateSSOApp(ctx context.Context, d browser.Driver) (*ssoapp.Descriptor, error) {
	if err := d.Navigate(ctx, l.regionalConsole(ssoConsolePath+"#/applications/add")); err != nil {
		return nil, err
	}

	if err := d.WaitForSelector(ctx, "#add-custom-saml-application", browser.DefaultWaitTimeout); err != nil {
		return nil, fmt.Errorf("application catalog did not load: %w", err)
	}

	if err := d.Click(ctx, "#add-custom-saml-application"); err != nil {
		return nil, err
	}

	if err := d.Type(ctx, `input[name="displayName"]`, l.cfg.SSOManagerAppName); err != nil {
		return nil, err
	}

	if err := d.Type(ctx, `input[name="acsUrl"]`, l.cfg.APIGatewayEndpoint); err != nil {
		return nil, err
	}

	if err := d.Type(ctx, `input[name="samlAudience"]`, l.cfg.APIGatewayEndpoint); err != nil {
		return nil, err
	}

	if err := d.Click(ctx, `button[data-testid="save-application"]`); err != nil {
		return nil, err
	}

	if err := l.pause(ctx, 5); err != nil {
		return nil, err
	}

	signInURL, err := d.Text(ctx, `[data-testid="sso-sign-in-url"]`)
	if err != nil {
		return nil, err
	}

	signOutURL, err := d.Text(ctx, `[data-testid="sso-sign-out-url"]`)
	if err != nil {
		return nil, err
	}

	certificate, err := d.Text(ctx, `[data-testid="sso-certificate"]`)
	if err != nil {
		return nil, err
	}

	return &ssoapp.Descriptor{
		SignInURL:          strings.TrimSpace(signInURL),
		SignOutURL:         strings.TrimSpace(signOutURL),
		Certificate:        strings.TrimSpace(certificate),
		SSOManagerAppName:  l.cfg.SSOManagerAppName,
		APIGatewayEndpoint: l.cfg.APIGatewayEndpoint,
	}, nil
}

// DeleteSSOApp removes the portal application by its display name.
func (l *Library) DeleteSSOApp(ctx context.Context, d browser.Driver) error {
	if err := d.Navigate(ctx, l.regionalConsole(ssoConsolePath+"#/applications")); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, `input[type="search"]`, browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("application list did not load: %w", err)
	}

	if err := d.Type(ctx, `input[type="search"]`, l.cfg.SSOManagerAppName); err != nil {
		return err
	}

	if err := l.pause(ctx, 2); err != nil {
		return err
	}

	if ok, _ := d.Exists(ctx, `table > tbody > tr > td > input[type="checkbox"]`); !ok {
		// Already gone; deletion is idempotent.
		return nil
	}

	if err := d.Click(ctx, `table > tbody > tr > td > input[type="checkbox"]`); err != nil {
		return err
	}

	if err := d.Click(ctx, `button[data-testid="remove-application"]`); err != nil {
		return err
	}

	if err := d.Click(ctx, `button[data-testid="confirm-remove-application"]`); err != nil {
		return err
	}

	return l.pause(ctx, 3)
}

// GrantAccountAccess assigns the owner, and optionally the org-wide
// group, administrator access to the account. Search is by exact
// username, so rerunning the grant is safe.
func (l *Library) GrantAccountAccess(ctx context.Context, d browser.Driver, ownerGUID, accountID string) error {
	log := l.loggerProvider(ctx)

	if err := l.assignPrincipal(ctx, d, accountID, ownerGUID); err != nil {
		return err
	}

	if l.cfg.OrgGroupName != "" {
		if err := l.assignPrincipal(ctx, d, accountID, l.cfg.OrgGroupName); err != nil {
			return err
		}
	}

	log.Infof("granted administrator access on %s to %s", accountID, ownerGUID)

	return nil
}

func (l *Library) assignPrincipal(ctx context.Context, d browser.Driver, accountID, principal string) error {
	path := fmt.Sprintf("#/accounts/organization/%s/assign-users", accountID)

	if err := d.Navigate(ctx, l.regionalConsole(ssoConsolePath+path)); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, `input[type="search"]`, browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("assignment page did not load: %w", err)
	}

	if err := d.Type(ctx, `input[type="search"]`, principal); err != nil {
		return err
	}

	if err := l.pause(ctx, 2); err != nil {
		return err
	}

	if err := d.Click(ctx, `table > tbody > tr > td > input[type="checkbox"]`); err != nil {
		return err
	}

	if err := d.Click(ctx, `button[data-testid="assign-users-next"]`); err != nil {
		return err
	}

	if err := d.Click(ctx, `input[value="AdministratorAccess"]`); err != nil {
		return err
	}

	if err := d.Click(ctx, `button[data-testid="finish-assignment"]`); err != nil {
		return err
	}

	return l.pause(ctx, 3)
}
