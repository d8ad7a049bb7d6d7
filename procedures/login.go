package procedures

import (
	"context"
	"fmt"

	"github.com/orgfoundry/account-controller/browser"
)

// Login signs the automation IAM user into the management account
// console. Credentials come from Secrets Manager at call time.
func (l *Library) Login(ctx context.Context, d browser.Driver) error {
	creds, err := l.secrets.GetCredentials(ctx, l.cfg.LoginSecretID)
	if err != nil {
		return err
	}

	if err := d.Navigate(ctx, l.signinHost()+"/console"); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, "#username", browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("sign-in form did not load: %w", err)
	}

	if err := d.Type(ctx, "#username", creds.Username); err != nil {
		return err
	}

	if err := d.Type(ctx, "#password", creds.Password); err != nil {
		return err
	}

	if err := d.Click(ctx, "#signin_button"); err != nil {
		return err
	}

	return l.pause(ctx, 5)
}
