package procedures

import (
	"context"
	"fmt"
	"net/url"

	"github.com/orgfoundry/account-controller/browser"
)

const consoleHome = "https://console.aws.amazon.com/console/home"

// TriggerReset walks the root sign-in page for the account email and
// requests a password recovery email. Both CAPTCHA gates are bounded.
func (l *Library) TriggerReset(ctx context.Context, d browser.Driver, email string) error {
	log := l.loggerProvider(ctx)

	if err := d.Navigate(ctx, consoleHome); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, "#resolving_input", browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("root sign-in page did not load: %w", err)
	}

	if err := d.Type(ctx, "#resolving_input", email); err != nil {
		return err
	}

	if err := d.Click(ctx, "#next_button"); err != nil {
		return err
	}

	if err := l.pause(ctx, 5); err != nil {
		return err
	}

	err := l.gate.Do(ctx, func(ctx context.Context) error {
		if err := l.solveAndSubmit(ctx, d, "#captcha_image", "#captchaGuess", "#submit_captcha"); err != nil {
			return err
		}

		return d.Click(ctx, "#root_forgot_password_link")
	})
	if err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, "#password_recovery_captcha_image", browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("password recovery page did not load: %w", err)
	}

	err = l.gate.Do(ctx, func(ctx context.Context) error {
		return l.solveAndSubmit(ctx, d, "#password_recovery_captcha_image", "#password_recovery_captcha_guess", "#password_recovery_ok_button")
	})
	if err != nil {
		return err
	}

	log.Infof("requested password reset email for %s", email)

	return l.pause(ctx, 2)
}

// CompleteReset follows an emailed reset link and sets the managed
// password. The caller has already validated the link host.
func (l *Library) CompleteReset(ctx context.Context, d browser.Driver, link string) error {
	if _, err := url.Parse(link); err != nil {
		return fmt.Errorf("bad reset link: %w", err)
	}

	creds, err := l.secrets.GetCredentials(ctx, l.cfg.LoginSecretID)
	if err != nil {
		return err
	}

	if err := d.Navigate(ctx, link); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, "#new_password", browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("reset form did not load: %w", err)
	}

	if err := d.Type(ctx, "#new_password", creds.Password); err != nil {
		return err
	}

	if err := d.Type(ctx, "#confirm_password", creds.Password); err != nil {
		return err
	}

	if err := d.Click(ctx, "#reset_password_submit"); err != nil {
		return err
	}

	l.loggerProvider(ctx).Info("completed resetpassword link verification")

	return l.pause(ctx, 5)
}

// RootSignIn authenticates as the account root identity using the
// managed password. The CAPTCHA gate here is best effort; the console
// does not always challenge.
func (l *Library) RootSignIn(ctx context.Context, d browser.Driver, email string) error {
	creds, err := l.secrets.GetCredentials(ctx, l.cfg.LoginSecretID)
	if err != nil {
		return err
	}

	if err := d.Navigate(ctx, consoleHome); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, "#resolving_input", browser.DefaultWaitTimeout); err != nil {
		return fmt.Errorf("root sign-in page did not load: %w", err)
	}

	if err := d.Type(ctx, "#resolving_input", email); err != nil {
		return err
	}

	if err := d.Click(ctx, "#next_button"); err != nil {
		return err
	}

	if err := l.pause(ctx, 5); err != nil {
		return err
	}

	challenged, err := d.Exists(ctx, "#captcha_image")
	if err != nil {
		return err
	}

	if challenged {
		err := l.gate.Do(ctx, func(ctx context.Context) error {
			return l.solveAndSubmit(ctx, d, "#captcha_image", "#captchaGuess", "#submit_captcha")
		})
		if err != nil {
			return err
		}
	}

	if err := d.Type(ctx, "#password", creds.Password); err != nil {
		return err
	}

	if err := d.Click(ctx, "#signin_button"); err != nil {
		return err
	}

	return l.pause(ctx, 8)
}

// solveAndSubmit fetches the challenge image URL from imageSel, asks
// the solver for a guess, types it into guessSel and clicks submitSel.
func (l *Library) solveAndSubmit(ctx context.Context, d browser.Driver, imageSel, guessSel, submitSel string) error {
	imageURL, err := d.Attribute(ctx, imageSel, "src")
	if err != nil {
		return err
	}

	guess, err := l.solver.Solve(ctx, imageURL)
	if err != nil {
		return err
	}

	if err := d.Type(ctx, guessSel, guess); err != nil {
		return err
	}

	if err := d.Click(ctx, submitSel); err != nil {
		return err
	}

	return l.pause(ctx, 5)
}
