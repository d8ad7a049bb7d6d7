package procedures

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/orgfoundry/account-controller/browser"
)

const (
	signupURL          = "https://portal.aws.amazon.com/billing/signup?client=organizations&enforcePI=True"
	accountStatusURL   = "https://console.aws.amazon.com/billing/rest/v1.0/account"
	billingAccountURL  = "https://console.aws.amazon.com/billing/home?#/account"
	suspendedIndicator = `"accountStatus":"Suspended"`

	stepPaymentInformation   = "/paymentinformation"
	stepIdentityVerification = "/identityverification"
	stepSupport              = "/support"
	stepConfirmation         = "/confirmation"

	// The phone call takes a while to place and read the code back.
	verificationCallWait = 20
)

// CompleteSignupAndClose walks whatever remains of the signup wizard
// for a signed-in root identity, then closes the account unless it is
// already suspended. Returns whether closure was actually performed.
func (l *Library) CompleteSignupAndClose(ctx context.Context, d browser.Driver) (bool, error) {
	if err := d.Navigate(ctx, signupURL); err != nil {
		return false, err
	}

	if err := l.pause(ctx, 8); err != nil {
		return false, err
	}

	step, err := l.signupStep(ctx, d)
	if err != nil {
		return false, err
	}

	if step == stepPaymentInformation {
		if err := l.enterPaymentInformation(ctx, d); err != nil {
			return false, err
		}

		if step, err = l.signupStep(ctx, d); err != nil {
			return false, err
		}
	}

	if step == stepIdentityVerification {
		if err := l.verifyIdentity(ctx, d); err != nil {
			return false, err
		}

		if step, err = l.signupStep(ctx, d); err != nil {
			return false, err
		}
	}

	if step != stepSupport && step != stepConfirmation {
		pageURL, _ := d.URL(ctx)
		return false, ErrUnknownSignupStep{URL: pageURL}
	}

	return l.closeAccount(ctx, d)
}

func (l *Library) signupStep(ctx context.Context, d browser.Driver) (string, error) {
	pageURL, err := d.URL(ctx)
	if err != nil {
		return "", err
	}

	if i := strings.LastIndex(pageURL, "#"); i >= 0 {
		return pageURL[i+1:], nil
	}

	return "", nil
}

func (l *Library) enterPaymentInformation(ctx context.Context, d browser.Driver) error {
	creds, err := l.secrets.GetCredentials(ctx, l.cfg.LoginSecretID)
	if err != nil {
		return err
	}

	if err := d.Type(ctx, "#credit-card-number", creds.CCNumber); err != nil {
		return err
	}

	month, err := strconv.Atoi(creds.CCMonth)
	if err != nil {
		return fmt.Errorf("bad card month %q: %w", creds.CCMonth, err)
	}

	// The month dropdown is zero-indexed, the year one is offset from
	// the current year.
	if err := d.SelectOption(ctx, "#expirationMonth", strconv.Itoa(month-1)); err != nil {
		return err
	}

	year, err := strconv.Atoi(creds.CCYear)
	if err != nil {
		return fmt.Errorf("bad card year %q: %w", creds.CCYear, err)
	}

	if err := d.SelectOption(ctx, "select[name='expirationYear']", strconv.Itoa(year-time.Now().Year())); err != nil {
		return err
	}

	if err := d.Type(ctx, "#accountHolderName", creds.CCName); err != nil {
		return err
	}

	if err := d.Click(ctx, ".form-submit-click-box > button"); err != nil {
		return err
	}

	return l.pause(ctx, 8)
}

// verifyIdentity completes phone verification: request a call to the
// claimed number, pass the CAPTCHA, publish the on-screen code for the
// contact flow to read back, then confirm.
func (l *Library) verifyIdentity(ctx context.Context, d browser.Driver) error {
	log := l.loggerProvider(ctx)

	reg, err := l.registry.Load(ctx)
	if err != nil {
		return err
	}

	number := strings.TrimPrefix(reg.PhoneNumber, "+1")

	if err := d.Type(ctx, "#phoneNumber", number); err != nil {
		return err
	}

	err = l.gate.Do(ctx, func(ctx context.Context) error {
		if err := l.solveAndSubmit(ctx, d, "#imageCaptcha", "#guess", "#btnCall"); err != nil {
			return err
		}

		return d.WaitForSelector(ctx, ".phone-pin-number", 5*time.Second)
	})
	if err != nil {
		return err
	}

	code, err := d.Text(ctx, ".phone-pin-number > span")
	if err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	log.Infof("publishing verification code for voice playback")

	if err := l.registry.SetCode(ctx, code); err != nil {
		return err
	}

	if err := l.pause(ctx, verificationCallWait); err != nil {
		return err
	}

	if err := d.Click(ctx, "#verification-complete-button"); err != nil {
		return err
	}

	return l.pause(ctx, 3)
}

// closeAccount checks the suspension status and clicks through account
// closure when the account is still active.
func (l *Library) closeAccount(ctx context.Context, d browser.Driver) (bool, error) {
	log := l.loggerProvider(ctx)

	if err := d.Navigate(ctx, accountStatusURL); err != nil {
		return false, err
	}

	if err := l.pause(ctx, 3); err != nil {
		return false, err
	}

	status, err := d.PageContent(ctx)
	if err != nil {
		return false, err
	}

	if strings.Contains(status, suspendedIndicator) {
		log.Info("account already suspended, skipping closure")
		return false, nil
	}

	if err := d.Navigate(ctx, billingAccountURL); err != nil {
		return false, err
	}

	if err := l.pause(ctx, 8); err != nil {
		return false, err
	}

	if err := d.ClickAll(ctx, ".close-account-checkbox > input"); err != nil {
		return false, err
	}

	if err := d.Click(ctx, ".btn-danger"); err != nil {
		return false, err
	}

	if err := d.Click(ctx, ".modal-footer > button.btn-danger"); err != nil {
		return false, err
	}

	log.Info("account closure confirmed")

	return true, l.pause(ctx, 5)
}
