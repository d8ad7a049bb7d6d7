package procedures

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/orgfoundry/account-controller/browser"
	"github.com/orgfoundry/account-controller/connectflow"
)

const (
	// Instance activation is slow; the home page is reloaded until the
	// login link resolves to the instance's own domain.
	openMaxAttempts = 20
	openRetryWait   = 20

	// The prompt upload page intermittently renders without the file
	// box and has to be reloaded.
	promptPageMaxLoads = 10

	onboardingSuccessTimeout = 3 * time.Minute
)

var ErrInstanceNeverOpened = fmt.Errorf("connect instance did not become reachable")

// CreateInstance walks the telephony onboarding wizard with the given
// directory alias, skipping every optional step.
func (l *Library) CreateInstance(ctx context.Context, d browser.Driver, domain string) error {
	if err := d.Navigate(ctx, l.regionalConsole("/connect/onboarding")); err != nil {
		return err
	}

	if err := l.pause(ctx, 5); err != nil {
		return err
	}

	if err := d.Type(ctx, `input[ng-model="ad.directoryAlias"]`, domain); err != nil {
		return err
	}

	if err := d.Click(ctx, "button.awsui-button-variant-primary"); err != nil {
		return err
	}

	if err := d.WaitForSelector(ctx, "label.vertical-padding.option-label", browser.DefaultWaitTimeout); err != nil {
		return err
	}

	// The last radio option skips identity management.
	if _, err := d.Evaluate(ctx, `var o=document.querySelectorAll('label.vertical-padding.option-label');o[o.length-1].click();`); err != nil {
		return err
	}

	for i := 0; i < 5; i++ {
		if err := d.Click(ctx, `button[type="submit"].awsui-button-variant-primary`); err != nil {
			return err
		}

		if err := l.pause(ctx, 1); err != nil {
			return err
		}
	}

	if err := d.WaitForSelector(ctx, ".onboarding-success-message", onboardingSuccessTimeout); err != nil {
		return fmt.Errorf("onboarding did not complete: %w", err)
	}

	return l.pause(ctx, 3)
}

// OpenInstance follows the instance login link until the session lands
// on the instance's own host.
func (l *Library) OpenInstance(ctx context.Context, d browser.Driver, domain string) error {
	log := l.loggerProvider(ctx)

	for attempt := 1; attempt <= openMaxAttempts; attempt++ {
		if err := l.openOnce(ctx, d); err != nil {
			return err
		}

		host, err := currentHost(ctx, d)
		if err != nil {
			return err
		}

		if strings.Contains(host, "awsapps") {
			return nil
		}

		log.Debugf("instance %s not ready yet, attempt %d", domain, attempt)

		if err := l.pause(ctx, openRetryWait); err != nil {
			return err
		}
	}

	return ErrInstanceNeverOpened
}

func (l *Library) openOnce(ctx context.Context, d browser.Driver) error {
	if err := d.Navigate(ctx, l.regionalConsole("/connect/home")); err != nil {
		return err
	}

	if err := l.pause(ctx, 8); err != nil {
		return err
	}

	if err := d.Click(ctx, "table > tbody > tr > td:nth-child(1) > div > a"); err != nil {
		return err
	}

	if err := l.pause(ctx, 5); err != nil {
		return err
	}

	loginLink, err := d.Attribute(ctx, `a[ng-show="org.organizationId"]`, "href")
	if err != nil {
		return err
	}

	if err := d.Navigate(ctx, l.regionalConsole(loginLink)); err != nil {
		return err
	}

	return l.pause(ctx, 8)
}

// DeleteInstance removes the telephony instance, confirming with its
// directory alias.
func (l *Library) DeleteInstance(ctx context.Context, d browser.Driver, domain string) error {
	if err := d.Navigate(ctx, l.regionalConsole("/connect/home")); err != nil {
		return err
	}

	if err := l.pause(ctx, 8); err != nil {
		return err
	}

	if err := d.Click(ctx, "awsui-checkbox > label > input"); err != nil {
		return err
	}

	if _, err := d.Evaluate(ctx, `document.querySelectorAll('button[type="submit"]')[1].click();`); err != nil {
		return err
	}

	if err := d.Type(ctx, ".awsui-textfield-type-text", domain); err != nil {
		return err
	}

	if err := d.Click(ctx, `awsui-button[click="confirmDeleteOrg()"] > button`); err != nil {
		return err
	}

	return l.pause(ctx, 5)
}

// ClaimNumber registers a US DID number and attaches it to the
// verification flow. Returns the claimed number.
func (l *Library) ClaimNumber(ctx context.Context, d browser.Driver) (string, error) {
	host, err := currentHost(ctx, d)
	if err != nil {
		return "", err
	}

	if err := d.Navigate(ctx, "https://"+host+"/connect/numbers/claim"); err != nil {
		return "", err
	}

	if err := l.pause(ctx, 8); err != nil {
		return "", err
	}

	if err := d.Click(ctx, `li[heading="DID (Direct Inward Dialing)"] > a`); err != nil {
		return "", err
	}

	if err := d.Click(ctx, "div.active > span > div.country-code-real-input"); err != nil {
		return "", err
	}

	if err := d.Click(ctx, "div.active > span.country-code-input.ng-scope > ul > li > .us-flag"); err != nil {
		return "", err
	}

	if err := l.pause(ctx, 5); err != nil {
		return "", err
	}

	if err := d.Click(ctx, "div.active > awsui-radio-group > div > span > div:nth-child(1) > awsui-radio-button > label.awsui-radio-button-wrapper-label > div"); err != nil {
		return "", err
	}

	number, err := d.Text(ctx, "div.active > awsui-radio-group > div > span > div:nth-child(1) > awsui-radio-button > label.awsui-radio-button-checked.awsui-radio-button-label > div > span > div")
	if err != nil {
		return "", err
	}

	// A toll disclaimer sometimes blocks the form.
	if ok, _ := d.Exists(ctx, "div.tab-pane.ng-scope.active > div.alert.alert-warning.ng-scope > a"); ok {
		if err := d.Click(ctx, "div.tab-pane.ng-scope.active > div.alert.alert-warning.ng-scope > a"); err != nil {
			return "", err
		}
	}

	if err := d.Click(ctx, "#s2id_select-width > a"); err != nil {
		return "", err
	}

	if err := l.pause(ctx, 2); err != nil {
		return "", err
	}

	if err := d.Type(ctx, "#select2-drop > div > input", l.cfg.FlowName+"\n"); err != nil {
		return "", err
	}

	if err := d.Click(ctx, `awsui-button[text="Save"] > button`); err != nil {
		return "", err
	}

	if err := l.pause(ctx, 5); err != nil {
		return "", err
	}

	return normalizePhoneNumber(number), nil
}

// UploadPrompts uploads the silence and digit recordings, returning
// prompt IDs keyed by file name.
func (l *Library) UploadPrompts(ctx context.Context, d browser.Driver) (map[string]string, error) {
	host, err := currentHost(ctx, d)
	if err != nil {
		return nil, err
	}

	files := append([]string{connectflow.SilencePromptName}, connectflow.DigitPromptNames[:]...)
	ids := make(map[string]string, len(files))

	for _, name := range files {
		id, err := l.uploadPrompt(ctx, d, host, name)
		if err != nil {
			return nil, fmt.Errorf("uploading prompt %s: %w", name, err)
		}

		ids[name] = id
	}

	return ids, nil
}

func (l *Library) uploadPrompt(ctx context.Context, d browser.Driver, host, name string) (string, error) {
	log := l.loggerProvider(ctx)

	loaded := false

	for attempt := 1; attempt <= promptPageMaxLoads; attempt++ {
		if err := d.Navigate(ctx, "https://"+host+"/connect/prompts/create"); err != nil {
			return "", err
		}

		if err := l.pause(ctx, 5); err != nil {
			return "", err
		}

		ok, err := d.Exists(ctx, "#uploadFileBox")
		if err != nil {
			return "", err
		}

		if ok {
			loaded = true
			break
		}

		log.Debugf("prompt upload page incomplete, attempt %d", attempt)
	}

	if !loaded {
		return "", fmt.Errorf("prompt upload page never rendered: %w", browser.ErrSelectorNotFound)
	}

	if err := d.UploadFile(ctx, "#uploadFileBox", filepath.Join(l.cfg.PromptsDir, name)); err != nil {
		return "", err
	}

	if err := d.Type(ctx, "#name", name); err != nil {
		return "", err
	}

	if err := d.Click(ctx, "#lily-save-resource-button"); err != nil {
		return "", err
	}

	if err := l.pause(ctx, 8); err != nil {
		return "", err
	}

	return d.Text(ctx, "#collapsePrompt0 > div > div:nth-child(2) > table > tbody > tr > td")
}

// ImportFlow imports and publishes the verification flow document
// through the flow designer.
func (l *Library) ImportFlow(ctx context.Context, d browser.Driver, flowJSON string) error {
	host, err := currentHost(ctx, d)
	if err != nil {
		return err
	}

	loaded := false

	for attempt := 1; attempt <= promptPageMaxLoads; attempt++ {
		if err := d.Navigate(ctx, "https://"+host+"/connect/contact-flows/create?type=contactFlow"); err != nil {
			return err
		}

		if err := l.pause(ctx, 5); err != nil {
			return err
		}

		ok, err := d.Exists(ctx, "#angularContainer")
		if err != nil {
			return err
		}

		if ok {
			loaded = true
			break
		}
	}

	if !loaded {
		return fmt.Errorf("flow designer never rendered: %w", browser.ErrSelectorNotFound)
	}

	if err := d.Click(ctx, "#can-edit-contact-flow > div > awsui-button > button"); err != nil {
		return err
	}

	if err := d.Click(ctx, `li[ng-if="cfImportExport"]`); err != nil {
		return err
	}

	// The native file input rejects programmatic uploads here; hand the
	// document straight to the designer's import handler instead.
	script := fmt.Sprintf(
		`angular.element(document.getElementById('import-cf-file')).scope().importContactFlow(new Blob([%q], {type: "application/json"}));`,
		flowJSON,
	)

	if _, err := d.Evaluate(ctx, script); err != nil {
		return err
	}

	if err := l.pause(ctx, 5); err != nil {
		return err
	}

	if err := d.Click(ctx, ".header-button"); err != nil {
		return err
	}

	if err := l.pause(ctx, 2); err != nil {
		return err
	}

	if err := d.Click(ctx, `awsui-button[text="Publish"] > button`); err != nil {
		return err
	}

	return l.pause(ctx, 8)
}

func currentHost(ctx context.Context, d browser.Driver) (string, error) {
	pageURL, err := d.URL(ctx)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("bad page url %q: %w", pageURL, err)
	}

	return u.Host, nil
}

func normalizePhoneNumber(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}

		return r
	}, strings.TrimSpace(raw))
}
