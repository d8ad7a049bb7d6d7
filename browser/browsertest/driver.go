// Package browsertest provides a scriptable in-memory Driver for
// exercising procedures without a real browser session.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orgfoundry/account-controller/browser"
)

// Call records one interaction with the fake driver.
type Call struct {
	Op       string
	Selector string
	Value    string
}

// Fake implements browser.Driver against scripted page state. Selectors
// listed in Missing fail lookups; Texts/Attributes/Evaluations feed the
// read operations; URLs is consumed one entry per Navigate, after which
// URL reports the most recent entry.
type Fake struct {
	mu sync.Mutex

	Missing     map[string]bool
	Texts       map[string]string
	Attributes  map[string]string
	Evaluations map[string]string
	Content     string

	// CurrentURL tracks the page location; Navigate overwrites it unless
	// Redirects maps the navigated URL somewhere else. URLQueue, when
	// non-empty, is consumed one entry per URL call to script page
	// transitions that happen without a navigation.
	CurrentURL string
	Redirects  map[string]string
	URLQueue   []string

	Calls  []Call
	Closed bool

	// FailOn makes the named op/selector pair return an error.
	FailOn map[string]error
}

func New() *Fake {
	return &Fake{
		Missing:     map[string]bool{},
		Texts:       map[string]string{},
		Attributes:  map[string]string{},
		Evaluations: map[string]string{},
		Redirects:   map[string]string{},
		FailOn:      map[string]error{},
	}
}

func (f *Fake) record(op, selector, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, Call{Op: op, Selector: selector, Value: value})
}

func (f *Fake) failure(op, selector string) error {
	if err, ok := f.FailOn[op+" "+selector]; ok {
		return err
	}

	return nil
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.record("navigate", url, "")

	if err := f.failure("navigate", url); err != nil {
		return err
	}

	if to, ok := f.Redirects[url]; ok {
		f.CurrentURL = to
		return nil
	}

	f.CurrentURL = url

	return nil
}

func (f *Fake) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	f.record("wait", selector, "")

	if f.Missing[selector] {
		return fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}

	return f.failure("wait", selector)
}

func (f *Fake) Exists(ctx context.Context, selector string) (bool, error) {
	f.record("exists", selector, "")
	return !f.Missing[selector], nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	f.record("click", selector, "")

	if f.Missing[selector] {
		return fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}

	return f.failure("click", selector)
}

func (f *Fake) ClickAll(ctx context.Context, selector string) error {
	f.record("clickall", selector, "")
	return f.failure("clickall", selector)
}

func (f *Fake) Type(ctx context.Context, selector, text string) error {
	f.record("type", selector, text)

	if f.Missing[selector] {
		return fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}

	return f.failure("type", selector)
}

func (f *Fake) SelectOption(ctx context.Context, selector, value string) error {
	f.record("select", selector, value)
	return f.failure("select", selector)
}

func (f *Fake) Text(ctx context.Context, selector string) (string, error) {
	f.record("text", selector, "")

	if f.Missing[selector] {
		return "", fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}

	return f.Texts[selector], nil
}

func (f *Fake) Attribute(ctx context.Context, selector, name string) (string, error) {
	f.record("attribute", selector, name)

	if f.Missing[selector] {
		return "", fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}

	return f.Attributes[selector+"/"+name], nil
}

func (f *Fake) Evaluate(ctx context.Context, script string) (string, error) {
	f.record("evaluate", script, "")
	return f.Evaluations[script], nil
}

func (f *Fake) UploadFile(ctx context.Context, selector, path string) error {
	f.record("upload", selector, path)

	if f.Missing[selector] {
		return fmt.Errorf("%w: %s", browser.ErrSelectorNotFound, selector)
	}

	return f.failure("upload", selector)
}

func (f *Fake) PageContent(ctx context.Context) (string, error) {
	f.record("content", "", "")
	return f.Content, nil
}

func (f *Fake) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.URLQueue) > 0 {
		f.CurrentURL = f.URLQueue[0]
		f.URLQueue = f.URLQueue[1:]
	}

	return f.CurrentURL, nil
}

func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	f.record("screenshot", "", "")
	return []byte("png"), nil
}

func (f *Fake) Close(ctx context.Context) error {
	f.Closed = true
	return nil
}

// TypedInto returns everything typed into the selector, in order.
func (f *Fake) TypedInto(selector string) []string {
	var out []string

	for _, c := range f.Calls {
		if c.Op == "type" && c.Selector == selector {
			out = append(out, c.Value)
		}
	}

	return out
}

// Clicked reports whether the selector was clicked at least once.
func (f *Fake) Clicked(selector string) bool {
	for _, c := range f.Calls {
		if c.Op == "click" && c.Selector == selector {
			return true
		}
	}

	return false
}

// Navigations returns every navigated URL, in order.
func (f *Fake) Navigations() []string {
	var out []string

	for _, c := range f.Calls {
		if c.Op == "navigate" {
			out = append(out, c.Selector)
		}
	}

	return out
}

// Factory returns a browser.Factory handing out this fake.
func (f *Fake) Factory() browser.Factory {
	return factory{fake: f}
}

type factory struct {
	fake *Fake
}

func (fa factory) NewSession(ctx context.Context) (browser.Driver, error) {
	return fa.fake, nil
}
