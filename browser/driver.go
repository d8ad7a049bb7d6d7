// Package browser defines the contract the procedure library drives the
// remote console through. The implementation is an external capability;
// everything here is written against the failure model of a real headless
// browser: any step can fail (selector gone, navigation timeout) and a
// failure is final for the step that saw it.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrSelectorNotFound is returned when an expected element is absent.
// There is no reliable way to tell "page changed" from "still loading",
// so procedures treat this as fatal once their wait budget is spent.
var ErrSelectorNotFound = errors.New("browser: selector not found")

// DefaultWaitTimeout bounds a single checkpoint wait.
const DefaultWaitTimeout = 15 * time.Second

//go:generate mockery --name Driver --output ./mocks
type Driver interface {
	// Navigate loads a URL and returns once the document has loaded.
	Navigate(ctx context.Context, url string) error

	// WaitForSelector blocks until the selector appears or the timeout
	// elapses; exceeding the timeout is an error.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// Exists reports whether the selector is currently present, without
	// waiting.
	Exists(ctx context.Context, selector string) (bool, error)

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// ClickAll clicks every element matching the selector, in order.
	ClickAll(ctx context.Context, selector string) error

	// Type clears the element and types the text into it.
	Type(ctx context.Context, selector, text string) error

	// SelectOption picks an option value in a select element.
	SelectOption(ctx context.Context, selector, value string) error

	// Text returns the text content of the first matching element.
	Text(ctx context.Context, selector string) (string, error)

	// Attribute returns the named attribute of the first matching element.
	Attribute(ctx context.Context, selector, name string) (string, error)

	// Evaluate runs a script in the page and returns its string result.
	Evaluate(ctx context.Context, script string) (string, error)

	// UploadFile attaches a local file to a file input.
	UploadFile(ctx context.Context, selector, path string) error

	// PageContent returns the current document's serialized content.
	PageContent(ctx context.Context) (string, error)

	// URL returns the main frame's current URL.
	URL(ctx context.Context) (string, error)

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close discards the session. The session is owned by exactly one
	// procedure invocation and is never reused after Close.
	Close(ctx context.Context) error
}

// Factory opens a fresh, exclusive browser session for one invocation.
type Factory interface {
	NewSession(ctx context.Context) (Driver, error)
}
