package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// ChromeFactory opens headless Chrome sessions. Each session owns its
// own allocator so a crashed browser never poisons the next invocation.
type ChromeFactory struct {
	headless bool
}

func NewChromeFactory(headless bool) *ChromeFactory {
	return &ChromeFactory{headless: headless}
}

func (f *ChromeFactory) NewSession(ctx context.Context) (Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1366, 768),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Run an empty task list to start the browser eagerly, so a broken
	// Chrome install surfaces here instead of mid-procedure.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()

		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// run executes actions on the tab, bailing out early when the caller's
// context is already done.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return chromedp.Run(s.tabCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: %s", ErrSelectorNotFound, selector)
	}

	return nil
}

func (s *chromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	var present bool

	script := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &present)); err != nil {
		return false, err
	}

	return present, nil
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) ClickAll(ctx context.Context, selector string) error {
	script := fmt.Sprintf("document.querySelectorAll(%q).forEach(function(el) { el.click(); }); true", selector)

	var clicked bool

	return s.run(ctx, chromedp.Evaluate(script, &clicked))
}

func (s *chromeSession) Type(ctx context.Context, selector, text string) error {
	return s.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (s *chromeSession) SelectOption(ctx context.Context, selector, value string) error {
	return s.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (s *chromeSession) Text(ctx context.Context, selector string) (string, error) {
	var out string
	if err := s.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery)); err != nil {
		return "", err
	}

	return out, nil
}

func (s *chromeSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	var (
		value string
		ok    bool
	)

	if err := s.run(ctx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", err
	}

	if !ok {
		return "", fmt.Errorf("%w: %s[%s]", ErrSelectorNotFound, selector, name)
	}

	return value, nil
}

func (s *chromeSession) Evaluate(ctx context.Context, script string) (string, error) {
	var out string

	if err := s.run(ctx, chromedp.Evaluate(wrapScript(script), &out)); err != nil {
		return "", err
	}

	return out, nil
}

// wrapScript makes an arbitrary page script safe to evaluate: the IIFE
// accepts statement scripts, which are not valid in expression position,
// and String() coerces the result, undefined included, so fire-and-forget
// scripts do not error.
func wrapScript(script string) string {
	return fmt.Sprintf("String((function() { %s })())", script)
}

func (s *chromeSession) UploadFile(ctx context.Context, selector, path string) error {
	return s.run(ctx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery))
}

func (s *chromeSession) PageContent(ctx context.Context) (string, error) {
	var html string

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}

		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)

		return err
	}))
	if err != nil {
		return "", err
	}

	return html, nil
}

func (s *chromeSession) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}

	return loc, nil
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}

	return buf, nil
}

func (s *chromeSession) Close(ctx context.Context) error {
	s.tabCancel()
	s.allocCancel()

	return nil
}
