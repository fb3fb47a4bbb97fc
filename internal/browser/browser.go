package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/stealth"
	"github.com/playwright-community/playwright-go"
)

// ErrSelectorTimeout is returned by WaitForSelector when the selector does
// not appear within the given timeout.
var ErrSelectorTimeout = errors.New("selector wait timed out")

// hideWebdriver runs before any page script. It is enough on its own when the
// full stealth script is disabled.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// Session is one browser process with a single page. It is not reused
// across invocations.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	opts    *Options
	logger  *slog.Logger
}

// Launch starts the Playwright driver and Chromium, then opens a page
// configured with the headers, cookies and init scripts from opts.
func Launch(ctx context.Context, opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Session{
		opts:   opts,
		logger: slog.Default().With("component", "browser"),
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	s.pw = pw

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless:          playwright.Bool(opts.Headless),
		Args:              opts.launchArgs(),
		IgnoreDefaultArgs: []string{"--enable-automation"},
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.browser = browser

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(opts.Locale),
		TimezoneId:        playwright.String(opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	s.context = bctx

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(s.initScript())}); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	if len(opts.Cookies) > 0 {
		if err := bctx.AddCookies(opts.playwrightCookies()); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	s.page = page

	s.logger.Debug("browser launched",
		"headless", opts.Headless,
		"executable", opts.ExecutablePath,
		"stealth", opts.Stealth)

	return s, nil
}

func (s *Session) initScript() string {
	if s.opts.Stealth {
		return stealth.JS + "\n" + hideWebdriver
	}
	return hideWebdriver
}

// Navigate loads url and waits until the network is idle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(s.opts.NavigationTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if resp != nil {
		s.logger.Debug("page loaded", "url", url, "status", resp.Status())
	}
	return nil
}

// ScrollTo scrolls the window to the given fraction of the document height.
func (s *Session) ScrollTo(ctx context.Context, fraction float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.page.Evaluate(`fraction => window.scrollTo(0, document.body.scrollHeight * fraction)`, fraction); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// WaitForSelector blocks until selector is attached to the DOM or the
// timeout elapses, in which case ErrSelectorTimeout is returned. When the
// context deadline is closer than timeout, running out of time is reported
// as context.DeadlineExceeded instead.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wait, clipped, err := selectorTimeout(ctx, timeout, time.Now())
	if err != nil {
		return fmt.Errorf("failed waiting for %s: %w", selector, err)
	}

	_, err = s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(wait.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			if clipped {
				return fmt.Errorf("failed waiting for %s: %w", selector, context.DeadlineExceeded)
			}
			return fmt.Errorf("%w: %s", ErrSelectorTimeout, selector)
		}
		return fmt.Errorf("failed waiting for %s: %w", selector, err)
	}
	return nil
}

// selectorTimeout bounds timeout by the context deadline. clipped reports
// that the deadline, not timeout, ends the wait. Playwright treats a zero
// timeout as unbounded, so less than a millisecond left is an error.
func selectorTimeout(ctx context.Context, timeout time.Duration, now time.Time) (wait time.Duration, clipped bool, err error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return timeout, false, nil
	}

	remaining := deadline.Sub(now)
	if remaining <= time.Millisecond {
		return 0, true, context.DeadlineExceeded
	}
	if remaining < timeout {
		return remaining, true, nil
	}
	return timeout, false, nil
}

// Content returns the serialized DOM of the page.
func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

// Close releases the page, context, browser and driver. It is safe to call
// on a partially launched session.
func (s *Session) Close() error {
	var errs []error

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
