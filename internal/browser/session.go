package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	loginURL            = "https://www.strava.com/login"
	cookieDenySelector  = `button.btn-deny-cookie-banner`
	emailSelector       = `#email`
	passwordSelector    = `#password`
	submitSelector      = `button[type="submit"]`
	postSubmitSleep     = 2 * time.Second
	cookieBannerTimeout = 3 * time.Second
)

// Session is the browsing surface the scraping packages drive. Cookies and
// the login persist for the session's lifetime, so authentication happens
// once and every later navigation reuses it.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	HTML(ctx context.Context, selector string) (string, error)
	Location(ctx context.Context) (string, error)
	Close() error
}

// ChromeSession drives a headless Chrome via chromedp. One ChromeSession
// owns one browser context; it is not safe for concurrent use.
type ChromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewChromeSession starts a headless browser. The returned session must be
// closed by the caller.
func NewChromeSession(parent context.Context, logger *slog.Logger) (*ChromeSession, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}
	return &ChromeSession{ctx: browserCtx, cancel: cancel, logger: logger}, nil
}

// Login navigates to the login page, dismisses the cookie banner when one is
// shown, fills in the credentials and submits the form. It is expected to be
// called exactly once per session.
func (s *ChromeSession) Login(ctx context.Context, email, password string) error {
	if err := s.Navigate(ctx, loginURL); err != nil {
		return err
	}
	// The cookie banner only shows on fresh sessions; its absence is fine.
	if err := s.WaitVisible(ctx, cookieDenySelector, cookieBannerTimeout); err == nil {
		if err := s.Click(ctx, cookieDenySelector); err != nil {
			s.logger.Warn("dismissing cookie banner failed", "err", err)
		}
	}
	err := chromedp.Run(s.runCtx(ctx),
		chromedp.WaitVisible(emailSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailSelector, email, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, password, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
		chromedp.Sleep(postSubmitSleep),
	)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.logger.Info("logged in", "email", email)
	return nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.runCtx(ctx), chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(s.runCtx(ctx), timeout)
	defer cancel()
	return chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *ChromeSession) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(s.runCtx(ctx), timeout)
	defer cancel()
	return chromedp.Run(waitCtx, chromedp.WaitNotVisible(selector, chromedp.ByQuery))
}

func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.runCtx(ctx), chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *ChromeSession) HTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var html string
	err := chromedp.Run(s.runCtx(ctx), chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", selector, err)
	}
	return html, nil
}

func (s *ChromeSession) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var url string
	if err := chromedp.Run(s.runCtx(ctx), chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

func (s *ChromeSession) Close() error {
	s.cancel()
	return nil
}

// runCtx yields the context chromedp actions must run on. Canceling a
// chromedp context tears down the browser target, so the session context is
// used for the actual run; the caller's context only gates entry.
func (s *ChromeSession) runCtx(ctx context.Context) context.Context {
	return s.ctx
}
