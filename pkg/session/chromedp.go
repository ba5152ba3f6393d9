package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/calewin/fieldhand/pkg/core"
)

// ChromeOptions configure the chromedp-backed session driver.
type ChromeOptions struct {
	Headless    bool
	UserDataDir string
	// CallTimeout bounds every individual session call (find, click, type).
	CallTimeout time.Duration
	// NavTimeout bounds page loads.
	NavTimeout time.Duration
}

func (o *ChromeOptions) normalize() {
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 45 * time.Second
	}
}

// chromeSession drives a real Chrome instance over the DevTools protocol.
type chromeSession struct {
	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	opts        ChromeOptions
	closed      bool
}

// NewChromeFactory returns a Factory that opens stealth-flagged Chrome
// sessions presenting the given identity.
func NewChromeFactory(opts ChromeOptions) Factory {
	opts.normalize()
	return func(ctx context.Context, identity Identity) (Session, error) {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("lang", strings.Join(identity.Languages, ",")),
			chromedp.UserAgent(identity.UserAgent),
			chromedp.WindowSize(identity.ViewportWidth, identity.ViewportHeight),
		)
		if opts.UserDataDir != "" {
			execOpts = append(execOpts, chromedp.UserDataDir(opts.UserDataDir))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)

		// Start the browser process eagerly so factory errors surface here
		// instead of on the first navigation.
		if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
			tabCancel()
			allocCancel()
			return nil, fmt.Errorf("launching chrome: %w", err)
		}

		return &chromeSession{
			allocCancel: allocCancel,
			tabCtx:      tabCtx,
			tabCancel:   tabCancel,
			opts:        opts,
		}, nil
	}
}

func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.ErrSessionClosed
	}
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	// Abort the CDP call when the caller's context dies first.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.opts.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", core.ErrNavigation, url, err)
	}
	return nil
}

func (s *chromeSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, s.opts.CallTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = &chromeElement{session: s, node: n}
	}
	return elements, nil
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.opts.CallTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading current URL: %w", err)
	}
	return url, nil
}

func (s *chromeSession) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.opts.CallTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page source: %w", err)
	}
	return html, nil
}

func (s *chromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie
	err := s.run(ctx, s.opts.CallTimeout, chromedp.ActionFunc(func(cctx context.Context) error {
		raw, err := network.GetCookies().Do(cctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  time.Unix(int64(c.Expires), 0),
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("exporting cookies: %w", err)
	}
	return cookies, nil
}

func (s *chromeSession) SetCookies(ctx context.Context, cookies []Cookie) error {
	err := s.run(ctx, s.opts.CallTimeout, chromedp.ActionFunc(func(cctx context.Context) error {
		for _, c := range cookies {
			expires := cdp.TimeSinceEpoch(c.Expires)
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithExpires(&expires).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				Do(cctx)
			if err != nil {
				return fmt.Errorf("setting cookie %q: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("importing cookies: %w", err)
	}
	return nil
}

func (s *chromeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tabCancel()
	s.allocCancel()
	return nil
}

// chromeElement wraps one CDP node.
type chromeElement struct {
	session *chromeSession
	node    *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, e.session.opts.CallTimeout,
		chromedp.Text(e.ids(), &text, chromedp.ByNodeID),
	)
	if err != nil {
		return "", fmt.Errorf("reading element text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	var ok bool
	err := e.session.run(ctx, e.session.opts.CallTimeout,
		chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID),
	)
	if err != nil {
		return "", fmt.Errorf("reading attribute %q: %w", name, err)
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	err := e.session.run(ctx, e.session.opts.CallTimeout,
		chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID),
		chromedp.Click(e.ids(), chromedp.ByNodeID),
	)
	if err != nil {
		return fmt.Errorf("clicking element: %w", err)
	}
	return nil
}

func (e *chromeElement) Type(ctx context.Context, text string, clearFirst bool) error {
	actions := []chromedp.Action{
		chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID),
	}
	if clearFirst {
		actions = append(actions, chromedp.SetValue(e.ids(), "", chromedp.ByNodeID))
	}
	actions = append(actions, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
	if err := e.session.run(ctx, e.session.opts.CallTimeout, actions...); err != nil {
		return fmt.Errorf("typing into element: %w", err)
	}
	return nil
}
