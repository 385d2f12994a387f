package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeBrowser drives Chrome over the DevTools protocol.
type ChromeBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	stealth       bool
	timeout       time.Duration
	logger        *slog.Logger
}

func chromeAllocatorOptions(opts *Options) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Stealth {
		allocOpts = append(allocOpts, chromedp.Flag("disable-blink-features", "AutomationControlled"))
	}
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyServer))
	}
	if opts.AcceptLanguage != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.AcceptLanguage))
	}

	return allocOpts
}

func NewChrome(opts *Options) (*ChromeBrowser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chromeAllocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// the first Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	b := &ChromeBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		stealth:       opts.Stealth,
		timeout:       opts.Timeout,
		logger:        slog.Default().With("component", "browser", "driver", DriverChromedp),
	}
	b.logger.Info("browser started", "headless", opts.Headless, "stealth", opts.Stealth)

	return b, nil
}

func (b *ChromeBrowser) NewPage() (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)

	if b.stealth {
		err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}))
		if err != nil {
			tabCancel()
			return nil, fmt.Errorf("failed to install stealth script: %w", err)
		}
	} else if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	return &chromePage{
		ctx:     tabCtx,
		cancel:  tabCancel,
		timeout: b.timeout,
	}, nil
}

func (b *ChromeBrowser) Close() error {
	err := chromedp.Cancel(b.browserCtx)
	b.browserCancel()
	b.allocCancel()
	if err != nil {
		return fmt.Errorf("failed to close chrome: %w", err)
	}

	b.logger.Info("browser closed")
	return nil
}

type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func (p *chromePage) run(actions ...chromedp.Action) error {
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

func (p *chromePage) Goto(url string) error {
	if err := p.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitForSelector(selector string) error {
	if err := p.run(chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to wait for %s: %w", selector, err)
	}
	return nil
}

// Click clicks the first match and waits for the load event of the document
// the click navigates to. The listener is attached before the click so a
// fast navigation is not missed.
func (p *chromePage) Click(selector string) error {
	listenCtx, stopListening := context.WithCancel(p.ctx)
	defer stopListening()

	loaded := newLoadWaiter()
	chromedp.ListenTarget(listenCtx, loaded.onEvent)

	if err := p.run(chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}

	waitCtx := listenCtx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(listenCtx, p.timeout)
		defer cancel()
	}
	if err := loaded.wait(waitCtx); err != nil {
		return fmt.Errorf("failed to wait for load after click: %w", err)
	}
	return nil
}

// loadWaiter signals once a page load event arrives on the target.
type loadWaiter struct {
	fired chan struct{}
}

func newLoadWaiter() *loadWaiter {
	return &loadWaiter{fired: make(chan struct{}, 1)}
}

func (w *loadWaiter) onEvent(ev interface{}) {
	if _, ok := ev.(*page.EventLoadEventFired); !ok {
		return
	}
	select {
	case w.fired <- struct{}{}:
	default:
	}
}

func (w *loadWaiter) wait(ctx context.Context) error {
	select {
	case <-w.fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *chromePage) Content() (string, error) {
	var html string
	if err := p.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

func (p *chromePage) URL() (string, error) {
	var location string
	if err := p.run(chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to get page url: %w", err)
	}
	return location, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
