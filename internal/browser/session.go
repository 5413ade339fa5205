// Package browser owns the Chrome session: launching or attaching,
// navigation, and the page handle the parser drives.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xacan1/SynergyFuckingSystem/internal/config"
	"github.com/xacan1/SynergyFuckingSystem/internal/store"
)

// Scripts injected before any page script runs. The platform sniffs for
// automation, so the obvious tells are removed.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = window.chrome || {runtime: {}};
`

// Session is one open browser with the single page the run drives.
type Session struct {
	ID      string
	browser *rod.Browser
	page    *rod.Page
	log     *zap.SugaredLogger
	cfg     config.BrowserConfig
	proxy   *store.Proxy
}

// Start launches a browser (or attaches to cfg.DebuggerURL) and opens the
// working page. proxy may be nil.
func Start(ctx context.Context, cfg config.BrowserConfig, proxy *store.Proxy, log *zap.SugaredLogger) (*Session, error) {
	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(cfg.Headless)
		if cfg.BinPath != "" {
			launch = launch.Bin(cfg.BinPath)
		}
		launch = launch.
			Set(flags.Flag("start-maximized")).
			Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		if proxy != nil {
			launch = launch.Proxy(proxy.Addr())
		}
		url, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	if proxy != nil && proxy.User != "" {
		go browser.HandleAuth(proxy.User, proxy.Password)()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		log.Warnw("stealth script not installed", "error", err)
	}

	return &Session{
		ID:      uuid.NewString(),
		browser: browser,
		page:    page,
		log:     log,
		cfg:     cfg,
		proxy:   proxy,
	}, nil
}

// Page returns the driver for the working page.
func (s *Session) Page() *Page {
	timeout := time.Duration(s.cfg.OperationTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Page{page: s.page, timeout: timeout}
}

// Navigate opens the start page of the run.
func (s *Session) Navigate(url string) error {
	nav := time.Duration(s.cfg.NavigationTimeoutMs) * time.Millisecond
	if err := s.page.Timeout(nav).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// OnLoad invokes handler for every completed page load, including reloads
// and the platform's own redirects. The pump stops with the context.
func (s *Session) OnLoad(ctx context.Context, handler func(context.Context)) {
	wait := s.page.Context(ctx).EachEvent(func(ev *proto.PageLoadEventFired) {
		handler(ctx)
	})
	go wait()
	s.log.Infow("load handler installed", "session", s.ID)
}

// Shutdown closes the browser.
func (s *Session) Shutdown() {
	if err := s.browser.Close(); err != nil {
		s.log.Warnw("browser close failed", "error", err)
	}
}
