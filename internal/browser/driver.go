package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
)

// Options configures a browser session
type Options struct {
	// Browser is chromium, firefox or webkit
	Browser  string
	Headless bool
	// Timeout is the default timeout for element operations
	Timeout time.Duration
	// SlowMo delays each operation, useful when watching a headed run
	SlowMo time.Duration
}

// Driver owns the playwright process, browser, context and page for one session
type Driver struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// NewDriver creates a driver; nothing is started until Start
func NewDriver(opts Options) *Driver {
	return &Driver{opts: opts}
}

// Start launches the browser and opens a page
func (d *Driver) Start() (Surface, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	d.pw = pw

	launcher, err := d.browserType()
	if err != nil {
		d.Stop()
		return nil, err
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.opts.Headless),
	}
	if d.opts.Browser == "chromium" {
		launch.Args = []string{"--start-maximized"}
	}
	if d.opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(float64(d.opts.SlowMo.Milliseconds()))
	}

	log.Debug().Str("browser", d.opts.Browser).Bool("headless", d.opts.Headless).Msg("launching browser")
	d.browser, err = launcher.Launch(launch)
	if err != nil {
		d.Stop()
		return nil, fmt.Errorf("launching %s: %w", d.opts.Browser, err)
	}

	d.context, err = d.browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		d.Stop()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	d.page, err = d.context.NewPage()
	if err != nil {
		d.Stop()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	if d.opts.Timeout > 0 {
		d.page.SetDefaultTimeout(millis(d.opts.Timeout))
	}

	return &pageSurface{page: d.page}, nil
}

func (d *Driver) browserType() (playwright.BrowserType, error) {
	switch d.opts.Browser {
	case "chromium":
		return d.pw.Chromium, nil
	case "firefox":
		return d.pw.Firefox, nil
	case "webkit":
		return d.pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser type: %s", d.opts.Browser)
	}
}

// Stop closes whatever Start managed to open
func (d *Driver) Stop() error {
	var errs []error
	if d.context != nil {
		if err := d.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing context: %w", err))
		}
		d.context = nil
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
		}
		d.browser = nil
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping playwright: %w", err))
		}
		d.pw = nil
	}
	d.page = nil
	return errors.Join(errs...)
}

// Install downloads the playwright driver and the named browsers
func Install(browsers ...string) error {
	return playwright.Install(&playwright.RunOptions{Browsers: browsers})
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// pageSurface adapts a playwright page to Surface
type pageSurface struct {
	page playwright.Page
}

func (p *pageSurface) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *pageSurface) WaitIdle(timeout time.Duration) error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(millis(timeout)),
	})
}

func (p *pageSurface) Click(selector string, timeout time.Duration) error {
	return p.page.Locator(selector).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
}

func (p *pageSurface) Fill(selector, value string, timeout time.Duration) error {
	return p.page.Locator(selector).Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
}

func (p *pageSurface) Text(selector string, timeout time.Duration) (string, error) {
	text, err := p.page.Locator(selector).TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *pageSurface) Visible(selector string, timeout time.Duration) (bool, error) {
	return p.page.Locator(selector).IsVisible(playwright.LocatorIsVisibleOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
}

func (p *pageSurface) Count(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (p *pageSurface) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}
