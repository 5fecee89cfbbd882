package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"baikuk-automation/utils"
)

const playwrightActionTimeout = 5 * time.Second

type playwrightPage struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	detach  bool
	logger  *utils.Logger
}

func launchPlaywright(_ context.Context, opts Options, logger *utils.Logger) (Page, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if opts.PlaywrightInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("playwright: install: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("playwright: start: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(!opts.Visible),
		Args: []string{
			"--disable-gpu",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
		},
	}
	if opts.Visible {
		launch.Args = append(launch.Args, "--start-maximized")
	}
	if opts.ChromeBin != "" {
		launch.ExecutablePath = playwright.String(opts.ChromeBin)
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("playwright: launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{}
	if opts.Visible {
		pageOpts.NoViewport = playwright.Bool(true)
	} else {
		pageOpts.Viewport = &playwright.Size{Width: opts.WindowWidth, Height: opts.WindowHeight}
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("playwright: new page: %w", err)
	}
	logger.Debug("[browser] Playwright chromium started (headless=%t)", !opts.Visible)

	return &playwrightPage{pw: pw, browser: browser, page: page, detach: opts.Detach, logger: logger}, nil
}

// timeoutMs converts what is left of ctx into a Playwright timeout. Zero
// means "no timeout" to Playwright, so the result is at least 1ms.
func timeoutMs(ctx context.Context, fallback time.Duration) *float64 {
	d := fallback
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d {
			d = left
		}
	}
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(float64(ms))
}

func (p *playwrightPage) frame(f Frame) (playwright.Frame, error) {
	if f == MainFrame {
		return p.page.MainFrame(), nil
	}
	children := p.page.MainFrame().ChildFrames()
	if int(f) < 0 || int(f) >= len(children) {
		return nil, fmt.Errorf("playwright: %s does not exist (%d frames)", f, len(children))
	}
	return children[f], nil
}

func (p *playwrightPage) locator(f Frame, xpath string) (playwright.Locator, error) {
	fr, err := p.frame(f)
	if err != nil {
		return nil, err
	}
	return fr.Locator("xpath=" + xpath).First(), nil
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout: timeoutMs(ctx, 60*time.Second),
	}); err != nil {
		return fmt.Errorf("playwright: navigate %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) ReadyState(ctx context.Context) (string, error) {
	v, err := p.page.Evaluate(`document.readyState`)
	if err != nil {
		return "", err
	}
	state, _ := v.(string)
	return state, nil
}

func (p *playwrightPage) FrameCount(ctx context.Context) (int, error) {
	return len(p.page.MainFrame().ChildFrames()), nil
}

func (p *playwrightPage) Probe(ctx context.Context, frame Frame, xpath string) (ElementState, error) {
	loc, err := p.locator(frame, xpath)
	if err != nil {
		return ElementState{}, err
	}
	n, err := loc.Count()
	if err != nil {
		return ElementState{}, err
	}
	if n == 0 {
		return ElementState{}, nil
	}
	visible, err := loc.IsVisible()
	if err != nil {
		return ElementState{}, err
	}
	enabled, err := loc.IsEnabled(playwright.LocatorIsEnabledOptions{
		Timeout: timeoutMs(ctx, time.Second),
	})
	if err != nil {
		enabled = false
	}
	return ElementState{Found: true, Visible: visible, Enabled: enabled}, nil
}

func (p *playwrightPage) Click(ctx context.Context, frame Frame, xpath string) error {
	loc, err := p.locator(frame, xpath)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{
		Timeout: timeoutMs(ctx, playwrightActionTimeout),
	}); err != nil {
		return fmt.Errorf("playwright: click %s in %s: %w", xpath, frame, err)
	}
	return nil
}

func (p *playwrightPage) Type(ctx context.Context, frame Frame, xpath, text string, clear bool) error {
	loc, err := p.locator(frame, xpath)
	if err != nil {
		return err
	}
	if clear {
		err = loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMs(ctx, playwrightActionTimeout)})
	} else {
		err = loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
			Timeout: timeoutMs(ctx, playwrightActionTimeout),
		})
	}
	if err != nil {
		return fmt.Errorf("playwright: type into %s in %s: %w", xpath, frame, err)
	}
	return nil
}

func (p *playwrightPage) PressEnter(ctx context.Context, frame Frame, xpath string) error {
	loc, err := p.locator(frame, xpath)
	if err != nil {
		return err
	}
	if err := loc.Press("Enter", playwright.LocatorPressOptions{
		Timeout: timeoutMs(ctx, playwrightActionTimeout),
	}); err != nil {
		return fmt.Errorf("playwright: press enter on %s in %s: %w", xpath, frame, err)
	}
	return nil
}

func (p *playwrightPage) HTML(ctx context.Context, frame Frame) (string, error) {
	fr, err := p.frame(frame)
	if err != nil {
		return "", err
	}
	return fr.Content()
}

func (p *playwrightPage) Close() error {
	if p.detach {
		p.logger.Info("[browser] DETACH set, leaving the window open")
		return nil
	}
	return errors.Join(p.page.Close(), p.browser.Close(), p.pw.Stop())
}
