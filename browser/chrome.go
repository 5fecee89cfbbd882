package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"

	"baikuk-automation/utils"
)

// elementScript resolves an XPath inside the chosen frame's document and
// optionally acts on the element. Cross-origin frames read as "not found".
const elementScript = `(function(frameIndex, xpath, op, text, clear) {
	var doc = document;
	if (frameIndex >= 0) {
		var frames = document.querySelectorAll('iframe, frame');
		if (frameIndex >= frames.length) return {found: false};
		try { doc = frames[frameIndex].contentDocument; } catch (e) { doc = null; }
		if (!doc) return {found: false};
	}
	if (op === 'html') {
		return {found: true, html: doc.documentElement ? doc.documentElement.outerHTML : ''};
	}
	var el = null;
	try {
		el = doc.evaluate(xpath, doc, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	} catch (e) {
		return {found: false, error: String(e)};
	}
	if (!el) return {found: false};
	var win = doc.defaultView || window;
	var style = win.getComputedStyle(el);
	var rect = el.getBoundingClientRect();
	var visible = rect.width > 0 && rect.height > 0 &&
		style.visibility !== 'hidden' && style.display !== 'none';
	var res = {found: true, visible: visible, enabled: !el.disabled};
	if (op === 'probe') return res;
	el.scrollIntoView({block: 'center'});
	if (op === 'click') {
		el.click();
	} else if (op === 'type') {
		el.focus();
		var desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(el), 'value');
		var value = (clear ? '' : (el.value || '')) + text;
		if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
	} else if (op === 'enter') {
		el.focus();
		var opts = {key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true};
		var proceed = el.dispatchEvent(new KeyboardEvent('keydown', opts));
		el.dispatchEvent(new KeyboardEvent('keypress', opts));
		el.dispatchEvent(new KeyboardEvent('keyup', opts));
		if (proceed && el.form) {
			if (el.form.requestSubmit) { el.form.requestSubmit(); } else { el.form.submit(); }
		}
	}
	res.done = true;
	return res;
})(%d, %s, %s, %s, %t)`

type elementResult struct {
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	Done    bool   `json:"done"`
	HTML    string `json:"html"`
	Error   string `json:"error"`
}

type chromePage struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	detach      bool
	logger      *utils.Logger
}

func launchChrome(_ context.Context, opts Options, logger *utils.Logger) (Page, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Debug("[browser] Using browser binary: %s", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Visible),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if opts.Visible {
		allocOpts = append(allocOpts, chromedp.Flag("start-maximized", true))
	} else if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	// The browser is not tied to the caller's context so DETACH can keep it open.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug("[chromedp] "+format, args...)
		}),
	)

	// First Run allocates the browser; it must not carry a timeout.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}

	return &chromePage{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		detach:      opts.Detach,
		logger:      logger,
	}, nil
}

// run executes actions on the tab while honouring ctx's deadline and cancellation.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chromedp: navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := p.run(ctx, chromedp.Evaluate(`document.readyState`, &state))
	return state, err
}

func (p *chromePage) FrameCount(ctx context.Context) (int, error) {
	var n int
	err := p.run(ctx, chromedp.Evaluate(`document.querySelectorAll('iframe, frame').length`, &n))
	return n, err
}

func (p *chromePage) element(ctx context.Context, frame Frame, xpath, op, text string, clear bool) (elementResult, error) {
	xp, _ := json.Marshal(xpath)
	o, _ := json.Marshal(op)
	t, _ := json.Marshal(text)
	script := fmt.Sprintf(elementScript, int(frame), xp, o, t, clear)

	var res elementResult
	if err := p.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return res, fmt.Errorf("chromedp: %s %s in %s: %w", op, xpath, frame, err)
	}
	if res.Error != "" {
		return res, fmt.Errorf("chromedp: %s %s in %s: %s", op, xpath, frame, res.Error)
	}
	return res, nil
}

func (p *chromePage) Probe(ctx context.Context, frame Frame, xpath string) (ElementState, error) {
	res, err := p.element(ctx, frame, xpath, "probe", "", false)
	if err != nil {
		return ElementState{}, err
	}
	return ElementState{Found: res.Found, Visible: res.Visible, Enabled: res.Enabled}, nil
}

func (p *chromePage) act(ctx context.Context, frame Frame, xpath, op, text string, clear bool) error {
	res, err := p.element(ctx, frame, xpath, op, text, clear)
	if err != nil {
		return err
	}
	if !res.Found || !res.Done {
		return fmt.Errorf("chromedp: %s %s in %s: element not found", op, xpath, frame)
	}
	return nil
}

func (p *chromePage) Click(ctx context.Context, frame Frame, xpath string) error {
	return p.act(ctx, frame, xpath, "click", "", false)
}

func (p *chromePage) Type(ctx context.Context, frame Frame, xpath, text string, clear bool) error {
	return p.act(ctx, frame, xpath, "type", text, clear)
}

func (p *chromePage) PressEnter(ctx context.Context, frame Frame, xpath string) error {
	return p.act(ctx, frame, xpath, "enter", "", false)
}

func (p *chromePage) HTML(ctx context.Context, frame Frame) (string, error) {
	res, err := p.element(ctx, frame, "", "html", "", false)
	if err != nil {
		return "", err
	}
	if !res.Found {
		return "", fmt.Errorf("chromedp: %s is not readable", frame)
	}
	return res.HTML, nil
}

func (p *chromePage) Close() error {
	if p.detach {
		p.logger.Info("[browser] DETACH set, leaving the window open")
		return nil
	}
	p.cancelTab()
	p.cancelAlloc()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
