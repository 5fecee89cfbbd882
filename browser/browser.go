// Package browser drives a single browser tab through XPath-addressed
// steps. Target pages nest their content in iframes, so every lookup can be
// directed at the top document or at one of its frames.
package browser

import (
	"context"
	"fmt"

	"baikuk-automation/config"
	"baikuk-automation/utils"
)

// Frame selects a browsing context: MainFrame, or the n-th "iframe, frame"
// element of the top document (0-based).
type Frame int

// MainFrame is the top-level document.
const MainFrame Frame = -1

func (f Frame) String() string {
	if f == MainFrame {
		return "main"
	}
	return fmt.Sprintf("frame[%d]", int(f))
}

// ElementState is a point-in-time observation of an element.
type ElementState struct {
	Found   bool
	Visible bool
	Enabled bool
}

// Clickable mirrors WebDriver's element_to_be_clickable.
func (s ElementState) Clickable() bool {
	return s.Found && s.Visible && s.Enabled
}

// Page is one tab of a running browser. Probe must not block; waiting is
// done by the helpers in this package.
type Page interface {
	Navigate(ctx context.Context, url string) error
	ReadyState(ctx context.Context) (string, error)
	FrameCount(ctx context.Context) (int, error)
	Probe(ctx context.Context, frame Frame, xpath string) (ElementState, error)
	Click(ctx context.Context, frame Frame, xpath string) error
	Type(ctx context.Context, frame Frame, xpath, text string, clear bool) error
	PressEnter(ctx context.Context, frame Frame, xpath string) error
	HTML(ctx context.Context, frame Frame) (string, error)
	Close() error
}

// Engine names.
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Options controls how a browser is launched.
type Options struct {
	Engine            string
	Visible           bool
	Detach            bool
	ChromeBin         string
	PlaywrightInstall bool
	WindowWidth       int
	WindowHeight      int
}

// OptionsFromConfig maps application config onto launch options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Engine:            cfg.BrowserEngine,
		Visible:           cfg.Visible,
		Detach:            cfg.Detach,
		ChromeBin:         cfg.ChromeBin,
		PlaywrightInstall: cfg.PlaywrightInstall,
		WindowWidth:       1920,
		WindowHeight:      1080,
	}
}

// Launcher opens a fresh browser tab.
type Launcher func(ctx context.Context) (Page, error)

// NewLauncher returns a Launcher for the configured engine.
func NewLauncher(opts Options, logger *utils.Logger) (Launcher, error) {
	switch opts.Engine {
	case "", EngineChromedp:
		return func(ctx context.Context) (Page, error) {
			return launchChrome(ctx, opts, logger)
		}, nil
	case EnginePlaywright:
		return func(ctx context.Context) (Page, error) {
			return launchPlaywright(ctx, opts, logger)
		}, nil
	default:
		return nil, fmt.Errorf("browser: unknown engine %q", opts.Engine)
	}
}
