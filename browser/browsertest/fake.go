// Package browsertest provides a scriptable in-memory browser.Page.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"baikuk-automation/browser"
)

// Action is one recorded interaction.
type Action struct {
	Frame browser.Frame
	XPath string
	Text  string
}

type key struct {
	frame browser.Frame
	xpath string
}

// FakePage is a browser.Page whose elements are set by the test.
type FakePage struct {
	mu sync.Mutex

	frames      int
	readyState  string
	states      map[key]browser.ElementState
	onClick     map[string]func(*FakePage)
	html        map[browser.Frame]string
	navigateErr error
	enterErr    error

	navigated []string
	clicks    []Action
	typed     []Action
	enters    []Action
	closed    bool
}

// New returns a loaded page with no frames and no elements.
func New() *FakePage {
	return &FakePage{
		readyState: "complete",
		states:     make(map[key]browser.ElementState),
		onClick:    make(map[string]func(*FakePage)),
		html:       make(map[browser.Frame]string),
	}
}

// SetFrames sets how many iframes the top document has.
func (f *FakePage) SetFrames(n int) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = n
	return f
}

// SetReadyState overrides document.readyState.
func (f *FakePage) SetReadyState(s string) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyState = s
	return f
}

// FailNavigate makes Navigate return err.
func (f *FakePage) FailNavigate(err error) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigateErr = err
	return f
}

// Set stores the state of xpath inside frame.
func (f *FakePage) Set(frame browser.Frame, xpath string, st browser.ElementState) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[key{frame, xpath}] = st
	return f
}

// Show makes xpath present, visible and enabled in frame.
func (f *FakePage) Show(frame browser.Frame, xpath string) *FakePage {
	return f.Set(frame, xpath, browser.ElementState{Found: true, Visible: true, Enabled: true})
}

// Hide keeps xpath in the DOM but invisible.
func (f *FakePage) Hide(frame browser.Frame, xpath string) *FakePage {
	return f.Set(frame, xpath, browser.ElementState{Found: true})
}

// Remove drops xpath from frame.
func (f *FakePage) Remove(frame browser.Frame, xpath string) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, key{frame, xpath})
	return f
}

// FailEnter makes every PressEnter return err.
func (f *FakePage) FailEnter(err error) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enterErr = err
	return f
}

// SetHTML sets the document returned by HTML(frame).
func (f *FakePage) SetHTML(frame browser.Frame, html string) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html[frame] = html
	return f
}

// OnClick runs fn after a successful click on xpath in any frame.
func (f *FakePage) OnClick(xpath string, fn func(*FakePage)) *FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClick[xpath] = fn
	return f
}

func (f *FakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navigateErr != nil {
		return f.navigateErr
	}
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *FakePage) ReadyState(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyState, nil
}

func (f *FakePage) FrameCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames, nil
}

func (f *FakePage) Probe(ctx context.Context, frame browser.Frame, xpath string) (browser.ElementState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[key{frame, xpath}], nil
}

func (f *FakePage) Click(ctx context.Context, frame browser.Frame, xpath string) error {
	f.mu.Lock()
	if !f.states[key{frame, xpath}].Clickable() {
		f.mu.Unlock()
		return fmt.Errorf("fake: %s not clickable in %s", xpath, frame)
	}
	f.clicks = append(f.clicks, Action{Frame: frame, XPath: xpath})
	fn := f.onClick[xpath]
	f.mu.Unlock()

	if fn != nil {
		fn(f)
	}
	return nil
}

func (f *FakePage) Type(ctx context.Context, frame browser.Frame, xpath, text string, clear bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.states[key{frame, xpath}].Found {
		return fmt.Errorf("fake: %s not found in %s", xpath, frame)
	}
	f.typed = append(f.typed, Action{Frame: frame, XPath: xpath, Text: text})
	return nil
}

func (f *FakePage) PressEnter(ctx context.Context, frame browser.Frame, xpath string) error {
	f.mu.Lock()
	if f.enterErr != nil {
		f.mu.Unlock()
		return f.enterErr
	}
	if !f.states[key{frame, xpath}].Found {
		f.mu.Unlock()
		return fmt.Errorf("fake: %s not found in %s", xpath, frame)
	}
	f.enters = append(f.enters, Action{Frame: frame, XPath: xpath})
	fn := f.onClick[xpath]
	f.mu.Unlock()

	if fn != nil {
		fn(f)
	}
	return nil
}

func (f *FakePage) HTML(ctx context.Context, frame browser.Frame) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	html, ok := f.html[frame]
	if !ok {
		return "", fmt.Errorf("fake: no html for %s", frame)
	}
	return html, nil
}

func (f *FakePage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Navigated returns the URLs passed to Navigate.
func (f *FakePage) Navigated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

// Clicks returns the recorded clicks in order.
func (f *FakePage) Clicks() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Action(nil), f.clicks...)
}

// Typed returns the recorded text inputs in order.
func (f *FakePage) Typed() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Action(nil), f.typed...)
}

// Enters returns the recorded Enter key presses.
func (f *FakePage) Enters() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Action(nil), f.enters...)
}

// Clicked reports whether xpath was clicked in any frame.
func (f *FakePage) Clicked(xpath string) bool {
	for _, c := range f.Clicks() {
		if c.XPath == xpath {
			return true
		}
	}
	return false
}

// Closed reports whether Close was called.
func (f *FakePage) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Launcher returns a browser.Launcher that always hands out f.
func (f *FakePage) Launcher() browser.Launcher {
	return func(ctx context.Context) (browser.Page, error) {
		return f, nil
	}
}
