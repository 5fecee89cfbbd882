package browser

import (
	"context"
	"fmt"
	"time"
)

// PollInterval is how often waits re-probe the page.
var PollInterval = 500 * time.Millisecond

// poll calls cond until it reports true, the timeout elapses or ctx ends.
func poll(ctx context.Context, timeout time.Duration, cond func(ctx context.Context) bool) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		if cond(ctx) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// contexts lists the top document followed by every frame it contains.
func contexts(ctx context.Context, page Page) []Frame {
	frames := []Frame{MainFrame}
	n, err := page.FrameCount(ctx)
	if err != nil {
		return frames
	}
	for i := 0; i < n; i++ {
		frames = append(frames, Frame(i))
	}
	return frames
}

func probe(ctx context.Context, page Page, frame Frame, xpath string) ElementState {
	st, err := page.Probe(ctx, frame, xpath)
	if err != nil {
		return ElementState{}
	}
	return st
}

// WaitPageLoaded waits for document.readyState to become "complete".
func WaitPageLoaded(ctx context.Context, page Page, timeout time.Duration) error {
	ok := poll(ctx, timeout, func(ctx context.Context) bool {
		state, err := page.ReadyState(ctx)
		return err == nil && state == "complete"
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("browser: page not loaded within %v", timeout)
	}
	return nil
}

// WaitVisible waits until xpath is visible inside one frame.
func WaitVisible(ctx context.Context, page Page, frame Frame, xpath string, timeout time.Duration) bool {
	return poll(ctx, timeout, func(ctx context.Context) bool {
		return probe(ctx, page, frame, xpath).Visible
	})
}

// WaitPresent waits until xpath exists inside one frame.
func WaitPresent(ctx context.Context, page Page, frame Frame, xpath string, timeout time.Duration) bool {
	return poll(ctx, timeout, func(ctx context.Context) bool {
		return probe(ctx, page, frame, xpath).Found
	})
}

// WaitInvisible waits until xpath is hidden or gone inside one frame.
func WaitInvisible(ctx context.Context, page Page, frame Frame, xpath string, timeout time.Duration) bool {
	return poll(ctx, timeout, func(ctx context.Context) bool {
		st := probe(ctx, page, frame, xpath)
		return !st.Found || !st.Visible
	})
}

// WaitClick waits until xpath is clickable in frame, then clicks it.
func WaitClick(ctx context.Context, page Page, frame Frame, xpath string, timeout time.Duration) error {
	ready := poll(ctx, timeout, func(ctx context.Context) bool {
		return probe(ctx, page, frame, xpath).Clickable()
	})
	if !ready {
		return fmt.Errorf("browser: %s not clickable in %s within %v", xpath, frame, timeout)
	}
	return page.Click(ctx, frame, xpath)
}

// WaitType waits until xpath is present in frame, then types text into it.
func WaitType(ctx context.Context, page Page, frame Frame, xpath, text string, timeout time.Duration, clear bool) error {
	if !WaitPresent(ctx, page, frame, xpath, timeout) {
		return fmt.Errorf("browser: %s not present in %s within %v", xpath, frame, timeout)
	}
	return page.Type(ctx, frame, xpath, text, clear)
}

// WaitVisibleAnyFrame tries the top document and then each frame, giving
// each the full timeout. It returns the frame where xpath became visible.
func WaitVisibleAnyFrame(ctx context.Context, page Page, xpath string, timeout time.Duration) (Frame, bool) {
	for _, frame := range contexts(ctx, page) {
		if ctx.Err() != nil {
			break
		}
		if WaitVisible(ctx, page, frame, xpath, timeout) {
			return frame, true
		}
	}
	return MainFrame, false
}

// WaitInvisibleAnyFrame finds xpath in some frame within max(1s, timeout/2)
// and then waits up to timeout for it to disappear.
func WaitInvisibleAnyFrame(ctx context.Context, page Page, xpath string, timeout time.Duration) bool {
	presence := timeout / 2
	if presence < time.Second {
		presence = time.Second
	}
	for _, frame := range contexts(ctx, page) {
		if ctx.Err() != nil {
			break
		}
		if !WaitPresent(ctx, page, frame, xpath, presence) {
			continue
		}
		if WaitInvisible(ctx, page, frame, xpath, timeout) {
			return true
		}
	}
	return false
}

// ClickAnyFrame clicks xpath in the top document (full timeout) or the
// first frame where it becomes clickable (timeout/2 each).
func ClickAnyFrame(ctx context.Context, page Page, xpath string, timeout time.Duration) bool {
	return anyFrame(ctx, page, timeout, func(frame Frame, d time.Duration) bool {
		return WaitClick(ctx, page, frame, xpath, d) == nil
	})
}

// TypeAnyFrame types text into xpath in the top document (full timeout) or
// the first frame where it is present (timeout/2 each).
func TypeAnyFrame(ctx context.Context, page Page, xpath, text string, timeout time.Duration, clear bool) bool {
	return anyFrame(ctx, page, timeout, func(frame Frame, d time.Duration) bool {
		return WaitType(ctx, page, frame, xpath, text, d, clear) == nil
	})
}

// PressEnterAnyFrame sends Enter to xpath wherever it is present.
func PressEnterAnyFrame(ctx context.Context, page Page, xpath string, timeout time.Duration) bool {
	return anyFrame(ctx, page, timeout, func(frame Frame, d time.Duration) bool {
		if !WaitPresent(ctx, page, frame, xpath, d) {
			return false
		}
		return page.PressEnter(ctx, frame, xpath) == nil
	})
}

func anyFrame(ctx context.Context, page Page, timeout time.Duration, try func(Frame, time.Duration) bool) bool {
	if try(MainFrame, timeout) {
		return true
	}
	n, err := page.FrameCount(ctx)
	if err != nil {
		return false
	}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return false
		}
		if try(Frame(i), timeout/2) {
			return true
		}
	}
	return false
}
