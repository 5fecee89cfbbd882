package browser_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baikuk-automation/browser"
	"baikuk-automation/browser/browsertest"
)

const btn = `//*[@id="btn"]`

func TestMain(m *testing.M) {
	browser.PollInterval = 5 * time.Millisecond
	os.Exit(m.Run())
}

func TestWaitPageLoaded(t *testing.T) {
	page := browsertest.New()
	require.NoError(t, browser.WaitPageLoaded(context.Background(), page, 50*time.Millisecond))

	page.SetReadyState("loading")
	err := browser.WaitPageLoaded(context.Background(), page, 30*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitPageLoadedCancelled(t *testing.T) {
	page := browsertest.New().SetReadyState("interactive")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := browser.WaitPageLoaded(ctx, page, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClickAnyFrameMainDocument(t *testing.T) {
	page := browsertest.New().SetFrames(2).Show(browser.MainFrame, btn)

	ok := browser.ClickAnyFrame(context.Background(), page, btn, 100*time.Millisecond)
	require.True(t, ok)

	clicks := page.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, browser.MainFrame, clicks[0].Frame)
}

func TestClickAnyFrameFallsBackToIframe(t *testing.T) {
	page := browsertest.New().SetFrames(2).Show(1, btn)

	start := time.Now()
	ok := browser.ClickAnyFrame(context.Background(), page, btn, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.True(t, ok)
	clicks := page.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, browser.Frame(1), clicks[0].Frame)
	// main gets the full timeout, frame 0 half of it
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestClickAnyFrameIgnoresHiddenElement(t *testing.T) {
	page := browsertest.New().SetFrames(1).Hide(browser.MainFrame, btn).Hide(0, btn)

	ok := browser.ClickAnyFrame(context.Background(), page, btn, 40*time.Millisecond)
	assert.False(t, ok)
	assert.Empty(t, page.Clicks())
}

func TestClickAnyFrameWaitsForElement(t *testing.T) {
	page := browsertest.New()
	time.AfterFunc(20*time.Millisecond, func() { page.Show(browser.MainFrame, btn) })

	ok := browser.ClickAnyFrame(context.Background(), page, btn, time.Second)
	assert.True(t, ok)
}

func TestClickAnyFrameCancelled(t *testing.T) {
	page := browsertest.New().SetFrames(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	ok := browser.ClickAnyFrame(ctx, page, btn, 5*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTypeAnyFrame(t *testing.T) {
	const input = `//*[@id="searchText"]`
	page := browsertest.New().SetFrames(1).Hide(0, input)

	ok := browser.TypeAnyFrame(context.Background(), page, input, "수원시 팔달구", 40*time.Millisecond, true)
	require.True(t, ok)

	typed := page.Typed()
	require.Len(t, typed, 1)
	assert.Equal(t, browser.Frame(0), typed[0].Frame)
	assert.Equal(t, "수원시 팔달구", typed[0].Text)
}

func TestTypeAnyFrameMissing(t *testing.T) {
	page := browsertest.New().SetFrames(1)

	ok := browser.TypeAnyFrame(context.Background(), page, `//input`, "x", 20*time.Millisecond, false)
	assert.False(t, ok)
	assert.Empty(t, page.Typed())
}

func TestPressEnterAnyFrame(t *testing.T) {
	const input = `//*[@id="searchText"]`
	page := browsertest.New().Show(browser.MainFrame, input)

	ok := browser.PressEnterAnyFrame(context.Background(), page, input, 20*time.Millisecond)
	require.True(t, ok)
	assert.Len(t, page.Enters(), 1)
}

func TestWaitVisibleAnyFrame(t *testing.T) {
	const result = `//*[@id="result"]`
	page := browsertest.New().SetFrames(3).Show(2, result)

	frame, ok := browser.WaitVisibleAnyFrame(context.Background(), page, result, 20*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, browser.Frame(2), frame)

	_, ok = browser.WaitVisibleAnyFrame(context.Background(), page, `//nothing`, 10*time.Millisecond)
	assert.False(t, ok)
}

func TestWaitInvisibleAnyFrame(t *testing.T) {
	const popup = `//*[@id="noticePopup"]`
	page := browsertest.New().Show(browser.MainFrame, popup)
	time.AfterFunc(30*time.Millisecond, func() { page.Hide(browser.MainFrame, popup) })

	assert.True(t, browser.WaitInvisibleAnyFrame(context.Background(), page, popup, time.Second))
}

func TestWaitInvisibleAnyFrameStaysVisible(t *testing.T) {
	const popup = `//*[@id="noticePopup"]`
	page := browsertest.New().Show(browser.MainFrame, popup)

	assert.False(t, browser.WaitInvisibleAnyFrame(context.Background(), page, popup, 50*time.Millisecond))
}

func TestFrameString(t *testing.T) {
	assert.Equal(t, "main", browser.MainFrame.String())
	assert.Equal(t, "frame[3]", browser.Frame(3).String())
}

func TestNewLauncherUnknownEngine(t *testing.T) {
	_, err := browser.NewLauncher(browser.Options{Engine: "selenium"}, nil)
	assert.Error(t, err)

	launch, err := browser.NewLauncher(browser.Options{Engine: browser.EnginePlaywright}, nil)
	require.NoError(t, err)
	assert.NotNil(t, launch)
}
