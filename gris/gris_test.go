package gris

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baikuk-automation/browser"
	"baikuk-automation/browser/browsertest"
	"baikuk-automation/config"
	"baikuk-automation/utils"
)

const landUseHTML = `<html><body>
<div id="landUse">
  <img id="totUseLandMltmImg" src="/ost/img/landuse.png">
  <table>
    <tr><th>지목</th><td>대</td></tr>
    <tr><th>면적</th><td> 1,234.5 ㎡ </td></tr>
  </table>
</div>
</body></html>`

func TestMain(m *testing.M) {
	browser.PollInterval = 2 * time.Millisecond
	os.Exit(m.Run())
}

func fastTimeouts() Timeouts {
	return Timeouts{
		PageLoad:      50 * time.Millisecond,
		PopupClick:    20 * time.Millisecond,
		PopupGone:     20 * time.Millisecond,
		PopupReload:   20 * time.Millisecond,
		Entry:         20 * time.Millisecond,
		Type:          20 * time.Millisecond,
		SearchButton:  20 * time.Millisecond,
		TabFirst:      30 * time.Millisecond,
		ImageAfterTab: 30 * time.Millisecond,
		ImageFirst:    30 * time.Millisecond,
		TabAfterImage: time.Second,
	}
}

func newTestLookup(trigger string, page *browsertest.FakePage) *Lookup {
	cfg := &config.Config{GrisURL: "https://gris.example/ost/oneStopView.do", GrisSearchTrigger: trigger}
	return New(cfg, page.Launcher(), utils.NewLogger()).WithTimeouts(fastTimeouts())
}

// portal scripts a page where the search lives in the first iframe.
func portal() *browsertest.FakePage {
	page := browsertest.New().SetFrames(1)
	page.Show(browser.MainFrame, XPathPopupClose).
		Show(browser.MainFrame, XPathEntry).
		Show(0, XPathSearchInput).
		Show(0, XPathSearchButton)

	page.OnClick(XPathPopupClose, func(p *browsertest.FakePage) {
		p.Hide(browser.MainFrame, XPathPopupClose)
	})
	page.OnClick(XPathSearchButton, func(p *browsertest.FakePage) {
		p.Show(0, XPathLandUseTab)
	})
	page.OnClick(XPathLandUseTab, func(p *browsertest.FakePage) {
		p.Show(0, XPathLandUseImage).SetHTML(0, landUseHTML)
	})
	return page
}

func TestLookupTabThenImage(t *testing.T) {
	page := portal()

	res, err := newTestLookup(TriggerButton, page).Run(context.Background(), "  경기도 수원시 팔달구 인계동 1  ")
	require.NoError(t, err)
	require.True(t, res.OK, res.Reason)

	assert.Equal(t, []string{"https://gris.example/ost/oneStopView.do"}, page.Navigated())
	assert.True(t, page.Clicked(XPathPopupClose))
	assert.True(t, page.Clicked(XPathEntry))

	typed := page.Typed()
	require.Len(t, typed, 1)
	assert.Equal(t, "경기도 수원시 팔달구 인계동 1", typed[0].Text)
	assert.Equal(t, browser.Frame(0), typed[0].Frame)

	require.NotNil(t, res.LandUse)
	assert.Equal(t, "https://gris.example/ost/img/landuse.png", res.LandUse.ImageURL)
	assert.Equal(t, "대", res.LandUse.Fields["지목"])
	assert.True(t, page.Closed())
}

func TestLookupImageThenTab(t *testing.T) {
	page := browsertest.New()
	page.Show(browser.MainFrame, XPathSearchInput).Show(browser.MainFrame, XPathSearchButton)
	page.OnClick(XPathSearchButton, func(p *browsertest.FakePage) {
		p.Show(browser.MainFrame, XPathLandUseImage).SetHTML(browser.MainFrame, landUseHTML)
		p.Hide(browser.MainFrame, XPathLandUseTab)
		// the tab becomes clickable only after the first strategy gave up
		time.AfterFunc(150*time.Millisecond, func() { p.Show(browser.MainFrame, XPathLandUseTab) })
	})

	res, err := newTestLookup(TriggerButton, page).Run(context.Background(), "수원시 인계동")
	require.NoError(t, err)
	assert.True(t, res.OK, res.Reason)
	assert.True(t, page.Clicked(XPathLandUseTab))
	require.NotNil(t, res.LandUse)
}

func TestLookupWithoutAddressOnlyOpens(t *testing.T) {
	page := browsertest.New()

	res, err := newTestLookup(TriggerButton, page).Run(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Empty(t, page.Typed())
	assert.Len(t, page.Navigated(), 1)
}

func TestLookupSearchInputMissing(t *testing.T) {
	page := browsertest.New()

	res, err := newTestLookup(TriggerButton, page).Run(context.Background(), "수원시")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "search input not found", res.Reason)
}

func TestLookupSearchButtonMissing(t *testing.T) {
	page := browsertest.New().Show(browser.MainFrame, XPathSearchInput)

	res, err := newTestLookup(TriggerButton, page).Run(context.Background(), "수원시")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "search button not clicked", res.Reason)
}

func TestLookupEnterTrigger(t *testing.T) {
	page := browsertest.New().Show(browser.MainFrame, XPathSearchInput)
	page.OnClick(XPathSearchInput, func(p *browsertest.FakePage) {
		p.Show(browser.MainFrame, XPathLandUseTab).Show(browser.MainFrame, XPathLandUseImage)
	})

	res, err := newTestLookup("enter", page).Run(context.Background(), "수원시")
	require.NoError(t, err)
	assert.True(t, res.OK, res.Reason)
	assert.Len(t, page.Enters(), 1)
	assert.False(t, page.Clicked(XPathSearchButton))
	// no HTML scripted, extraction is best effort
	assert.Nil(t, res.LandUse)
}

func TestLookupEnterFailureStillWaitsForResult(t *testing.T) {
	page := browsertest.New().
		Show(browser.MainFrame, XPathSearchInput).
		Show(browser.MainFrame, XPathLandUseTab).
		Show(browser.MainFrame, XPathLandUseImage).
		FailEnter(errors.New("element detached"))

	res, err := newTestLookup(TriggerEnter, page).Run(context.Background(), "수원시")
	require.NoError(t, err)
	assert.True(t, res.OK, res.Reason)
	assert.Empty(t, page.Enters())
	assert.Len(t, page.Typed(), 1)
}

func TestLookupEnterFailureWithoutResult(t *testing.T) {
	page := browsertest.New().
		Show(browser.MainFrame, XPathSearchInput).
		FailEnter(errors.New("element detached"))
	lookup := newTestLookup(TriggerEnter, page)
	lookup.timeouts.TabAfterImage = 20 * time.Millisecond

	res, err := lookup.Run(context.Background(), "수원시")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "land-use result did not appear", res.Reason)
}

func TestLookupResultNeverAppears(t *testing.T) {
	page := browsertest.New().
		Show(browser.MainFrame, XPathSearchInput).
		Show(browser.MainFrame, XPathSearchButton)
	lookup := newTestLookup(TriggerButton, page)
	lookup.timeouts.TabAfterImage = 20 * time.Millisecond

	res, err := lookup.Run(context.Background(), "수원시")
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestLookupNavigateError(t *testing.T) {
	page := browsertest.New().FailNavigate(errors.New("net::ERR_NAME_NOT_RESOLVED"))

	_, err := newTestLookup(TriggerButton, page).Run(context.Background(), "수원시")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
	assert.True(t, page.Closed())
}

func TestLookupPageNeverLoads(t *testing.T) {
	page := browsertest.New().SetReadyState("loading")

	_, err := newTestLookup(TriggerButton, page).Run(context.Background(), "수원시")
	assert.Error(t, err)
}

func TestLookupLaunchError(t *testing.T) {
	cfg := &config.Config{GrisURL: "https://gris.example/"}
	launch := func(ctx context.Context) (browser.Page, error) {
		return nil, errors.New("chrome not found")
	}

	_, err := New(cfg, launch, utils.NewLogger()).Run(context.Background(), "수원시")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
}

func TestLookupCancelledIsError(t *testing.T) {
	page := browsertest.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLookup(TriggerButton, page).Run(ctx, "수원시")
	assert.Error(t, err)
}
