// Package gris looks up land-use information for an address on the
// Gyeonggi-do GIS one-stop portal by driving a real browser.
package gris

import (
	"context"
	"fmt"
	"strings"
	"time"

	"baikuk-automation/browser"
	"baikuk-automation/config"
	"baikuk-automation/models"
	"baikuk-automation/utils"
)

// Portal element locators.
const (
	XPathPopupClose   = `//*[@id="noticePopup"]/div/div/div/div/button`
	XPathEntry        = `//*[@id="container"]/div[3]/div/div[1]/div[1]/div[1]/div/a[1]`
	XPathSearchInput  = `//*[@id="searchText"]`
	XPathSearchButton = `//*[@id="searchVo"]/div/input[2]`
	XPathLandUseTab   = `//*[@id="ostpTab3"]/a`
	XPathLandUseImage = `//*[@id="totUseLandMltmImg"]`
)

// Search triggers.
const (
	TriggerButton = "BUTTON"
	TriggerEnter  = "ENTER"
)

// Timeouts bounds every wait of the lookup flow.
type Timeouts struct {
	PageLoad      time.Duration
	PopupClick    time.Duration
	PopupGone     time.Duration
	PopupReload   time.Duration
	Entry         time.Duration
	Type          time.Duration
	SearchButton  time.Duration
	TabFirst      time.Duration
	ImageAfterTab time.Duration
	ImageFirst    time.Duration
	TabAfterImage time.Duration
}

// DefaultTimeouts returns the timings the portal needs in practice.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PageLoad:      20 * time.Second,
		PopupClick:    3 * time.Second,
		PopupGone:     5 * time.Second,
		PopupReload:   10 * time.Second,
		Entry:         15 * time.Second,
		Type:          10 * time.Second,
		SearchButton:  20 * time.Second,
		TabFirst:      15 * time.Second,
		ImageAfterTab: 30 * time.Second,
		ImageFirst:    20 * time.Second,
		TabAfterImage: 10 * time.Second,
	}
}

// Result is the outcome of one lookup. Reason is set when OK is false.
type Result struct {
	OK      bool
	Reason  string
	LandUse *models.LandUse
}

// Lookup drives the portal.
type Lookup struct {
	url      string
	trigger  string
	timeouts Timeouts
	launch   browser.Launcher
	logger   *utils.Logger
}

// New creates a Lookup that opens a fresh browser per run.
func New(cfg *config.Config, launch browser.Launcher, logger *utils.Logger) *Lookup {
	trigger := strings.ToUpper(strings.TrimSpace(cfg.GrisSearchTrigger))
	if trigger != TriggerEnter {
		trigger = TriggerButton
	}
	return &Lookup{
		url:      cfg.GrisURL,
		trigger:  trigger,
		timeouts: DefaultTimeouts(),
		launch:   launch,
		logger:   logger,
	}
}

// WithTimeouts replaces the default timings.
func (l *Lookup) WithTimeouts(t Timeouts) *Lookup {
	l.timeouts = t
	return l
}

// Run opens the portal and, when address is not blank, searches it and
// opens the land-use tab. A browser failure is returned as an error; a page
// that does not behave yields Result{OK: false}.
func (l *Lookup) Run(ctx context.Context, address string) (Result, error) {
	address = strings.TrimSpace(address)

	page, err := l.launch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("gris: launch browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			l.logger.Warn("[gris] Closing browser: %v", err)
		}
	}()

	return l.drive(ctx, page, address)
}

func (l *Lookup) drive(ctx context.Context, page browser.Page, address string) (Result, error) {
	t := l.timeouts

	l.logger.Info("[gris] Opening %s", l.url)
	if err := page.Navigate(ctx, l.url); err != nil {
		return Result{}, fmt.Errorf("gris: %w", err)
	}
	if err := browser.WaitPageLoaded(ctx, page, t.PageLoad); err != nil {
		return Result{}, fmt.Errorf("gris: initial load: %w", err)
	}

	l.dismissPopup(ctx, page)

	if !browser.ClickAnyFrame(ctx, page, XPathEntry, t.Entry) {
		l.logger.Debug("[gris] Entry link not clicked, continuing")
	}

	if address == "" {
		l.logger.Info("[gris] No address given, portal left open")
		return Result{OK: true}, nil
	}

	if !browser.TypeAnyFrame(ctx, page, XPathSearchInput, address, t.Type, true) {
		return l.fail(ctx, "search input not found")
	}

	if l.trigger == TriggerEnter {
		// the portal sometimes searches on input alone, so the result is
		// still awaited
		if !browser.PressEnterAnyFrame(ctx, page, XPathSearchInput, t.Type) {
			l.logger.Warn("[gris] ENTER not sent to the search input, waiting for the result anyway")
		}
	} else if !browser.ClickAnyFrame(ctx, page, XPathSearchButton, t.SearchButton) {
		return l.fail(ctx, "search button not clicked")
	}
	l.logger.Info("[gris] Searching %q", address)

	frame, ok := l.openLandUse(ctx, page)
	if !ok {
		return l.fail(ctx, "land-use result did not appear")
	}

	res := Result{OK: true}
	if lu, err := l.extract(ctx, page, frame); err != nil {
		l.logger.Warn("[gris] Land-use panel not parsed: %v", err)
	} else {
		res.LandUse = lu
	}
	l.logger.Info("[gris] Land-use shown for %q (%s)", address, frame)
	return res, nil
}

// dismissPopup closes the notice popup when one is shown.
func (l *Lookup) dismissPopup(ctx context.Context, page browser.Page) {
	t := l.timeouts
	if !browser.ClickAnyFrame(ctx, page, XPathPopupClose, t.PopupClick) {
		l.logger.Debug("[gris] No notice popup")
		return
	}
	if !browser.WaitInvisibleAnyFrame(ctx, page, XPathPopupClose, t.PopupGone) {
		l.logger.Debug("[gris] Notice popup still visible")
	}
	if err := browser.WaitPageLoaded(ctx, page, t.PopupReload); err != nil {
		l.logger.Debug("[gris] Reload after popup: %v", err)
	}
}

// openLandUse tries tab-then-image first and image-then-tab second, since
// the portal sometimes renders the panel before the tab is clickable.
func (l *Lookup) openLandUse(ctx context.Context, page browser.Page) (browser.Frame, bool) {
	t := l.timeouts

	if browser.ClickAnyFrame(ctx, page, XPathLandUseTab, t.TabFirst) {
		if frame, ok := browser.WaitVisibleAnyFrame(ctx, page, XPathLandUseImage, t.ImageAfterTab); ok {
			return frame, true
		}
	}

	frame, ok := browser.WaitVisibleAnyFrame(ctx, page, XPathLandUseImage, t.ImageFirst)
	if !ok {
		return browser.MainFrame, false
	}
	if !browser.ClickAnyFrame(ctx, page, XPathLandUseTab, t.TabAfterImage) {
		return browser.MainFrame, false
	}
	return frame, true
}

func (l *Lookup) extract(ctx context.Context, page browser.Page, frame browser.Frame) (*models.LandUse, error) {
	html, err := page.HTML(ctx, frame)
	if err != nil {
		return nil, err
	}
	lu, err := ParseLandUse(html, l.url)
	if err != nil {
		return nil, err
	}
	return &lu, nil
}

func (l *Lookup) fail(ctx context.Context, reason string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("gris: %s: %w", reason, err)
	}
	l.logger.Warn("[gris] %s", reason)
	return Result{OK: false, Reason: reason}, nil
}
