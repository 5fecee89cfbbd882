// Package carrier automates the data-gift form on the mobile carrier's
// customer site: log in, open the data gift page and fill in the recipient.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"baikuk-automation/browser"
	"baikuk-automation/config"
	"baikuk-automation/models"
	"baikuk-automation/utils"
)

// Site element locators.
const (
	XPathExpiredClose = `//*[@id="expiredCloseIcon"]`
	XPathMyPage       = `//*[@id="header"]/div/div[2]/div/div[1]/div[5]/a`
	XPathLoginID      = `//*[@id="inputId"]`
	XPathPassword     = `//*[@id="inputPassword"]`
	XPathLoginButton  = `/html/body/div[1]/main/div[2]/div[1]/button`
	XPathDataGift     = `//*[@id="section_one_data"]/div/div[5]/button[2]`
	XPathRecipient    = `//*[@id="histSvcNum"]`
)

// Step names as they appear in reports.
const (
	StepCloseExpired = "close-expired-popup"
	StepMyPage       = "my-page"
	StepLoginID      = "login-id"
	StepPassword     = "password"
	StepLogin        = "login"
	StepDataGift     = "data-gift"
	StepRecipient    = "recipient"
)

type step struct {
	name    string
	xpath   string
	typeIt  bool
	text    string
	missing string
}

// Report lists what happened at each step.
type Report struct {
	Phone string
	Steps []models.StepResult
}

// OK is true when every step succeeded.
func (r Report) OK() bool {
	for _, s := range r.Steps {
		if !s.OK {
			return false
		}
	}
	return len(r.Steps) > 0
}

// Failed returns the names of the failed steps.
func (r Report) Failed() []string {
	var names []string
	for _, s := range r.Steps {
		if !s.OK {
			names = append(names, s.Name)
		}
	}
	return names
}

// Crawler runs the fixed step sequence in one browser window.
type Crawler struct {
	url         string
	loginID     string
	password    string
	stepTimeout time.Duration
	hold        time.Duration
	launch      browser.Launcher
	logger      *utils.Logger
}

// New creates a Crawler from config.
func New(cfg *config.Config, launch browser.Launcher, logger *utils.Logger) *Crawler {
	return &Crawler{
		url:         cfg.CarrierURL,
		loginID:     cfg.CarrierLoginID,
		password:    cfg.CarrierLoginPassword,
		stepTimeout: time.Duration(cfg.CarrierStepTimeoutSeconds) * time.Second,
		hold:        time.Duration(cfg.CarrierHoldSeconds) * time.Second,
		launch:      launch,
		logger:      logger,
	}
}

func (c *Crawler) steps(phone string) []step {
	return []step{
		{name: StepCloseExpired, xpath: XPathExpiredClose},
		{name: StepMyPage, xpath: XPathMyPage},
		{name: StepLoginID, xpath: XPathLoginID, text: c.loginID, typeIt: true, missing: "CARRIER_LOGIN_ID is not set"},
		{name: StepPassword, xpath: XPathPassword, text: c.password, typeIt: true, missing: "CARRIER_LOGIN_PASSWORD is not set"},
		{name: StepLogin, xpath: XPathLoginButton},
		{name: StepDataGift, xpath: XPathDataGift},
		{name: StepRecipient, xpath: XPathRecipient, text: phone, typeIt: true, missing: "no recipient number"},
	}
}

// Run performs every step, logging and recording failures without
// stopping, then keeps the window open for the hold period. The error is
// only set when the browser itself could not be used.
func (c *Crawler) Run(ctx context.Context, phone string) (Report, error) {
	report := Report{Phone: phone}

	page, err := c.launch(ctx)
	if err != nil {
		return report, fmt.Errorf("carrier: launch browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			c.logger.Warn("[carrier] Closing browser: %v", err)
		}
	}()

	c.logger.Info("[carrier] Opening %s", c.url)
	if err := page.Navigate(ctx, c.url); err != nil {
		return report, fmt.Errorf("carrier: %w", err)
	}

	for _, s := range c.steps(phone) {
		res := c.runStep(ctx, page, s)
		report.Steps = append(report.Steps, res)
		if res.OK {
			c.logger.Info("[carrier] %s done", s.name)
		} else {
			c.logger.Warn("[carrier] %s failed: %s", s.name, res.Error)
		}
	}

	if c.hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(c.hold):
		}
	}
	return report, nil
}

func (c *Crawler) runStep(ctx context.Context, page browser.Page, s step) models.StepResult {
	res := models.StepResult{Name: s.name}

	var err error
	switch {
	case s.typeIt && s.text == "":
		err = errors.New(s.missing)
	case s.typeIt:
		err = browser.WaitType(ctx, page, browser.MainFrame, s.xpath, s.text, c.stepTimeout, true)
	default:
		err = browser.WaitClick(ctx, page, browser.MainFrame, s.xpath, c.stepTimeout)
	}

	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	return res
}
