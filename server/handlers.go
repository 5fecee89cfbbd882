package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"baikuk-automation/carrier"
	"baikuk-automation/gris"
	"baikuk-automation/jobs"
	"baikuk-automation/models"
	"baikuk-automation/utils"
)

const (
	bannerText         = "백억지도 API OK"
	msgAddressRequired = "address가 비어있습니다."
	msgPhoneRequired   = "전화번호가 없습니다."
	msgPhoneInvalid    = "전화번호 형식이 올바르지 않습니다."
	msgUnknownJob      = "unknown job_id"
	msgBusy            = "too many jobs, try again later"
	msgShuttingDown    = "server shutting down"
)

// LandUseLookup looks up one address on the land-use portal.
type LandUseLookup interface {
	Run(ctx context.Context, address string) (gris.Result, error)
}

// CrawlerStarter spawns the carrier crawler and returns its wait function.
type CrawlerStarter interface {
	Start(phone string) (func() error, error)
}

// Handlers serves the API routes.
type Handlers struct {
	runner  *jobs.Runner
	lookup  LandUseLookup
	crawler CrawlerStarter
	logger  *utils.Logger
}

// NewHandlers creates Handlers.
func NewHandlers(runner *jobs.Runner, lookup LandUseLookup, crawler CrawlerStarter, logger *utils.Logger) *Handlers {
	return &Handlers{runner: runner, lookup: lookup, crawler: crawler, logger: logger}
}

type grisStartRequest struct {
	Address string `json:"address"`
}

type grisStartResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
	Address string `json:"address"`
}

type jobResponse struct {
	OK  bool       `json:"ok"`
	Job models.Job `json:"job"`
}

type crawlerRequest struct {
	Phone string `json:"phone"`
}

type crawlerResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
}

// GrisStart handles POST /api/gris-start.
func (h *Handlers) GrisStart(w http.ResponseWriter, r *http.Request) {
	var req grisStartRequest
	// a malformed body is treated like an empty one
	_ = json.NewDecoder(r.Body).Decode(&req)

	address := strings.TrimSpace(req.Address)
	if address == "" {
		writeJSONError(w, http.StatusBadRequest, msgAddressRequired)
		return
	}

	job, err := h.runner.Start(models.Job{Kind: models.KindGris, Address: address}, func(ctx context.Context) jobs.Outcome {
		res, err := h.lookup.Run(ctx, address)
		if err != nil {
			return jobs.Outcome{Err: err}
		}
		return jobs.Outcome{OK: res.OK, Reason: res.Reason, LandUse: res.LandUse}
	})
	if err != nil {
		h.logger.Warn("[server] gris job rejected: %v", err)
		msg := msgShuttingDown
		if errors.Is(err, jobs.ErrTrackerFull) {
			msg = msgBusy
		}
		writeJSONError(w, http.StatusServiceUnavailable, msg)
		return
	}

	respondWithJSON(w, http.StatusAccepted, grisStartResponse{
		OK:      true,
		Message: "job accepted",
		JobID:   job.ID,
		Address: address,
	})
}

// GrisJob handles GET /api/gris-job/{id}.
func (h *Handlers) GrisJob(w http.ResponseWriter, r *http.Request) {
	h.getJob(w, r, models.KindGris)
}

// CrawlerJob handles GET /api/crawler-job/{id}.
func (h *Handlers) CrawlerJob(w http.ResponseWriter, r *http.Request) {
	h.getJob(w, r, models.KindCrawler)
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request, kind models.JobKind) {
	job, ok := h.runner.Tracker().Get(chi.URLParam(r, "id"))
	if !ok || job.Kind != kind {
		writeJSONError(w, http.StatusNotFound, msgUnknownJob)
		return
	}
	respondWithJSON(w, http.StatusOK, jobResponse{OK: true, Job: job})
}

// RunCrawler handles POST /run-crawler.
func (h *Handlers) RunCrawler(w http.ResponseWriter, r *http.Request) {
	var req crawlerRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if strings.TrimSpace(req.Phone) == "" {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": msgPhoneRequired})
		return
	}
	phone, err := carrier.NormalizePhone(req.Phone)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": msgPhoneInvalid})
		return
	}

	wait, err := h.crawler.Start(phone)
	if err != nil {
		h.logger.Error("[server] crawler start: %v", err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	job, err := h.runner.Watch(models.Job{Kind: models.KindCrawler, Phone: phone}, func(ctx context.Context) jobs.Outcome {
		if err := wait(); err != nil {
			return jobs.Outcome{Reason: err.Error()}
		}
		return jobs.Outcome{OK: true}
	})
	if err != nil {
		// the process is already running; reap it without tracking
		h.logger.Warn("[server] crawler job not tracked: %v", err)
		go func() {
			if err := wait(); err != nil {
				h.logger.Warn("[server] untracked crawler: %v", err)
			}
		}()
		respondWithJSON(w, http.StatusOK, crawlerResponse{Status: "crawler started"})
		return
	}

	respondWithJSON(w, http.StatusOK, crawlerResponse{Status: "crawler started", JobID: job.ID})
}

// Ping handles GET /api/ping.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "msg": "pong"})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Root handles GET /.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(bannerText))
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{"ok": false, "message": message})
}
