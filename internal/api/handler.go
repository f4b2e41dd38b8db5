// Package api serves the read-only loop status and a stateless decision
// endpoint.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"cropwatch/internal/classify"
	"cropwatch/internal/decision"
	"cropwatch/internal/pipeline"
	"cropwatch/internal/report"
	"cropwatch/internal/version"
)

// StatusSource reports the state of the running loop.
type StatusSource interface {
	Status() pipeline.Status
}

// Handler provides HTTP API endpoints. It never touches the camera or the
// classifier.
type Handler struct {
	engine   *decision.Engine
	recorder *report.Recorder
	loop     StatusSource
	labels   []string
}

// NewHandler creates a new API handler. loop and recorder may be nil.
func NewHandler(engine *decision.Engine, recorder *report.Recorder, loop StatusSource, labels []string) *Handler {
	return &Handler{
		engine:   engine,
		recorder: recorder,
		loop:     loop,
		labels:   append([]string(nil), labels...),
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")
	r.HandleFunc("/status", h.handleStatus).Methods("GET")
	r.HandleFunc("/decide", h.handleDecide).Methods("POST")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: error encoding response: %v", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version": version.Version,
		"commit":  version.GitCommit,
		"labels":  h.labels,
		"rules":   h.engine.Config(),
	}
	if len(h.labels) > 0 {
		info["classes"] = h.engine.Taxonomy().Partition(h.labels)
	}
	respondJSON(w, http.StatusOK, info)
}

type statusResponse struct {
	Loop       *pipeline.Status `json:"loop"`
	Analyses   int              `json:"analyses"`
	LastReport *report.Report   `json:"last_report"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse
	if h.loop != nil {
		st := h.loop.Status()
		resp.Loop = &st
	}
	if h.recorder != nil {
		resp.Analyses = h.recorder.Analyses()
		if last, ok := h.recorder.Last(); ok {
			resp.LastReport = &last
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type decideRequest struct {
	Label        string   `json:"label"`
	Confidence   *float64 `json:"confidence"`
	FieldAreaSqm *float64 `json:"field_area_sqm,omitempty"`
}

type decideResponse struct {
	Class          classify.Class          `json:"class"`
	FieldAreaSqm   float64                 `json:"field_area_sqm"`
	Recommendation decision.Recommendation `json:"recommendation"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Label == "" || req.Confidence == nil {
		respondError(w, http.StatusBadRequest, "label and confidence are required")
		return
	}

	area := decision.DefaultFieldAreaSqm
	if req.FieldAreaSqm != nil {
		area = *req.FieldAreaSqm
	}

	res := classify.Result{Label: req.Label, Confidence: *req.Confidence}
	rec, err := h.engine.Decide(res, area)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, decision.ErrInvalidConfidence) || errors.Is(err, decision.ErrInvalidFieldArea) {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, decideResponse{
		Class:          h.engine.Taxonomy().Classify(req.Label),
		FieldAreaSqm:   area,
		Recommendation: rec,
	})
}
