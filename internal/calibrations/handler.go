package calibrations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lsat-prep/calibration/internal/irt"
	"github.com/lsat-prep/calibration/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the calibration endpoints on the protected
// subrouter.
func (h *Handler) RegisterRoutes(protected *mux.Router) {
	protected.HandleFunc("/response-sets", h.CreateResponseSet).Methods("POST")
	protected.HandleFunc("/response-sets/{id}", h.GetResponseSet).Methods("GET")

	protected.HandleFunc("/calibrations", h.StartRun).Methods("POST")
	protected.HandleFunc("/calibrations", h.ListRuns).Methods("GET")
	protected.HandleFunc("/calibrations/{id}", h.GetRun).Methods("GET")
	protected.HandleFunc("/calibrations/{id}/stop", h.StopRun).Methods("POST")
	protected.HandleFunc("/calibrations/{id}/score", h.Score).Methods("POST")
	protected.HandleFunc("/calibrations/{id}/summary", h.Summarize).Methods("POST")
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) *int64 {
	if uid, ok := r.Context().Value("user_id").(int64); ok {
		return &uid
	}
	return nil
}

func (h *Handler) CreateResponseSet(w http.ResponseWriter, r *http.Request) {
	var req models.CreateResponseSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	set, err := h.service.CreateResponseSet(getUserID(r), req)
	if err != nil {
		if errors.Is(err, irt.ErrMalformedInput) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		log.Printf("[handler] CreateResponseSet error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create response set"})
		return
	}

	writeJSON(w, http.StatusCreated, set)
}

func (h *Handler) GetResponseSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	set, err := h.service.GetResponseSet(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Response set not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get response set"})
		return
	}

	writeJSON(w, http.StatusOK, set)
}

func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req models.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	run, err := h.service.StartRun(getUserID(r), req)
	if err != nil {
		switch {
		case errors.Is(err, irt.ErrInvalidConfiguration), errors.Is(err, irt.ErrMalformedInput):
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Response set not found"})
		default:
			log.Printf("[handler] StartRun error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start calibration"})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, run)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var status *models.RunStatus
	if s := query.Get("status"); s != "" {
		rs := models.RunStatus(s)
		status = &rs
	}

	limit := intQueryParam(query, "limit", 20)
	offset := intQueryParam(query, "offset", 0)

	runs, err := h.service.ListRuns(status, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list calibrations"})
		return
	}

	if runs == nil {
		runs = []models.CalibrationRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetRunDetail(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Calibration not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get calibration"})
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) StopRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.StopRun(id); err != nil {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.Score(id, req)
	if err != nil {
		switch {
		case errors.Is(err, irt.ErrMalformedInput), errors.Is(err, irt.ErrInvalidConfiguration):
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Calibration not found"})
		default:
			log.Printf("[handler] Score error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to score responses"})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Summarize(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Calibration not found"})
			return
		}
		log.Printf("[handler] Summarize error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to summarize calibration"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid id"})
		return 0, false
	}
	return id, true
}

func intQueryParam(query url.Values, key string, fallback int) int {
	if v := query.Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
