package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/geoface/internal/attendance"
	"github.com/kozaktomas/geoface/internal/database"
	"github.com/kozaktomas/geoface/internal/faceapi"
	"github.com/kozaktomas/geoface/internal/facematch"
	"github.com/kozaktomas/geoface/internal/imageio"
	"github.com/kozaktomas/geoface/internal/logging"
)

const defaultListLimit = 100

// AttendanceHandler recognises uploaded photos and serves attendance records.
type AttendanceHandler struct {
	service *attendance.Service
	records database.AttendanceReader
	logger  *slog.Logger
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(service *attendance.Service, records database.AttendanceReader, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: service, records: records, logger: logging.OrDefault(logger)}
}

// RecognizeResponse lists the decision for every face in the upload.
type RecognizeResponse struct {
	Count int                   `json:"count"`
	Faces []facematch.FaceMatch `json:"faces"`
}

// Recognize handles POST /api/v1/recognize. Nothing is recorded.
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	data, name, ok := h.upload(w, r)
	if !ok {
		return
	}

	img, err := imageio.LoadBytes(data, name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := h.service.Recognize(r.Context(), img)
	if err != nil && !errors.Is(err, faceapi.ErrNoFace) {
		h.logger.Error("recognition failed", "file", sanitizeForLog(name), "error", err)
		respondError(w, http.StatusBadGateway, "face analysis failed")
		return
	}
	if matches == nil {
		matches = []facematch.FaceMatch{}
	}
	respondJSON(w, http.StatusOK, RecognizeResponse{Count: len(matches), Faces: matches})
}

// Attend handles POST /api/v1/attendance.
func (h *AttendanceHandler) Attend(w http.ResponseWriter, r *http.Request) {
	data, name, ok := h.upload(w, r)
	if !ok {
		return
	}

	out, err := h.service.AttendBytes(r.Context(), data, name)
	if err != nil {
		h.logger.Error("attendance failed", "file", sanitizeForLog(name), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}
	respondJSON(w, outcomeStatus(out.Status), out)
}

func outcomeStatus(s attendance.Status) int {
	switch s {
	case attendance.StatusRecorded:
		return http.StatusCreated
	case attendance.StatusInputUnusable:
		return http.StatusBadRequest
	case attendance.StatusLocationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// ListResponse is a page of attendance records, newest first.
type ListResponse struct {
	Records []database.AttendanceRecord `json:"records"`
	Count   int                         `json:"count"`
	Total   int64                       `json:"total"`
}

// List handles GET /api/v1/attendance?name=&since=&limit=.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := database.AttendanceFilter{
		Name:  r.URL.Query().Get("name"),
		Limit: defaultListLimit,
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}

	records, err := h.records.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing attendance failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	total, err := h.records.Count(r.Context(), filter)
	if err != nil {
		h.logger.Error("counting attendance failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to count attendance")
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, ListResponse{Records: records, Count: len(records), Total: total})
}

func (h *AttendanceHandler) upload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	data, name, err := readUpload(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	return data, name, true
}
