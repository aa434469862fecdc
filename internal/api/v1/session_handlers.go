package v1

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// SessionHandler records and lists a trainer's training sessions.
type SessionHandler struct {
	store serviceStore
	log   logging.Logger
}

func NewSessionHandler(s serviceStore, log logging.Logger) *SessionHandler {
	return &SessionHandler{store: s, log: log}
}

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func parseDateFlexible(s string) (time.Time, error) {
	// Prefer YYYY-MM-DD for "date" fields; allow RFC3339 as fallback.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func sessionStatusValid(s string) bool {
	switch s {
	case "scheduled", "completed", "cancelled":
		return true
	}
	return false
}

// POST /trainers/me/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName  string   `json:"client_name"`
		SessionDate string   `json:"session_date"`
		StartTime   string   `json:"start_time"`
		EndTime     string   `json:"end_time"`
		SessionType string   `json:"session_type"`
		Status      string   `json:"status"`
		Earnings    *float64 `json:"earnings"`
		Rating      *int     `json:"rating"`
		Feedback    string   `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid request", nil, err.Error())
		return
	}

	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.SessionType) == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "client_name and session_type are required", nil, nil)
		return
	}
	date, err := parseDateFlexible(req.SessionDate)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid session_date", nil, err.Error())
		return
	}
	if !clockRe.MatchString(req.StartTime) || !clockRe.MatchString(req.EndTime) || req.EndTime <= req.StartTime {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "start_time and end_time must be HH:MM with end after start", nil, nil)
		return
	}
	if req.Status == "" {
		req.Status = "scheduled"
	}
	if !sessionStatusValid(req.Status) {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid status", nil, nil)
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "rating must be between 1 and 5", nil, nil)
		return
	}

	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}
	ts := &models.TrainerSession{
		ID:          utils.GenerateID(),
		TrainerID:   t.ID,
		ClientName:  req.ClientName,
		SessionDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SessionType: req.SessionType,
		Status:      req.Status,
		Earnings:    req.Earnings,
		Rating:      req.Rating,
		Feedback:    req.Feedback,
		CreatedAt:   time.Now(),
	}
	if err := h.store.CreateTrainerSession(r.Context(), ts); err != nil {
		internalError(w, r, h.log, "error creating session", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "session created", ts, nil)
}

// GET /trainers/me/sessions?month=&year=&status=
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TrainerSessionFilter{}

	monthStr, yearStr := q.Get("month"), q.Get("year")
	if monthStr != "" || yearStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil || month < 1 || month > 12 {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid month", nil, nil)
			return
		}
		year, err := strconv.Atoi(yearStr)
		if err != nil || year < 1970 || year > 2100 {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid year", nil, nil)
			return
		}
		f.From = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		f.To = f.From.AddDate(0, 1, 0)
	}
	if status := q.Get("status"); status != "" {
		if !sessionStatusValid(status) {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid status", nil, nil)
			return
		}
		f.Status = &status
	}

	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}
	f.TrainerID = t.ID
	sessions, err := h.store.ListTrainerSessions(r.Context(), f)
	if err != nil {
		internalError(w, r, h.log, "error fetching sessions", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", sessions, nil)
}
