package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	sched   ports.SchedulingAPI
	trigger ports.Trigger
}

type scheduleReq struct {
	ContentID   string    `json:"contentId"`
	AccountIDs  []string  `json:"accountIds"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (r scheduleReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ContentID, validation.Required),
		validation.Field(&r.AccountIDs, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.ScheduledAt, validation.Required),
	)
}

type rescheduleReq struct {
	ScheduledAt time.Time `json:"scheduledAt"`
}

func (r rescheduleReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ScheduledAt, validation.Required),
	)
}

type postsResp struct {
	Posts []domain.ScheduledPost `json:"posts"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *handlers) schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleReq
	if !decode(w, r, &req) {
		return
	}

	posts, err := h.sched.Schedule(r.Context(), userID(r.Context()), req.ContentID, req.AccountIDs, req.ScheduledAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, postsResp{Posts: posts})
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	posts, err := h.sched.List(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postsResp{Posts: posts})
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.Cancel(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleReq
	if !decode(w, r, &req) {
		return
	}

	if err := h.sched.Reschedule(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.ScheduledAt); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) failure(w http.ResponseWriter, r *http.Request) {
	p, err := h.sched.FailedPost(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) processDue(w http.ResponseWriter, r *http.Request) {
	report, err := h.trigger.ProcessDue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// decode reads a JSON body into v and validates it, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidSchedule):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPostInFlight):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
