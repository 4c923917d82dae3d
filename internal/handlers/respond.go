package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/middleware"
	"github.com/ukydev/fleet-rental/internal/models"
)

const maxBodyBytes = 1 << 20

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func (h *Handler) respondMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: true, Message: msg})
}

// fail writes err as an error envelope. Foreign errors become INTERNAL.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := errs.As(err)
	if !ok {
		e = errs.Internal(err, "internal server error")
	}
	body := Envelope{Message: e.Message, Code: e.Code, Details: e.Details}

	if e.Status >= http.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"request_id": middleware.RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(e).Error("request failed")
		if h.production {
			body.Message = "internal server error"
			body.Details = nil
		}
	}
	writeJSON(w, e.Status, body)
}

// decode reads a JSON body into v. A missing or malformed body is VALIDATION.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errs.Validation("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("request body is required")
		}
		return errs.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// actorOf returns the authenticated actor or nil.
func actorOf(r *http.Request) *models.Actor {
	a, _ := middleware.ActorFromContext(r.Context())
	return a
}
