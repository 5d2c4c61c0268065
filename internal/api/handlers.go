package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/wakala/payments/internal/domain"
	"github.com/wakala/payments/internal/payments"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// The store computes OFFSET as page*size; capping page keeps that
	// product well inside int range. Pages past the data come back empty.
	maxPage = 1_000_000
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	svc    *payments.Service
	logger *zap.Logger
}

func NewHandlers(svc *payments.Service, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

// writeError maps a use-case error onto the transport response. This is the
// only place domain error kinds meet HTTP status codes.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	label := "Internal Server Error"

	var (
		validationErr *domain.ValidationError
		duplicateErr  *domain.DuplicateReferenceError
		notFoundErr   *domain.NotFoundError
		transitionErr *domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validationErr):
		status, label = http.StatusBadRequest, "Validation Error"
	case errors.As(err, &notFoundErr):
		status, label = http.StatusNotFound, "Not Found"
	case errors.As(err, &duplicateErr):
		status, label = http.StatusConflict, "Conflict"
	case errors.As(err, &transitionErr):
		status, label = http.StatusConflict, "Conflict"
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	h.writeJSON(w, status, errorResponse{
		Status:    status,
		Error:     label,
		Message:   err.Error(),
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handlers) writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeError(w, r, &domain.ValidationError{Message: msg})
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func parseIntDefault(s string, def, min int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < min {
		return 0, errors.New("out of range")
	}
	return v, nil
}

// --- CreatePayment ---

// CreatePayment handles POST /api/payments. Unknown body fields, including
// any attempt to supply a status, are ignored.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.Create(r.Context(), payments.CreateInput{
		Reference:  req.Reference,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Currency:   domain.Currency(req.Currency),
		Method:     domain.Method(req.Method),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newPaymentResponse(p))
}

// --- GetPayment ---

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newPaymentResponse(p))
}

// --- ListPayments ---

func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter domain.Filter

	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.Status = &status
	}
	filter.CustomerID = q.Get("customerId")

	from, err := parseTime(q.Get("from"))
	if err != nil {
		h.writeBadRequest(w, r, "invalid from date: "+q.Get("from"))
		return
	}
	filter.From = from

	to, err := parseTime(q.Get("to"))
	if err != nil {
		h.writeBadRequest(w, r, "invalid to date: "+q.Get("to"))
		return
	}
	filter.To = to

	filter.Page, err = parseIntDefault(q.Get("page"), 0, 0)
	if err != nil {
		h.writeBadRequest(w, r, "page must be a non-negative integer")
		return
	}
	if filter.Page > maxPage {
		filter.Page = maxPage
	}
	filter.Size, err = parseIntDefault(q.Get("size"), defaultPageSize, 1)
	if err != nil {
		h.writeBadRequest(w, r, "size must be a positive integer")
		return
	}
	if filter.Size > maxPageSize {
		filter.Size = maxPageSize
	}

	items, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newPagedResponse(items, filter.Page, filter.Size, total))
}

// --- UpdateStatus ---

func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if req.Status == "" {
		h.writeBadRequest(w, r, "status is required")
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newPaymentResponse(p))
}

// --- Healthz ---

func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
