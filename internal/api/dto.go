package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wakala/payments/internal/domain"
)

type createPaymentRequest struct {
	Reference  string          `json:"reference"`
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Method     string          `json:"method"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type paymentResponse struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Method     string          `json:"method"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:         p.ID,
		Reference:  p.Reference,
		CustomerID: p.CustomerID,
		Amount:     p.Amount,
		Currency:   string(p.Currency),
		Method:     string(p.Method),
		Status:     string(p.Status()),
		CreatedAt:  p.CreatedAt,
	}
}

type pagedResponse struct {
	Content       []paymentResponse `json:"content"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int64             `json:"totalPages"`
}

func newPagedResponse(items []domain.Payment, page, size int, total int64) pagedResponse {
	content := make([]paymentResponse, 0, len(items))
	for i := range items {
		content = append(content, newPaymentResponse(&items[i]))
	}

	var totalPages int64
	if size > 0 {
		totalPages = (total + int64(size) - 1) / int64(size)
	}

	return pagedResponse{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

type errorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}
