package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Currency string

const (
	CurrencyCOP Currency = "COP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

type Method string

const (
	MethodCard     Method = "CARD"
	MethodPSE      Method = "PSE"
	MethodTransfer Method = "TRANSFER"
)

// ParseStatus maps a raw string onto a known Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(s)) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("unknown status %q", s)}
}

func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(s)) {
	case CurrencyCOP:
		return CurrencyCOP, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	case CurrencyEUR:
		return CurrencyEUR, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("unknown currency %q", s)}
}

func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToUpper(s)) {
	case MethodCard:
		return MethodCard, nil
	case MethodPSE:
		return MethodPSE, nil
	case MethodTransfer:
		return MethodTransfer, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("unknown payment method %q", s)}
}

// Payment is a record of a single payment request and its lifecycle status.
//
// The status field is deliberately unexported: PENDING payments may move to
// APPROVED or REJECTED exactly once via TransitionTo, and nothing else may
// write the field. All other attributes are fixed at creation.
type Payment struct {
	ID         string
	Reference  string
	CustomerID string
	Amount     decimal.Decimal
	Currency   Currency
	Method     Method
	CreatedAt  time.Time

	status Status
}

// NewPayment validates the creation attributes and returns a payment in
// PENDING status with CreatedAt set to the current UTC time. The ID is left
// empty; the store assigns it on first save.
func NewPayment(reference, customerID string, amount decimal.Decimal, currency Currency, method Method) (*Payment, error) {
	var problems []string
	if strings.TrimSpace(reference) == "" {
		problems = append(problems, "reference is required")
	}
	if strings.TrimSpace(customerID) == "" {
		problems = append(problems, "customerId is required")
	}
	if !amount.IsPositive() {
		problems = append(problems, "amount must be greater than zero")
	}
	cur, err := ParseCurrency(string(currency))
	if err != nil {
		problems = append(problems, fmt.Sprintf("unknown currency %q", currency))
	}
	met, err := ParseMethod(string(method))
	if err != nil {
		problems = append(problems, fmt.Sprintf("unknown payment method %q", method))
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Message: strings.Join(problems, ", ")}
	}

	return &Payment{
		Reference:  reference,
		CustomerID: customerID,
		Amount:     amount,
		Currency:   cur,
		Method:     met,
		CreatedAt:  time.Now().UTC(),
		status:     StatusPending,
	}, nil
}

// Rehydrate rebuilds a payment from stored attributes. It is intended for
// store implementations loading persisted rows and performs no validation.
func Rehydrate(id, reference, customerID string, amount decimal.Decimal, currency Currency, method Method, status Status, createdAt time.Time) *Payment {
	return &Payment{
		ID:         id,
		Reference:  reference,
		CustomerID: customerID,
		Amount:     amount,
		Currency:   currency,
		Method:     method,
		CreatedAt:  createdAt,
		status:     status,
	}
}

func (p *Payment) Status() Status {
	return p.status
}

// CanTransitionTo reports whether moving to target is legal from the current
// status. Only PENDING has outgoing transitions, to APPROVED or REJECTED.
func (p *Payment) CanTransitionTo(target Status) bool {
	if p.status != StatusPending {
		return false
	}
	return target == StatusApproved || target == StatusRejected
}

// TransitionTo moves the payment to target if the transition is legal, and
// otherwise returns an InvalidTransitionError leaving the status untouched.
func (p *Payment) TransitionTo(target Status) error {
	if !p.CanTransitionTo(target) {
		return &InvalidTransitionError{From: p.status, To: target}
	}
	p.status = target
	return nil
}
