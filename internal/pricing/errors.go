package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is wrapped by every ValidationErrors value.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrProductNotFound reports an unknown catalog reference.
	ErrProductNotFound = errors.New("pricing: product not found")
	// ErrCurrencyNotFound reports an unknown currency reference.
	ErrCurrencyNotFound = errors.New("pricing: currency not found")
)

// ValidationError describes one offending field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field problems found before computing.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "pricing: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrInvalidInput
}

// Fields returns the errors keyed by field name.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.Field] = e.Message
	}
	return out
}

// CurrencyMismatchError is returned when an item would introduce a second
// currency into a bill.
type CurrencyMismatchError struct {
	BillCurrency string
	ItemCurrency string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("pricing: item currency %s does not match bill currency %s", e.ItemCurrency, e.BillCurrency)
}
