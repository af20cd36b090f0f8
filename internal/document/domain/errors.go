package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidLineItems     = errors.New("invalid_line_items")
	ErrInvalidDocumentType  = errors.New("invalid_document_type")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidDiscount      = errors.New("invalid_discount")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidDocumentID    = errors.New("invalid_document_id")
	ErrInvalidPayment       = errors.New("invalid_payment")
	ErrDocumentLocked       = errors.New("document_locked")
	ErrIllegalTransition    = errors.New("illegal_transition")
	ErrIrreversibleDocument = errors.New("irreversible_document")
	ErrDuplicateNumber      = errors.New("duplicate_document_number")
	ErrAllocationFailure    = errors.New("number_allocation_failed")
	ErrUpstreamUnavailable  = errors.New("upstream_unavailable")
	ErrVersionConflict      = errors.New("version_conflict")
	ErrDocumentNotFound     = errors.New("document_not_found")
	ErrClientNotFound       = errors.New("client_not_found")
)

// TransitionError names the attempted operation and the state it was refused in.
type TransitionError struct {
	Op   string
	From Status
	Err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s document in status %s", e.Err, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func NewTransitionError(op string, from Status, err error) *TransitionError {
	return &TransitionError{Op: op, From: from, Err: err}
}

// FieldError describes one rejected field of one line item. Index is -1 for
// document-level fields.
type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field failure found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Index >= 0 {
			parts = append(parts, fmt.Sprintf("items[%d].%s %s", f.Index, f.Field, f.Message))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidLineItems, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidLineItems }

func (e *ValidationError) add(index int, field, message string) {
	e.Fields = append(e.Fields, FieldError{Index: index, Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
