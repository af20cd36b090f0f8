// Package lifecycle is the document state machine. Every function either
// applies a legal transition to the document in place or returns a
// *domain.TransitionError and leaves the document untouched.
package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/document/domain"
)

const (
	OpEdit        = "edit"
	OpSend        = "send"
	OpMarkPaid    = "mark_paid"
	OpMarkOverdue = "mark_overdue"
	OpCancel      = "cancel"
	OpDelete      = "delete"
)

// transitions lists the legal targets of each status.
// Flow: draft → sent → {partially_paid, paid, overdue} → paid.
// cancelled is reachable from draft and sent only.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusDraft:         {domain.StatusSent, domain.StatusCancelled},
	domain.StatusSent:          {domain.StatusPartiallyPaid, domain.StatusPaid, domain.StatusOverdue, domain.StatusCancelled},
	domain.StatusPartiallyPaid: {domain.StatusPartiallyPaid, domain.StatusPaid, domain.StatusOverdue},
	domain.StatusOverdue:       {domain.StatusOverdue, domain.StatusPaid},
	domain.StatusPaid:          {},
	domain.StatusCancelled:     {},
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to domain.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from current.
func NextStatuses(current domain.Status) []domain.Status {
	return append([]domain.Status(nil), transitions[current]...)
}

func illegal(op string, from domain.Status) error {
	return domain.NewTransitionError(op, from, domain.ErrIllegalTransition)
}

// Create puts a new document into draft.
func Create(doc *domain.Document) {
	doc.Status = domain.StatusDraft
	doc.IsLocked = false
}

// CanEdit returns DocumentLocked unless doc is an unlocked draft.
func CanEdit(doc *domain.Document) error {
	if doc.Status != domain.StatusDraft || doc.IsLocked {
		return domain.NewTransitionError(OpEdit, doc.Status, domain.ErrDocumentLocked)
	}
	return nil
}

// Send moves a draft to sent and locks it. There is no way back.
func Send(doc *domain.Document, now time.Time) error {
	if doc.Status != domain.StatusDraft {
		return illegal(OpSend, doc.Status)
	}
	doc.Status = domain.StatusSent
	doc.IsLocked = true
	doc.SentAt = &now
	return nil
}

// MarkPaid classifies an invoice by the total paid against it. A zero total
// leaves the document as it is.
func MarkPaid(doc *domain.Document, paid decimal.Decimal, now time.Time) error {
	if !doc.DocumentType.Payable() {
		return illegal(OpMarkPaid, doc.Status)
	}
	switch doc.Status {
	case domain.StatusSent, domain.StatusPartiallyPaid, domain.StatusOverdue:
	default:
		return illegal(OpMarkPaid, doc.Status)
	}
	if !paid.IsPositive() {
		return nil
	}

	target := domain.StatusPartiallyPaid
	switch {
	case !Outstanding(doc, paid).IsPositive():
		target = domain.StatusPaid
	case doc.Status == domain.StatusOverdue:
		target = domain.StatusOverdue
	}
	if !CanTransition(doc.Status, target) {
		return illegal(OpMarkPaid, doc.Status)
	}

	doc.Status = target
	doc.IsLocked = true
	if target == domain.StatusPaid {
		doc.PaidAt = &now
	}
	return nil
}

// MarkOverdue records the overdue state explicitly once the due date has passed.
func MarkOverdue(doc *domain.Document, now time.Time) error {
	if !doc.DocumentType.Payable() || !CanTransition(doc.Status, domain.StatusOverdue) || doc.Status == domain.StatusOverdue {
		return illegal(OpMarkOverdue, doc.Status)
	}
	if doc.DueDate == nil || !now.After(*doc.DueDate) {
		return illegal(OpMarkOverdue, doc.Status)
	}
	doc.Status = domain.StatusOverdue
	doc.OverdueAt = &now
	return nil
}

// Cancel is legal from draft or sent while no payment has been recorded.
func Cancel(doc *domain.Document, paymentCount int, now time.Time) error {
	if paymentCount > 0 || !CanTransition(doc.Status, domain.StatusCancelled) {
		return illegal(OpCancel, doc.Status)
	}
	doc.Status = domain.StatusCancelled
	doc.IsLocked = true
	doc.CancelledAt = &now
	return nil
}

// Delete only checks; removing the row is the caller's job.
func Delete(doc *domain.Document) error {
	if doc.Status != domain.StatusDraft {
		return domain.NewTransitionError(OpDelete, doc.Status, domain.ErrIrreversibleDocument)
	}
	return nil
}

// EffectiveStatus derives overdue for a sent invoice with no payments whose due
// date has passed. The stored status is not changed.
func EffectiveStatus(doc *domain.Document, paid decimal.Decimal, now time.Time) domain.Status {
	if doc.Status == domain.StatusSent &&
		doc.DocumentType.Payable() &&
		!paid.IsPositive() &&
		doc.DueDate != nil &&
		now.After(*doc.DueDate) {
		return domain.StatusOverdue
	}
	return doc.Status
}

// Outstanding is grand total minus payments, never below zero.
func Outstanding(doc *domain.Document, paid decimal.Decimal) decimal.Decimal {
	remaining := doc.Totals.GrandTotal.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
