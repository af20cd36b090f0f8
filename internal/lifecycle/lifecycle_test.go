package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newInvoice(total int64) *domain.Document {
	doc := &domain.Document{DocumentType: domain.TypeInvoice}
	doc.Totals.GrandTotal = decimal.NewFromInt(total)
	Create(doc)
	return doc
}

func sentInvoice(t *testing.T, total int64) *domain.Document {
	t.Helper()
	doc := newInvoice(total)
	require.NoError(t, Send(doc, now))
	return doc
}

func TestCreate(t *testing.T) {
	doc := newInvoice(100)
	assert.Equal(t, domain.StatusDraft, doc.Status)
	assert.False(t, doc.IsLocked)
	assert.NoError(t, CanEdit(doc))
}

func TestSend_LocksDocument(t *testing.T) {
	doc := sentInvoice(t, 100)
	assert.Equal(t, domain.StatusSent, doc.Status)
	assert.True(t, doc.IsLocked)
	require.NotNil(t, doc.SentAt)
	assert.Equal(t, now, *doc.SentAt)

	err := Send(doc, now)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestSendThenEdit_IsLocked(t *testing.T) {
	doc := sentInvoice(t, 100)
	err := CanEdit(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentLocked)

	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, OpEdit, terr.Op)
	assert.Equal(t, domain.StatusSent, terr.From)
	assert.Contains(t, err.Error(), "edit")
	assert.Contains(t, err.Error(), "sent")
}

func TestSendThenDelete_IsIrreversible(t *testing.T) {
	doc := sentInvoice(t, 100)
	assert.ErrorIs(t, Delete(doc), domain.ErrIrreversibleDocument)
	assert.NoError(t, Delete(newInvoice(100)))
}

func TestMarkPaid(t *testing.T) {
	t.Run("partial then full", func(t *testing.T) {
		doc := sentInvoice(t, 100)
		require.NoError(t, MarkPaid(doc, decimal.NewFromInt(40), now))
		assert.Equal(t, domain.StatusPartiallyPaid, doc.Status)
		assert.Nil(t, doc.PaidAt)

		require.NoError(t, MarkPaid(doc, decimal.NewFromInt(100), now))
		assert.Equal(t, domain.StatusPaid, doc.Status)
		assert.NotNil(t, doc.PaidAt)
	})

	t.Run("overpayment is paid", func(t *testing.T) {
		doc := sentInvoice(t, 100)
		require.NoError(t, MarkPaid(doc, decimal.NewFromInt(150), now))
		assert.Equal(t, domain.StatusPaid, doc.Status)
		assert.True(t, Outstanding(doc, decimal.NewFromInt(150)).IsZero())
	})

	t.Run("zero payments leave status", func(t *testing.T) {
		doc := sentInvoice(t, 100)
		require.NoError(t, MarkPaid(doc, decimal.Zero, now))
		assert.Equal(t, domain.StatusSent, doc.Status)
	})

	t.Run("overdue partial stays overdue", func(t *testing.T) {
		doc := sentInvoice(t, 100)
		due := now.Add(-time.Hour)
		doc.DueDate = &due
		require.NoError(t, MarkOverdue(doc, now))
		require.NoError(t, MarkPaid(doc, decimal.NewFromInt(10), now))
		assert.Equal(t, domain.StatusOverdue, doc.Status)
		require.NoError(t, MarkPaid(doc, decimal.NewFromInt(100), now))
		assert.Equal(t, domain.StatusPaid, doc.Status)
	})

	t.Run("draft cannot be paid", func(t *testing.T) {
		doc := newInvoice(100)
		assert.ErrorIs(t, MarkPaid(doc, decimal.NewFromInt(100), now), domain.ErrIllegalTransition)
		assert.Equal(t, domain.StatusDraft, doc.Status)
	})

	t.Run("quotation cannot be paid", func(t *testing.T) {
		doc := &domain.Document{DocumentType: domain.TypeQuotation}
		Create(doc)
		require.NoError(t, Send(doc, now))
		assert.ErrorIs(t, MarkPaid(doc, decimal.NewFromInt(1), now), domain.ErrIllegalTransition)
	})
}

func TestMarkOverdue(t *testing.T) {
	doc := sentInvoice(t, 100)
	assert.ErrorIs(t, MarkOverdue(doc, now), domain.ErrIllegalTransition, "no due date")

	due := now.Add(24 * time.Hour)
	doc.DueDate = &due
	assert.ErrorIs(t, MarkOverdue(doc, now), domain.ErrIllegalTransition, "not yet due")

	require.NoError(t, MarkOverdue(doc, now.Add(48*time.Hour)))
	assert.Equal(t, domain.StatusOverdue, doc.Status)
	assert.NotNil(t, doc.OverdueAt)

	assert.ErrorIs(t, MarkOverdue(doc, now.Add(72*time.Hour)), domain.ErrIllegalTransition, "already overdue")
}

func TestCancel(t *testing.T) {
	draft := newInvoice(100)
	require.NoError(t, Cancel(draft, 0, now))
	assert.Equal(t, domain.StatusCancelled, draft.Status)
	assert.True(t, draft.IsLocked)
	assert.NotNil(t, draft.CancelledAt)

	sent := sentInvoice(t, 100)
	assert.ErrorIs(t, Cancel(sent, 1, now), domain.ErrIllegalTransition)
	require.NoError(t, Cancel(sent, 0, now))

	paid := sentInvoice(t, 100)
	require.NoError(t, MarkPaid(paid, decimal.NewFromInt(100), now))
	assert.ErrorIs(t, Cancel(paid, 0, now), domain.ErrIllegalTransition)
}

func TestEffectiveStatus(t *testing.T) {
	doc := sentInvoice(t, 100)
	due := now.Add(24 * time.Hour)
	doc.DueDate = &due

	assert.Equal(t, domain.StatusSent, EffectiveStatus(doc, decimal.Zero, now))
	assert.Equal(t, domain.StatusOverdue, EffectiveStatus(doc, decimal.Zero, now.Add(48*time.Hour)))
	assert.Equal(t, domain.StatusSent, EffectiveStatus(doc, decimal.NewFromInt(1), now.Add(48*time.Hour)))
	assert.Equal(t, domain.StatusSent, doc.Status)
}

func TestTransitionTableIsClosed(t *testing.T) {
	for _, terminal := range []domain.Status{domain.StatusPaid, domain.StatusCancelled} {
		assert.Empty(t, NextStatuses(terminal))
	}
	assert.False(t, CanTransition(domain.StatusSent, domain.StatusDraft))
	assert.False(t, CanTransition(domain.StatusOverdue, domain.StatusCancelled))
	assert.True(t, CanTransition(domain.StatusDraft, domain.StatusSent))
}
