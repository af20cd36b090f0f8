package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, SchedulerJobReasonDeadlineExceeded},
		{"db_lock_timeout", &pgconn.PgError{Code: "55P03"}, SchedulerJobReasonDBLockTimeout},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, SchedulerJobReasonSerializationFailure},
		{"unique_violation", gorm.ErrDuplicatedKey, SchedulerJobReasonUniqueViolation},
		{"version_conflict", fmt.Errorf("mark overdue: %w", documentdomain.ErrVersionConflict), SchedulerJobReasonVersionConflict},
		{"illegal_transition", documentdomain.NewTransitionError("mark_overdue", documentdomain.StatusPaid, documentdomain.ErrIllegalTransition), SchedulerJobReasonBusinessRule},
		{"unknown", errors.New("boom"), SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry, Config{ServiceName: "docflow", Environment: "test"})

	m.IncJobRun("overdue_sweep")
	m.AddDocumentsProcessed("overdue_sweep", 3)
	m.AddDocumentsProcessed("overdue_sweep", 0)
	m.IncJobError("overdue_sweep", context.DeadlineExceeded)
	m.ObserveJobDuration("overdue_sweep", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRuns.WithLabelValues("overdue_sweep")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.documentsProcessed.WithLabelValues("overdue_sweep")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues("overdue_sweep", SchedulerJobReasonDeadlineExceeded)))

	again := NewSchedulerMetrics(registry, Config{ServiceName: "docflow", Environment: "test"})
	assert.NotNil(t, again)

	var nilMetrics *SchedulerMetrics
	nilMetrics.IncJobRun("noop")
}
