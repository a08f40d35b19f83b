package recordstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricsStore struct {
	reqs *prometheus.CounterVec
	errs *prometheus.CounterVec
	durs *prometheus.HistogramVec

	next Store
}

var _ Store = (*metricsStore)(nil)

// WithMetrics wraps next with call, error and latency metrics registered on
// reg.
func WithMetrics(reg prometheus.Registerer, next Store) Store {
	const namespace = "vesselportal"
	const subsystem = "recordstore"

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "call_total",
		Help:      "Number of calls made to the record store",
	}, []string{"op"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "error_total",
		Help:      "Number of failed record store calls",
	}, []string{"op", "code"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Duration of record store calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	reg.MustRegister(reqs, errs, durs)

	return &metricsStore{
		reqs: reqs,
		errs: errs,
		durs: durs,
		next: next,
	}
}

func (m *metricsStore) Query(ctx context.Context, q QueryRequest) ([]Row, error) {
	rec := m.record("query")
	rows, err := m.next.Query(ctx, q)
	return rows, rec(err)
}

func (m *metricsStore) Upsert(ctx context.Context, u UpsertRequest) (*UpsertResult, error) {
	rec := m.record("upsert")
	res, err := m.next.Upsert(ctx, u)
	return res, rec(err)
}

func (m *metricsStore) record(op string) func(error) error {
	start := time.Now()
	return func(err error) error {
		m.reqs.WithLabelValues(op).Inc()
		m.durs.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			m.errs.WithLabelValues(op, errorCode(err)).Inc()
		}
		return err
	}
}

func errorCode(err error) string {
	var rse *RemoteStoreError
	switch {
	case errors.As(err, &rse):
		return strconv.Itoa(rse.StatusCode)
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transport"
	}
}
