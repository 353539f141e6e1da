// Package process_stats counts snapshot passes with prometheus collectors
package process_stats

import (
	"errors"
	"fmt"
	"time"

	"proctree/process"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	opensName    = "proctree_snapshot_opens_total"
	recordsName  = "proctree_snapshot_records_total"
	durationName = "proctree_snapshot_pass_duration_seconds"
)

type metrics struct {
	opens    *prometheus.CounterVec
	records  prometheus.Counter
	duration prometheus.Histogram
}

// InstrumentedProvider wraps a provider and records every pass it opens
type InstrumentedProvider struct {
	inner    process.SnapshotProvider
	m        *metrics
	gatherer prometheus.Gatherer
}

// Instrument registers the snapshot collectors with reg and wraps provider.
// A nil reg uses a private registry, which keeps repeated calls from
// colliding.
func Instrument(provider process.SnapshotProvider, reg prometheus.Registerer) *InstrumentedProvider {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	gatherer, _ := reg.(prometheus.Gatherer)

	return &InstrumentedProvider{
		inner:    provider,
		gatherer: gatherer,
		m: &metrics{
			opens: factory.NewCounterVec(
				prometheus.CounterOpts{
					Name: opensName,
					Help: "Snapshot passes opened, by result",
				},
				[]string{"result"},
			),
			records: factory.NewCounter(
				prometheus.CounterOpts{
					Name: recordsName,
					Help: "Process records yielded by snapshot passes",
				},
			),
			duration: factory.NewHistogram(
				prometheus.HistogramOpts{
					Name:    durationName,
					Help:    "Time from opening a snapshot pass to closing it",
					Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
			),
		},
	}
}

func (p *InstrumentedProvider) Open() (process.Snapshot, error) {
	snap, err := p.inner.Open()
	if err != nil {
		p.m.opens.WithLabelValues("error").Inc()
		return nil, err
	}
	p.m.opens.WithLabelValues("ok").Inc()
	return &instrumentedSnapshot{Snapshot: snap, m: p.m, start: time.Now()}, nil
}

// Summary gathers the totals recorded so far. It needs a registerer that
// is also a gatherer, such as *prometheus.Registry.
func (p *InstrumentedProvider) Summary() (Summary, error) {
	if p.gatherer == nil {
		return Summary{}, errors.New("registerer cannot be gathered")
	}
	return Summarize(p.gatherer)
}

type instrumentedSnapshot struct {
	process.Snapshot
	m      *metrics
	start  time.Time
	closed bool
}

func (s *instrumentedSnapshot) Next() bool {
	if !s.Snapshot.Next() {
		return false
	}
	s.m.records.Inc()
	return true
}

func (s *instrumentedSnapshot) Close() error {
	if !s.closed {
		s.closed = true
		s.m.duration.Observe(time.Since(s.start).Seconds())
	}
	return s.Snapshot.Close()
}

// Summary holds the totals gathered from a registry
type Summary struct {
	Opens        int
	FailedOpens  int
	Records      int
	Passes       int // completed passes
	PassDuration time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("opens=%d failed=%d records=%d passes=%d time=%s",
		s.Opens, s.FailedOpens, s.Records, s.Passes, s.PassDuration)
}

// Summarize reads the snapshot collectors back out of g
func Summarize(g prometheus.Gatherer) (Summary, error) {
	families, err := g.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var s Summary
	for _, mf := range families {
		switch mf.GetName() {
		case opensName:
			for _, m := range mf.GetMetric() {
				n := int(m.GetCounter().GetValue())
				s.Opens += n
				if labelValue(m, "result") == "error" {
					s.FailedOpens += n
				}
			}
		case recordsName:
			for _, m := range mf.GetMetric() {
				s.Records += int(m.GetCounter().GetValue())
			}
		case durationName:
			for _, m := range mf.GetMetric() {
				h := m.GetHistogram()
				s.Passes += int(h.GetSampleCount())
				s.PassDuration += time.Duration(h.GetSampleSum() * float64(time.Second))
			}
		}
	}
	return s, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
