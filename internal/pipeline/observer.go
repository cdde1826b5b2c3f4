package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/papapumpkin/constellation/internal/inventory"
	"github.com/papapumpkin/constellation/internal/manifest"
	"github.com/papapumpkin/constellation/internal/metrics"
	"github.com/papapumpkin/constellation/internal/star"
	"github.com/papapumpkin/constellation/internal/telemetry"
)

// runObserver fans per-module batch outcomes out to telemetry, metrics and
// the debug log.
type runObserver struct {
	log     zerolog.Logger
	emitter *telemetry.Emitter
	metrics *metrics.Collector
}

type classifiedData struct {
	Star       star.Star   `json:"star"`
	Confidence float64     `json:"confidence"`
	Rule       string      `json:"rule,omitempty"`
	Reason     star.Reason `json:"reason"`
	Micros     int64       `json:"us"`
}

func (o *runObserver) ModuleDone(m inventory.Module, a star.Assignment, man *manifest.Manifest, took time.Duration, err error) {
	if o.metrics != nil && took > 0 {
		o.metrics.ClassifyDuration.Observe(took.Seconds())
	}
	key := m.Key()
	if err != nil {
		o.emitter.Record(telemetry.KindModuleFailed, key, map[string]string{"error": err.Error()}) //nolint:errcheck
		return
	}
	o.emitter.Record(telemetry.KindModuleClassified, key, classifiedData{ //nolint:errcheck
		Star:       man.Star,
		Confidence: man.Confidence,
		Rule:       a.Rule,
		Reason:     a.Reason,
		Micros:     took.Microseconds(),
	})
	o.log.Debug().
		Str("module", key).
		Str("star", string(man.Star)).
		Float64("confidence", man.Confidence).
		Str("rule", a.Rule).
		Msg("classified")
}
