package telemetry

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelAPI forwards every report to an inner API and additionally exports
// counts as otel gauges and breakages as an otel counter.
type OtelAPI struct {
	inner  API
	meter  metric.Meter
	broken metric.Int64Counter
	mutex  *sync.Mutex
	gauges map[string]metric.Int64Gauge
}

func NewOtelAPI(name string, inner API) (OtelAPI, error) {
	meter := otel.Meter(name)
	broken, err := meter.Int64Counter("broken_components")
	if err != nil {
		return OtelAPI{}, err
	}
	return OtelAPI{
		inner:  inner,
		meter:  meter,
		broken: broken,
		mutex:  &sync.Mutex{},
		gauges: map[string]metric.Int64Gauge{},
	}, nil
}

func (o OtelAPI) ReportBroken(id string, params ...any) {
	o.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportBroken(id, params...)
}

func (o OtelAPI) ReportWarning(id string, params ...any) {
	o.inner.ReportWarning(id, params...)
}

func (o OtelAPI) ReportDebug(msg string, params ...any) {
	o.inner.ReportDebug(msg, params...)
}

func (o OtelAPI) ReportCount(id string, count int64) {
	o.mutex.Lock()
	gauge, ok := o.gauges[id]
	if !ok {
		var err error
		gauge, err = o.meter.Int64Gauge(instrumentName(id))
		if err != nil {
			o.mutex.Unlock()
			o.inner.ReportWarning("otel.gauge", id, err)
			o.inner.ReportCount(id, count)
			return
		}
		o.gauges[id] = gauge
	}
	o.mutex.Unlock()

	gauge.Record(context.Background(), count)
	o.inner.ReportCount(id, count)
}

// otel instrument names may only contain alphanumerics and `_./-`.
func instrumentName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '.', r == '/', r == '-':
			return r
		}
		return '_'
	}, id)
}
