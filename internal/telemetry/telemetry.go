package telemetry

import (
	"fmt"
)

// API is how the importer reports what happened during a run. Production
// code logs through slog (and otel when configured), tests assert on a
// Recorder.
//
// Ids name a component and method, not an outcome: `client.fetch-page`, not
// `client.fetch-page-failed`. They are lowercase, dashes separate words of a
// method and a ScopedAPI supplies the package prefix. Each package keeps its
// ids in `report_*` constants.
type API interface {
	// ReportBroken reports a failure that an operator should look at, a run
	// may still continue past it.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something unexpected that did not lose data, like
	// a skipped record or a strategy that found nothing.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount records the value of a counter at the end of a run.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with "<namespace>:" and every debug message
// with "<namespace>: ".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s:%s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s:%s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s:%s", s.namespace, id), count)
}
