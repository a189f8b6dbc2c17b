package jaillog

import (
	"context"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/htmlutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("jaillog/internal/scrapers/jaillog")

const (
	report_chain_extract = "chain.extract"
)

// Extractor is one strategy for reading bookings out of a page. An empty
// result means the strategy did not recognize the page.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, doc *htmlutil.Document) []bookings.Raw
}

// Chain tries each extractor in order and keeps the first non-empty result.
type Chain struct {
	extractors []Extractor
	tel        telemetry.API
}

func NewChain(tel telemetry.API, extractors ...Extractor) Chain {
	return Chain{extractors: extractors, tel: tel}
}

// DefaultChain is the structured table extractor followed by the free text
// fallback.
func DefaultChain(tel telemetry.API) Chain {
	tel = telemetry.NewScopedAPI("jaillog", tel)
	return NewChain(tel, NewTableExtractor(tel), NewTextExtractor(tel))
}

// Extract returns the records of the first strategy that found any, along
// with that strategy's name. It returns an empty name when no strategy
// matched.
func (c Chain) Extract(ctx context.Context, doc *htmlutil.Document) ([]bookings.Raw, string) {
	ctx, span := tracer.Start(ctx, "Chain.Extract")
	defer span.End()

	for _, e := range c.extractors {
		records := e.Extract(ctx, doc)
		if len(records) > 0 {
			c.tel.ReportDebug("extracted bookings", e.Name(), len(records))
			return records, e.Name()
		}
		c.tel.ReportWarning(report_chain_extract, "no bookings found", e.Name())
	}
	return nil, ""
}
