// Package reconcile runs an import: it fetches the jail log, extracts and
// normalizes bookings, and brings the stores in line with them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/chrono"
	"jaillog-backend/internal/scrapers/jaillog"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/htmlutil"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("jaillog/internal/reconcile")

const (
	report_run_fetch          = "run.fetch"
	report_run_extract        = "run.extract"
	report_run_skip           = "run.skip"
	report_run_upsert         = "run.upsert"
	report_run_charges        = "run.charges"
	report_run_photo          = "run.photo"
	report_run_processed      = "run.processed"
	report_run_skipped        = "run.skipped"
	report_run_failed_batches = "run.failed_batches"
	report_run_photos_synced  = "run.photos_synced"
	report_run_photo_failures = "run.photo_failures"
)

const (
	DefaultBatchSize = 100
	diagnosticLength = 500
)

// ErrNoBookings is returned when a page yields no bookings at all, which
// usually means the portal markup changed.
var ErrNoBookings = errors.New("no bookings extracted")

type PageSource interface {
	FetchPage(ctx context.Context) (*htmlutil.Document, error)
}

type PhotoSource interface {
	FetchPhoto(ctx context.Context, url string) (jaillog.Photo, error)
}

type Extractor interface {
	Extract(ctx context.Context, doc *htmlutil.Document) ([]bookings.Raw, string)
}

type BookingStore interface {
	UpsertBookings(ctx context.Context, batch []bookings.Booking) error
	ReplaceCharges(ctx context.Context, bookingNo string, charges []bookings.Charge) error
	SetPhotoURL(ctx context.Context, bookingNo, url string) error
}

type PhotoStore interface {
	PutPhoto(ctx context.Context, bookingNo string, data []byte, contentType string) (string, error)
}

type Options struct {
	Policy      bookings.Policy
	BatchSize   int
	SyncCharges bool
	SyncPhotos  bool
	// PhotoWorkers above 1 syncs photos concurrently.
	PhotoWorkers int
}

// Dependencies of a Coordinator. Pages and Photos may be nil when only
// RunRecords is used or photo sync is disabled.
type Dependencies struct {
	Pages      PageSource
	Photos     PhotoSource
	Extractor  Extractor
	Bookings   BookingStore
	PhotoStore PhotoStore
	Time       chrono.TimeAPI
	Tel        telemetry.API
}

type Coordinator struct {
	deps    Dependencies
	options Options
	tel     telemetry.API
}

func NewCoordinator(deps Dependencies, options Options) *Coordinator {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	if deps.Time == nil {
		deps.Time = chrono.NewStandardTime()
	}
	return &Coordinator{
		deps:    deps,
		options: options,
		tel:     telemetry.NewScopedAPI("reconcile", deps.Tel),
	}
}

func (c *Coordinator) begin() Summary {
	summary := newSummary()
	summary.Started = c.deps.Time.Now()
	id, err := random.String(12)
	if err != nil {
		id = fmt.Sprint(summary.Started.UnixNano())
	}
	summary.RunID = id
	return summary
}

func (c *Coordinator) finish(summary *Summary) {
	summary.Completed = c.deps.Time.Now()
	c.tel.ReportCount(report_run_processed, int64(summary.Processed))
	c.tel.ReportCount(report_run_skipped, int64(summary.SkippedTotal()))
	c.tel.ReportCount(report_run_failed_batches, int64(summary.FailedBatches))
	c.tel.ReportCount(report_run_photos_synced, int64(summary.PhotosSynced))
	c.tel.ReportCount(report_run_photo_failures, int64(summary.PhotoFailures))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Run performs a full import from the page source.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	summary := c.begin()
	span.SetAttributes(attribute.String("run_id", summary.RunID))

	doc, err := c.deps.Pages.FetchPage(ctx)
	if err != nil {
		err = fmt.Errorf("fetch page: %w", err)
		c.tel.ReportBroken(report_run_fetch, err)
		c.finish(&summary)
		endSpan(span, err)
		return summary, err
	}
	summary.Stage = StageFetched

	err = c.runDocument(ctx, doc, &summary)
	c.finish(&summary)
	endSpan(span, err)
	return summary, err
}

// RunDocument performs an import of an already fetched page.
func (c *Coordinator) RunDocument(ctx context.Context, doc *htmlutil.Document) (Summary, error) {
	ctx, span := tracer.Start(ctx, "RunDocument")
	summary := c.begin()
	summary.Stage = StageFetched

	err := c.runDocument(ctx, doc, &summary)
	c.finish(&summary)
	endSpan(span, err)
	return summary, err
}

// RunRecords imports records that were extracted elsewhere, starting at
// deduplication.
func (c *Coordinator) RunRecords(ctx context.Context, records []bookings.Raw) (Summary, error) {
	ctx, span := tracer.Start(ctx, "RunRecords")
	summary := c.begin()
	summary.Stage = StageExtracted
	summary.Extracted = len(records)

	var err error
	if len(records) == 0 {
		err = ErrNoBookings
	} else {
		err = c.reconcile(ctx, records, &summary)
	}
	c.finish(&summary)
	endSpan(span, err)
	return summary, err
}

func pageDiagnostic(doc *htmlutil.Document) string {
	text := doc.Text(" ")
	if utf8.RuneCountInString(text) <= diagnosticLength {
		return text
	}
	return string([]rune(text)[:diagnosticLength])
}

func (c *Coordinator) runDocument(ctx context.Context, doc *htmlutil.Document, summary *Summary) error {
	records, provenance := c.deps.Extractor.Extract(ctx, doc)
	summary.Stage = StageExtracted
	summary.Provenance = provenance
	summary.Extracted = len(records)

	if len(records) == 0 {
		c.tel.ReportBroken(report_run_extract, ErrNoBookings, pageDiagnostic(doc))
		return ErrNoBookings
	}
	return c.reconcile(ctx, records, summary)
}

func (c *Coordinator) reconcile(ctx context.Context, records []bookings.Raw, summary *Summary) error {
	unique := bookings.Dedupe(records)
	summary.Duplicates = len(records) - len(unique)
	summary.Stage = StageDeduplicated

	var accepted []bookings.Booking
	for _, raw := range unique {
		outcome := bookings.Normalize(raw, c.options.Policy)
		if !outcome.Accepted() {
			summary.Skipped[outcome.Skip]++
			c.tel.ReportWarning(report_run_skip, string(outcome.Skip), outcome.Booking.BookingNo, outcome.Booking.Name)
			continue
		}
		c.tel.ReportDebug("accepted booking", outcome.Booking.BookingNo, outcome.Booking.Provenance)
		accepted = append(accepted, outcome.Booking)
	}
	summary.Stage = StageNormalized

	persisted := c.upsert(ctx, accepted, summary)
	summary.Stage = StageUpserted

	if c.options.SyncCharges {
		c.syncCharges(ctx, persisted, summary)
	}
	summary.Stage = StageChargesSynced

	if c.options.SyncPhotos {
		c.syncPhotos(ctx, persisted, summary)
	}
	summary.Stage = StagePhotosSynced

	err := ctx.Err()
	if err != nil {
		summary.Errors = append(summary.Errors, err)
	} else {
		summary.Stage = StageDone
	}
	return summary.Err()
}

// upsert writes accepted bookings in batches and returns the bookings of the
// batches that succeeded. A failed batch does not stop the others.
func (c *Coordinator) upsert(ctx context.Context, accepted []bookings.Booking, summary *Summary) []bookings.Booking {
	ctx, span := tracer.Start(ctx, "upsert")
	defer span.End()

	var persisted []bookings.Booking
	for start := 0; start < len(accepted); start += c.options.BatchSize {
		end := min(start+c.options.BatchSize, len(accepted))
		batch := accepted[start:end]
		summary.Batches++

		err := c.deps.Bookings.UpsertBookings(ctx, batch)
		if err != nil {
			summary.FailedBatches++
			err = fmt.Errorf("batch %d: %w", summary.Batches, err)
			summary.Errors = append(summary.Errors, err)
			c.tel.ReportBroken(report_run_upsert, err, len(batch))
			continue
		}
		summary.Processed += len(batch)
		persisted = append(persisted, batch...)
	}
	span.SetAttributes(
		attribute.Int("batches", summary.Batches),
		attribute.Int("failed_batches", summary.FailedBatches),
	)
	return persisted
}

// syncCharges replaces the stored charges of every persisted booking that
// has at least one charge. Bookings without charges keep their stored rows.
func (c *Coordinator) syncCharges(ctx context.Context, persisted []bookings.Booking, summary *Summary) {
	ctx, span := tracer.Start(ctx, "syncCharges")
	defer span.End()

	for _, b := range persisted {
		if len(b.Charges) == 0 {
			continue
		}
		err := c.deps.Bookings.ReplaceCharges(ctx, b.BookingNo, b.Charges)
		if err != nil {
			summary.ChargeFailures++
			summary.Errors = append(summary.Errors, err)
			c.tel.ReportBroken(report_run_charges, err)
			continue
		}
		summary.ChargesSynced += len(b.Charges)
	}
	span.SetAttributes(attribute.Int("charges", summary.ChargesSynced))
}
