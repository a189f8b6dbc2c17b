package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/scrapers/jaillog"

	"go.opentelemetry.io/otel/attribute"
)

type photoResult int

const (
	photoSynced photoResult = iota
	photoSkipped
	photoFailed
)

type photoCounts struct {
	synced  atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func (p *photoCounts) add(result photoResult) {
	switch result {
	case photoSynced:
		p.synced.Add(1)
	case photoSkipped:
		p.skipped.Add(1)
	case photoFailed:
		p.failed.Add(1)
	}
}

// syncPhotos copies each persisted booking's photo into the photo store and
// points photo_url at the stored copy. Every booking is attempted whatever
// happened to the others.
func (c *Coordinator) syncPhotos(ctx context.Context, persisted []bookings.Booking, summary *Summary) {
	if c.deps.Photos == nil || c.deps.PhotoStore == nil {
		c.tel.ReportWarning(report_run_photo, "photo sync enabled without a photo source and store")
		return
	}

	ctx, span := tracer.Start(ctx, "syncPhotos")
	defer span.End()

	var counts photoCounts
	workers := c.options.PhotoWorkers
	if workers <= 1 {
		for _, b := range persisted {
			counts.add(c.syncPhoto(ctx, b))
		}
	} else {
		semaphore := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for _, b := range persisted {
			wg.Add(1)
			semaphore <- struct{}{}
			go func(b bookings.Booking) {
				defer wg.Done()
				defer func() { <-semaphore }()
				counts.add(c.syncPhoto(ctx, b))
			}(b)
		}
		wg.Wait()
	}

	summary.PhotosSynced = int(counts.synced.Load())
	summary.PhotosSkipped = int(counts.skipped.Load())
	summary.PhotoFailures = int(counts.failed.Load())
	span.SetAttributes(
		attribute.Int("synced", summary.PhotosSynced),
		attribute.Int("skipped", summary.PhotosSkipped),
		attribute.Int("failed", summary.PhotoFailures),
	)
}

func (c *Coordinator) syncPhoto(ctx context.Context, b bookings.Booking) photoResult {
	if b.PhotoURL == "" {
		return photoSkipped
	}

	photo, err := c.deps.Photos.FetchPhoto(ctx, b.PhotoURL)
	if errors.Is(err, jaillog.ErrPhotoUnavailable) {
		c.tel.ReportDebug("photo unavailable", b.BookingNo, err.Error())
		return photoSkipped
	}
	if err != nil {
		c.tel.ReportWarning(report_run_photo, err, b.BookingNo)
		return photoFailed
	}

	url, err := c.deps.PhotoStore.PutPhoto(ctx, b.BookingNo, photo.Data, photo.ContentType)
	if err != nil {
		c.tel.ReportWarning(report_run_photo, err, b.BookingNo)
		return photoFailed
	}
	err = c.deps.Bookings.SetPhotoURL(ctx, b.BookingNo, url)
	if err != nil {
		c.tel.ReportWarning(report_run_photo, err, b.BookingNo)
		return photoFailed
	}
	return photoSynced
}
