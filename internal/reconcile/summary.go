package reconcile

import (
	"errors"
	"sort"
	"time"

	"jaillog-backend/internal/bookings"
)

// Stage is a step of a run, in the order they are reached.
type Stage string

const (
	StageStarted       Stage = "started"
	StageFetched       Stage = "fetched"
	StageExtracted     Stage = "extracted"
	StageDeduplicated  Stage = "deduplicated"
	StageNormalized    Stage = "normalized"
	StageUpserted      Stage = "upserted"
	StageChargesSynced Stage = "charges_synced"
	StagePhotosSynced  Stage = "photos_synced"
	StageDone          Stage = "done"
)

// Summary holds the counts of one run.
type Summary struct {
	RunID     string
	Started   time.Time
	Completed time.Time
	// Stage is the last stage the run reached.
	Stage      Stage
	Provenance string

	Extracted  int
	Duplicates int
	// Processed counts bookings persisted by successful batches.
	Processed     int
	Skipped       map[bookings.SkipReason]int
	Batches       int
	FailedBatches int

	ChargesSynced  int
	ChargeFailures int

	PhotosSynced  int
	PhotosSkipped int
	PhotoFailures int

	// Errors are the batch and charge failures of the run, photo failures
	// are only counted.
	Errors []error
}

func newSummary() Summary {
	return Summary{
		Stage:   StageStarted,
		Skipped: map[bookings.SkipReason]int{},
	}
}

func (s Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// SkipReasons returns the reasons that skipped at least one record, sorted.
func (s Summary) SkipReasons() []bookings.SkipReason {
	var out []bookings.SkipReason
	for reason, n := range s.Skipped {
		if n > 0 {
			out = append(out, reason)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

func (s Summary) Err() error {
	return errors.Join(s.Errors...)
}

func (s Summary) Duration() time.Duration {
	if s.Completed.IsZero() {
		return 0
	}
	return s.Completed.Sub(s.Started)
}
