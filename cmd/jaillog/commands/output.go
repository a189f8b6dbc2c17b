package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/reconcile"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func renderSummary(summary reconcile.Summary) {
	t := newTable()
	t.SetTitle("Run " + summary.RunID)
	t.AppendRows([]table.Row{
		{"Started", summary.Started.Format(time.RFC3339)},
		{"Completed", summary.Completed.Format(time.RFC3339)},
		{"Duration", summary.Duration().Round(time.Millisecond)},
		{"Stage", summary.Stage},
		{"Provenance", summary.Provenance},
		{"Extracted", summary.Extracted},
		{"Duplicates", summary.Duplicates},
		{"Processed", summary.Processed},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Skipped", summary.SkippedTotal()})
	for _, reason := range summary.SkipReasons() {
		t.AppendRow(table.Row{"  " + string(reason), summary.Skipped[reason]})
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Batches", summary.Batches},
		{"Failed batches", summary.FailedBatches},
		{"Charges synced", summary.ChargesSynced},
		{"Charge failures", summary.ChargeFailures},
		{"Photos synced", summary.PhotosSynced},
		{"Photos skipped", summary.PhotosSkipped},
		{"Photo failures", summary.PhotoFailures},
	})
	t.Render()
}

func renderRecords(records []bookings.Raw, policy bookings.Policy) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Booking No", "Name", "Booking Date", "Status", "Charges", "Source", "Outcome"})
	for i, raw := range records {
		outcome := bookings.Normalize(raw, policy)
		result := "ok"
		if !outcome.Accepted() {
			result = "skip: " + string(outcome.Skip)
		}
		t.AppendRow(table.Row{
			i + 1,
			outcome.Booking.BookingNo,
			outcome.Booking.Name,
			formatTime(outcome.Booking.BookingDate),
			outcome.Booking.Status,
			len(outcome.Booking.Charges),
			raw.Provenance,
			result,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d records", len(records))})
	t.Render()
}

func renderCharges(records []bookings.Raw) {
	t := newTable()
	t.AppendHeader(table.Row{"Booking No", "#", "Statute", "Case", "Agency", "Charge", "Degree", "Level", "Bond"})
	for _, raw := range records {
		no := raw.Get(bookings.FieldBookingNo)
		for i, c := range raw.Charges {
			charge, ok := bookings.NormalizeCharge(c)
			if !ok {
				continue
			}
			t.AppendRow(table.Row{
				no, i + 1, charge.Statute, charge.CaseNumber, charge.Agency,
				strings.TrimSpace(charge.Charge), charge.Degree, charge.Level, charge.Bond,
			})
		}
	}
	t.Render()
}
