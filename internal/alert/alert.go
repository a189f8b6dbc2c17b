// Package alert emails operators when an import fails or finds nothing.
package alert

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"jaillog-backend/internal/reconcile"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("jaillog/internal/alert")

type Config struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c Config) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

type Mailer struct {
	config Config
}

func NewMailer(config Config) Mailer {
	if config.Port == 0 {
		config.Port = 587
	}
	return Mailer{config: config}
}

func (m Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
}

func (m Mailer) Send(ctx context.Context, subject, body string) error {
	_, span := tracer.Start(ctx, "Mailer.Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Jail Log Importer <%s>", m.config.EmailAddress)
	mail.To = m.config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	err := mail.Send(
		m.addr(),
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(m.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

// Compose writes the alert for a run that failed, or returns ok=false when
// the run needs no alert.
func Compose(summary reconcile.Summary, runErr error) (subject, body string, ok bool) {
	if runErr == nil {
		return "", "", false
	}

	subject = "jail log import failed"
	if errors.Is(runErr, reconcile.ErrNoBookings) {
		subject = "jail log import found no bookings"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s stopped at stage %q.\n\n", summary.RunID, summary.Stage)
	fmt.Fprintf(&b, "Error: %v\n\n", runErr)
	if errors.Is(runErr, reconcile.ErrNoBookings) {
		b.WriteString("The page was fetched but no booking could be extracted, the portal markup may have changed.\n\n")
	}
	fmt.Fprintf(&b, "Extracted: %d\n", summary.Extracted)
	fmt.Fprintf(&b, "Processed: %d\n", summary.Processed)
	fmt.Fprintf(&b, "Skipped: %d\n", summary.SkippedTotal())
	fmt.Fprintf(&b, "Failed batches: %d\n", summary.FailedBatches)
	fmt.Fprintf(&b, "Charge failures: %d\n", summary.ChargeFailures)
	fmt.Fprintf(&b, "Photo failures: %d\n", summary.PhotoFailures)
	if !summary.Started.IsZero() {
		fmt.Fprintf(&b, "Started: %s\n", summary.Started.Format("2006-01-02 15:04:05 MST"))
	}
	return subject, b.String(), true
}

// NotifyRun sends the alert for a failed run, it does nothing for a
// successful one.
func (m Mailer) NotifyRun(ctx context.Context, summary reconcile.Summary, runErr error) error {
	subject, body, ok := Compose(summary, runErr)
	if !ok {
		return nil
	}
	return m.Send(ctx, subject, body)
}
