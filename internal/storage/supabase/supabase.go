// Package supabase writes bookings, charges and photos to a Supabase project
// through its PostgREST and Storage http apis.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/db"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("jaillog/internal/storage/supabase")

const (
	report_client_upsert_bookings = "client.upsert-bookings"
	report_client_replace_charges = "client.replace-charges"
	report_client_set_photo_url   = "client.set-photo-url"
	report_client_put_photo       = "client.put-photo"
)

const DefaultBucket = "pcso-booking-photos"

type Config struct {
	Url        string `json:"url"`
	ServiceKey string `json:"service_key"`
	Bucket     string `json:"bucket"`
}

// Client implements the booking and photo stores on top of Supabase.
type Client struct {
	http   *resty.Client
	config Config
	tables db.Tables
	tel    telemetry.API
}

func NewClient(config Config, tables db.Tables, tel telemetry.API) (*Client, error) {
	if config.Url == "" || config.ServiceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	err := tables.Validate()
	if err != nil {
		return nil, err
	}
	if config.Bucket == "" {
		config.Bucket = DefaultBucket
	}
	config.Url = strings.TrimRight(config.Url, "/")
	tel = telemetry.NewScopedAPI("supabase", tel)

	httpClient := resty.New()
	httpClient.SetTimeout(time.Minute)
	httpClient.SetBaseURL(config.Url)
	httpClient.SetHeader("apikey", config.ServiceKey)
	httpClient.SetHeader("authorization", "Bearer "+config.ServiceKey)

	restyutil.InstrumentClient(httpClient, tracer, nil)
	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http:   httpClient,
		config: config,
		tables: tables,
		tel:    tel,
	}, nil
}

// statusError turns an unsuccessful response into an error carrying the
// PostgREST message.
func statusError(res *resty.Response) error {
	if !res.IsError() {
		return nil
	}
	var body struct {
		Message string `json:"message"`
	}
	json.Unmarshal(res.Body(), &body)
	if body.Message != "" {
		return fmt.Errorf("status %s: %s", res.Status(), body.Message)
	}
	return fmt.Errorf("status %s", res.Status())
}

type bookingRow struct {
	BookingNo        string             `json:"booking_no"`
	MniNo            string             `json:"mni_no"`
	Name             string             `json:"name"`
	Race             string             `json:"race"`
	Gender           string             `json:"gender"`
	Status           string             `json:"status"`
	BookingDate      *time.Time         `json:"booking_date"`
	AgeOnBookingDate *int               `json:"age_on_booking_date"`
	BondAmount       string             `json:"bond_amount"`
	AddressGiven     string             `json:"address_given"`
	HoldsText        *string            `json:"holds_text"`
	ReleasedDate     *time.Time         `json:"released_date"`
	PhotoURL         string             `json:"photo_url"`
	RawCardText      string             `json:"raw_card_text"`
	Charges          *[]bookings.Charge `json:"charges,omitempty"`
}

func (c *Client) bookingRow(b bookings.Booking) bookingRow {
	row := bookingRow{
		BookingNo:        b.BookingNo,
		MniNo:            b.MniNo,
		Name:             b.Name,
		Race:             b.Race,
		Gender:           b.Gender,
		Status:           b.Status,
		BookingDate:      b.BookingDate,
		AgeOnBookingDate: b.AgeOnBookingDate,
		BondAmount:       b.BondAmount,
		AddressGiven:     b.AddressGiven,
		ReleasedDate:     b.ReleasedDate,
		PhotoURL:         b.PhotoURL,
		RawCardText:      b.RawCardText,
	}
	if b.HoldsText != "" {
		row.HoldsText = &b.HoldsText
	}
	if c.tables.HasChargesColumn {
		charges := b.Charges
		if charges == nil {
			charges = []bookings.Charge{}
		}
		row.Charges = &charges
	}
	return row
}

func (c *Client) rest(table string) string {
	return "/rest/v1/" + table
}

func (c *Client) UpsertBookings(ctx context.Context, batch []bookings.Booking) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]bookingRow, len(batch))
	for i, b := range batch {
		rows[i] = c.bookingRow(b)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "booking_no").
		SetHeader("prefer", "resolution=merge-duplicates,return=minimal").
		SetHeader("content-type", "application/json").
		SetBody(rows).
		Post(c.rest(c.tables.Bookings))
	if err == nil {
		err = statusError(res)
	}
	if err != nil {
		c.tel.ReportBroken(report_client_upsert_bookings, fmt.Errorf("fetch: %w", err), len(batch))
		return fmt.Errorf("upsert bookings: %w", err)
	}
	return nil
}

type chargeRow struct {
	BookingNo   string `json:"booking_no"`
	ChargeOrder int    `json:"charge_order"`
	Statute     string `json:"statute"`
	CaseNumber  string `json:"case_number"`
	Agency      string `json:"agency"`
	Charge      string `json:"charge"`
	Degree      string `json:"degree"`
	Level       string `json:"level"`
	Bond        string `json:"bond"`
}

// ReplaceCharges deletes the stored charges of bookingNo then inserts the
// given ones. PostgREST has no multi-request transactions, a failed insert
// leaves the booking without charges until the next run.
func (c *Client) ReplaceCharges(ctx context.Context, bookingNo string, charges []bookings.Charge) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("booking_no", "eq."+bookingNo).
		Delete(c.rest(c.tables.Charges))
	if err == nil {
		err = statusError(res)
	}
	if err != nil {
		c.tel.ReportBroken(report_client_replace_charges, fmt.Errorf("delete: %w", err), bookingNo)
		return fmt.Errorf("replace charges of %s: delete: %w", bookingNo, err)
	}
	if len(charges) == 0 {
		return nil
	}

	rows := make([]chargeRow, len(charges))
	for i, ch := range charges {
		rows[i] = chargeRow{
			BookingNo:   bookingNo,
			ChargeOrder: i + 1,
			Statute:     ch.Statute,
			CaseNumber:  ch.CaseNumber,
			Agency:      ch.Agency,
			Charge:      ch.Charge,
			Degree:      ch.Degree,
			Level:       ch.Level,
			Bond:        ch.Bond,
		}
	}
	res, err = c.http.R().
		SetContext(ctx).
		SetHeader("prefer", "return=minimal").
		SetHeader("content-type", "application/json").
		SetBody(rows).
		Post(c.rest(c.tables.Charges))
	if err == nil {
		err = statusError(res)
	}
	if err != nil {
		c.tel.ReportBroken(report_client_replace_charges, fmt.Errorf("insert: %w", err), bookingNo)
		return fmt.Errorf("replace charges of %s: insert: %w", bookingNo, err)
	}
	return nil
}

func (c *Client) SetPhotoURL(ctx context.Context, bookingNo, photoURL string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("booking_no", "eq."+bookingNo).
		SetHeader("prefer", "return=minimal").
		SetHeader("content-type", "application/json").
		SetBody(map[string]string{"photo_url": photoURL}).
		Patch(c.rest(c.tables.Bookings))
	if err == nil {
		err = statusError(res)
	}
	if err != nil {
		c.tel.ReportWarning(report_client_set_photo_url, fmt.Errorf("fetch: %w", err), bookingNo)
		return fmt.Errorf("set photo url of %s: %w", bookingNo, err)
	}
	return nil
}

func objectName(bookingNo string) string {
	return bookingNo + ".jpg"
}

// PublicURL is the address a stored photo is served from.
func (c *Client) PublicURL(bookingNo string) string {
	return fmt.Sprintf(
		"%s/storage/v1/object/public/%s/%s",
		c.config.Url,
		url.PathEscape(c.config.Bucket),
		url.PathEscape(objectName(bookingNo)),
	)
}

// PutPhoto uploads the photo as <booking_no>.jpg, replacing any previous
// upload, and returns its public url.
func (c *Client) PutPhoto(ctx context.Context, bookingNo string, data []byte, contentType string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-upsert", "true").
		SetHeader("content-type", contentType).
		SetBody(data).
		Post(fmt.Sprintf(
			"/storage/v1/object/%s/%s",
			url.PathEscape(c.config.Bucket),
			url.PathEscape(objectName(bookingNo)),
		))
	if err == nil {
		err = statusError(res)
	}
	if err != nil {
		c.tel.ReportWarning(report_client_put_photo, fmt.Errorf("fetch: %w", err), bookingNo)
		return "", fmt.Errorf("put photo of %s: %w", bookingNo, err)
	}
	return c.PublicURL(bookingNo), nil
}
