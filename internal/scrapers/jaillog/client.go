package jaillog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/htmlutil"
	"jaillog-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_page  = "client.fetch-page"
	report_client_fetch_photo = "client.fetch-photo"
)

const (
	DefaultPageURL      = "https://smartweb.pcso.us/smartwebclient/jail.aspx"
	DefaultPhotoBaseURL = "https://smartweb.pcso.us/smartwebclient/ViewImage.aspx?bookno="
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// ErrPhotoUnavailable is returned by FetchPhoto when the portal has no usable
// image for a booking (non-200 status or a non-image body).
var ErrPhotoUnavailable = errors.New("photo unavailable")

type ClientOptions struct {
	PageURL      string
	PageTimeout  time.Duration
	PhotoTimeout time.Duration
	UserAgent    string
	// RequestsPerSecond limits requests to the portal, zero disables the
	// limit.
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Output receives http message dumps when debug logging is enabled.
	Output restyutil.InstrumentOutput
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.PageURL == "" {
		o.PageURL = DefaultPageURL
	}
	if o.PageTimeout <= 0 {
		o.PageTimeout = time.Second * 60
	}
	if o.PhotoTimeout <= 0 {
		o.PhotoTimeout = time.Second * 20
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

type Photo struct {
	Data        []byte
	ContentType string
}

// Client fetches the jail log page and booking photos.
type Client struct {
	http    *resty.Client
	options ClientOptions
	tel     telemetry.API
}

func NewClient(options ClientOptions, tel telemetry.API) *Client {
	options = options.withDefaults()
	tel = telemetry.NewScopedAPI("jaillog", tel)

	httpClient := resty.New()
	if options.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", options.UserAgent)
	httpClient.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpClient.SetHeader("accept-language", "en-US,en;q=0.9")

	if options.RequestsPerSecond > 0 {
		burst := max(1, int(options.RequestsPerSecond))
		rateLimiter := rate.NewLimiter(rate.Limit(options.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(httpClient, tracer, options.Output)
	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http:    httpClient,
		options: options,
		tel:     tel,
	}
}

func (c *Client) PageURL() string {
	return c.options.PageURL
}

// FetchPage downloads and parses the jail log page. Any failure, including a
// non-2xx status, is returned as an error.
func (c *Client) FetchPage(ctx context.Context) (*htmlutil.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.options.PageTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.options.PageURL)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_page, fmt.Errorf("fetch: %w", err), c.options.PageURL)
		return nil, fmt.Errorf("fetch %s: %w", c.options.PageURL, err)
	}
	if res.IsError() {
		err := fmt.Errorf("fetch %s: unexpected status %s", c.options.PageURL, res.Status())
		c.tel.ReportBroken(report_client_fetch_page, err)
		return nil, err
	}

	doc, err := htmlutil.Parse(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_page, fmt.Errorf("parse: %w", err), c.options.PageURL)
		return nil, fmt.Errorf("parse %s: %w", c.options.PageURL, err)
	}
	return doc, nil
}

// FetchPhoto downloads the image at url. A missing content type is taken to
// be image/jpeg. ErrPhotoUnavailable is returned (wrapped) for non-200
// responses and non-image bodies.
func (c *Client) FetchPhoto(ctx context.Context, url string) (Photo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.options.PhotoTimeout)
	defer cancel()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("accept", "image/*").
		Get(url)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_photo, fmt.Errorf("fetch: %w", err), url)
		return Photo{}, fmt.Errorf("fetch photo: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return Photo{}, fmt.Errorf("%w: status %d", ErrPhotoUnavailable, res.StatusCode())
	}

	contentType := res.Header().Get("content-type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !strings.Contains(contentType, "image") {
		return Photo{}, fmt.Errorf("%w: content type %s", ErrPhotoUnavailable, contentType)
	}
	if len(res.Body()) == 0 {
		return Photo{}, fmt.Errorf("%w: empty body", ErrPhotoUnavailable)
	}

	return Photo{Data: res.Body(), ContentType: contentType}, nil
}
