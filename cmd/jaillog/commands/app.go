package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jaillog-backend/internal/alert"
	"jaillog-backend/internal/chrono"
	"jaillog-backend/internal/config"
	"jaillog-backend/internal/db"
	"jaillog-backend/internal/reconcile"
	"jaillog-backend/internal/scrapers/jaillog"
	"jaillog-backend/internal/storage/filestore"
	"jaillog-backend/internal/storage/sqlstore"
	"jaillog-backend/internal/storage/supabase"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/restyutil"
)

// app is everything a run needs, wired from the config.
type app struct {
	cfg         config.Config
	tel         telemetry.API
	client      *jaillog.Client
	coordinator *reconcile.Coordinator
	mailer      *alert.Mailer
	closers     []func() error
}

func newTelemetryAPI() telemetry.API {
	var tel telemetry.API = telemetry.SlogAPI{}
	otelAPI, err := telemetry.NewOtelAPI("jaillog", tel)
	if err != nil {
		slog.Warn("otel reporting disabled", "err", err)
		return tel
	}
	return otelAPI
}

func newInstrumentOutput(cfg config.Config) restyutil.InstrumentOutput {
	if !verbose || cfg.DumpDir == "" {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
	if err != nil {
		slog.Warn("http message dumps disabled", "err", err)
		return nil
	}
	return output
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, tel: newTelemetryAPI()}
	clock := chrono.NewStandardTime()

	a.client = jaillog.NewClient(cfg.ClientOptions(newInstrumentOutput(cfg)), a.tel)

	var supabaseClient *supabase.Client
	if cfg.Store == config.StoreSupabase || cfg.Photos.Backend == config.PhotosSupabase {
		var err error
		supabaseClient, err = supabase.NewClient(cfg.Supabase, cfg.Tables, a.tel)
		if err != nil {
			return nil, err
		}
	}

	var bookingStore reconcile.BookingStore
	switch cfg.Store {
	case config.StoreSupabase:
		bookingStore = supabaseClient
	default:
		conn, dialect, err := cfg.Database.OpenDB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		err = db.Migrate(ctx, conn, dialect, cfg.Tables)
		if err != nil {
			a.Close()
			return nil, err
		}
		store, err := sqlstore.New(conn, dialect, cfg.Tables, clock)
		if err != nil {
			a.Close()
			return nil, err
		}
		bookingStore = store
	}

	var photoStore reconcile.PhotoStore
	switch cfg.Photos.Backend {
	case config.PhotosSupabase:
		photoStore = supabaseClient
	default:
		store, err := filestore.New(cfg.Photos.Dir, cfg.Photos.PublicURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		photoStore = store
	}

	if cfg.Alert.Enabled() {
		mailer := alert.NewMailer(cfg.Alert)
		a.mailer = &mailer
	}

	a.coordinator = reconcile.NewCoordinator(reconcile.Dependencies{
		Pages:      a.client,
		Photos:     a.client,
		Extractor:  jaillog.DefaultChain(a.tel),
		Bookings:   bookingStore,
		PhotoStore: photoStore,
		Time:       clock,
		Tel:        a.tel,
	}, cfg.Options())

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		err := a.closers[i]()
		if err != nil {
			slog.Warn("failed to close", "err", err)
		}
	}
	a.closers = nil
}

// notify emails the alert recipients about a failed run.
func (a *app) notify(ctx context.Context, summary reconcile.Summary, runErr error) {
	if a.mailer == nil || runErr == nil || errors.Is(runErr, context.Canceled) {
		return
	}
	err := a.mailer.NotifyRun(ctx, summary, runErr)
	if err != nil {
		slog.Error("failed to send alert", "err", err)
		return
	}
	slog.Info("sent failure alert", "to", a.cfg.Alert.To)
}

func (a *app) banner() {
	slog.Info(
		"starting import",
		"page", a.client.PageURL(),
		"store", a.cfg.Store,
		"photos", a.cfg.Photos.Backend,
		"bookings_table", a.cfg.Tables.Bookings,
		"charges_table", a.cfg.Tables.Charges,
		"skip_incomplete", a.cfg.Policy().SkipIncomplete,
		"sync_charges", a.cfg.Options().SyncCharges,
		"sync_photos", a.cfg.Options().SyncPhotos,
	)
}

func wrapRun(summary reconcile.Summary, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("run %s: %w", summary.RunID, err)
}
