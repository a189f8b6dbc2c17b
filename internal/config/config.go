// Package config assembles the importer configuration from config.json5,
// its local override, .env files and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"jaillog-backend/internal/alert"
	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/db"
	"jaillog-backend/internal/reconcile"
	"jaillog-backend/internal/scrapers/jaillog"
	"jaillog-backend/internal/storage/supabase"
	"jaillog-backend/lib/configutil"
	"jaillog-backend/lib/restyutil"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

const (
	StoreSQL      = "sql"
	StoreSupabase = "supabase"

	PhotosFilesystem = "filesystem"
	PhotosSupabase   = "supabase"

	// DefaultSchedule runs an import every 30 minutes.
	DefaultSchedule = "*/30 * * * *"
)

type Photos struct {
	// Backend is "filesystem" or "supabase", it defaults to the booking
	// store's backend.
	Backend   string `json:"backend"`
	Dir       string `json:"dir"`
	PublicURL string `json:"public_url"`
}

type Config struct {
	PageURL           string  `json:"page_url"`
	PhotoBaseURL      string  `json:"photo_base_url"`
	UserAgent         string  `json:"user_agent"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	// DumpDir receives http message dumps when running verbose.
	DumpDir string `json:"dump_dir"`

	SkipIncomplete *bool `json:"skip_incomplete"`
	SyncCharges    *bool `json:"sync_charges"`
	SyncPhotos     *bool `json:"sync_photos"`
	BatchSize      int   `json:"batch_size"`
	PhotoWorkers   int   `json:"photo_workers"`

	Store    string          `json:"store"`
	Tables   db.Tables       `json:"tables"`
	Database db.Config       `json:"database"`
	Supabase supabase.Config `json:"supabase"`
	Photos   Photos          `json:"photos"`
	Alert    alert.Config    `json:"alert"`
	Schedule string          `json:"schedule"`
}

func boolPtr(v bool) *bool {
	return &v
}

// Default is the configuration of the original importer.
func Default() Config {
	return Config{
		PageURL:        jaillog.DefaultPageURL,
		PhotoBaseURL:   jaillog.DefaultPhotoBaseURL,
		SkipIncomplete: boolPtr(true),
		SyncCharges:    boolPtr(true),
		SyncPhotos:     boolPtr(true),
		BatchSize:      reconcile.DefaultBatchSize,
		PhotoWorkers:   1,
		Tables:         db.DefaultTables(),
		Database: db.Config{
			Driver: "sqlite",
			File:   "data/jaillog.db",
		},
		Supabase: supabase.Config{Bucket: supabase.DefaultBucket},
		Photos:   Photos{Dir: "data/photos"},
		Schedule: DefaultSchedule,
	}
}

// Load reads config.json5 (searched upward from the working directory), fills
// unset values from Default, then overlays the environment.
func Load() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config]("config.json5")
	return finish(cfg, err)
}

// LoadFile is Load with an explicit config path.
func LoadFile(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	return finish(cfg, err)
}

func finish(cfg Config, err error) (Config, error) {
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	cfg, err = withDefaults(cfg)
	if err != nil {
		return Config{}, err
	}

	err = LoadDotenv()
	if err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg, os.LookupEnv)
	cfg.resolveBackends()

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func withDefaults(cfg Config) (Config, error) {
	err := mergo.Merge(&cfg, Default(), mergo.WithoutDereference)
	if err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

// LoadDotenv loads assets/.env, or .env when that does not exist. Variables
// already present in the environment are left alone.
func LoadDotenv() error {
	for _, path := range []string{"assets/.env", ".env"} {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		err = godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		return nil
	}
	return nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// ApplyEnv overlays the environment variables understood by the importer.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		value, ok := lookup(key)
		if ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	flag := func(key string, dst **bool) {
		value, ok := lookup(key)
		if ok && strings.TrimSpace(value) != "" {
			*dst = boolPtr(parseBool(value))
		}
	}

	str("PCSO_JAIL_LOG_URL", &cfg.PageURL)
	str("PCSO_PHOTO_BASE_URL", &cfg.PhotoBaseURL)
	str("PCSO_BOOKINGS_TABLE", &cfg.Tables.Bookings)
	str("PCSO_CHARGES_TABLE", &cfg.Tables.Charges)
	str("PCSO_PHOTOS_BUCKET", &cfg.Supabase.Bucket)
	str("SUPABASE_URL", &cfg.Supabase.Url)
	str("SUPABASE_SERVICE_ROLE_KEY", &cfg.Supabase.ServiceKey)

	flag("PCSO_SKIP_INCOMPLETE", &cfg.SkipIncomplete)
	flag("PCSO_SYNC_CHARGES", &cfg.SyncCharges)
	flag("PCSO_SYNC_PHOTOS", &cfg.SyncPhotos)

	value, ok := lookup("PCSO_BOOKINGS_HAS_CHARGES")
	if ok && strings.TrimSpace(value) != "" {
		cfg.Tables.HasChargesColumn = parseBool(value)
	}

	value, ok = lookup("PCSO_PHOTO_WORKERS")
	if ok {
		workers, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil && workers > 0 {
			cfg.PhotoWorkers = workers
		}
	}
}

func (c *Config) resolveBackends() {
	if c.Store == "" {
		c.Store = StoreSQL
		if c.Supabase.Url != "" {
			c.Store = StoreSupabase
		}
	}
	if c.Photos.Backend == "" {
		c.Photos.Backend = PhotosFilesystem
		if c.Store == StoreSupabase {
			c.Photos.Backend = PhotosSupabase
		}
	}
}

func (c Config) Validate() error {
	var errs []error
	err := c.Tables.Validate()
	if err != nil {
		errs = append(errs, err)
	}
	switch c.Store {
	case StoreSQL:
		_, err := c.Database.Dialect()
		if err != nil {
			errs = append(errs, err)
		}
	case StoreSupabase:
		if c.Supabase.Url == "" || c.Supabase.ServiceKey == "" {
			errs = append(errs, fmt.Errorf("store %q needs SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY", c.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.Photos.Backend {
	case PhotosFilesystem:
		if c.Photos.Dir == "" {
			errs = append(errs, fmt.Errorf("photos.dir is required for the filesystem photo store"))
		}
	case PhotosSupabase:
		if c.Supabase.Url == "" || c.Supabase.ServiceKey == "" {
			errs = append(errs, fmt.Errorf("photo backend %q needs SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY", c.Photos.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown photo backend %q", c.Photos.Backend))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive"))
	}
	return errors.Join(errs...)
}

// Options returns the coordinator options described by the config.
func (c Config) Options() reconcile.Options {
	return reconcile.Options{
		Policy:       c.Policy(),
		BatchSize:    c.BatchSize,
		SyncCharges:  c.SyncCharges != nil && *c.SyncCharges,
		SyncPhotos:   c.SyncPhotos != nil && *c.SyncPhotos,
		PhotoWorkers: c.PhotoWorkers,
	}
}

func (c Config) Policy() bookings.Policy {
	return bookings.Policy{
		SkipIncomplete: c.SkipIncomplete != nil && *c.SkipIncomplete,
		PhotoBaseURL:   c.PhotoBaseURL,
	}
}

// ClientOptions returns the portal client options, output may be nil.
func (c Config) ClientOptions(output restyutil.InstrumentOutput) jaillog.ClientOptions {
	return jaillog.ClientOptions{
		PageURL:           c.PageURL,
		UserAgent:         c.UserAgent,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
		Output:            output,
	}
}
