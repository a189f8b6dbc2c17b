package config

import (
	"os"
	"path/filepath"
	"testing"

	"jaillog-backend/internal/db"
	"jaillog-backend/internal/scrapers/jaillog"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PCSO_JAIL_LOG_URL",
	"PCSO_PHOTO_BASE_URL",
	"PCSO_BOOKINGS_TABLE",
	"PCSO_CHARGES_TABLE",
	"PCSO_BOOKINGS_HAS_CHARGES",
	"PCSO_SKIP_INCOMPLETE",
	"PCSO_SYNC_CHARGES",
	"PCSO_SYNC_PHOTOS",
	"PCSO_PHOTOS_BUCKET",
	"PCSO_PHOTO_WORKERS",
	"SUPABASE_URL",
	"SUPABASE_SERVICE_ROLE_KEY",
}

// isolate runs the test from an empty directory with none of the importer's
// variables set.
func isolate(t *testing.T) string {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
	})
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func lookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadFile(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, jaillog.DefaultPageURL, cfg.PageURL)
	require.Equal(t, jaillog.DefaultPhotoBaseURL, cfg.PhotoBaseURL)
	require.Equal(t, db.DefaultTables(), cfg.Tables)
	require.Equal(t, StoreSQL, cfg.Store)
	require.Equal(t, PhotosFilesystem, cfg.Photos.Backend)

	options := cfg.Options()
	require.True(t, options.Policy.SkipIncomplete)
	require.True(t, options.SyncCharges)
	require.True(t, options.SyncPhotos)
	require.Equal(t, 100, options.BatchSize)
}

func TestFileAndLocalOverride(t *testing.T) {
	dir := isolate(t)

	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are fine
		page_url: "http://portal.test/jail.aspx",
		sync_photos: false,
		batch_size: 25,
		tables: { bookings: "pcso_bookings" },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		batch_size: 10,
	}`), 0600)
	require.NoError(t, err)

	cfg, err := LoadFile(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "http://portal.test/jail.aspx", cfg.PageURL)
	require.Equal(t, 10, cfg.BatchSize)
	require.Equal(t, "pcso_bookings", cfg.Tables.Bookings)
	require.Equal(t, "charges", cfg.Tables.Charges)

	options := cfg.Options()
	require.False(t, options.SyncPhotos)
	require.True(t, options.SyncCharges)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	ApplyEnv(&cfg, lookup(map[string]string{
		"PCSO_JAIL_LOG_URL":         " http://portal.test/jail.aspx ",
		"PCSO_BOOKINGS_TABLE":       "b",
		"PCSO_CHARGES_TABLE":        "c",
		"PCSO_BOOKINGS_HAS_CHARGES": "YES",
		"PCSO_SKIP_INCOMPLETE":      "0",
		"PCSO_SYNC_CHARGES":         "no",
		"PCSO_SYNC_PHOTOS":          "1",
		"PCSO_PHOTOS_BUCKET":        "mugshots",
		"PCSO_PHOTO_WORKERS":        "4",
		"SUPABASE_URL":              "https://project.supabase.co",
		"SUPABASE_SERVICE_ROLE_KEY": "secret",
		"PCSO_PHOTO_BASE_URL":       "",
	}))

	require.Equal(t, "http://portal.test/jail.aspx", cfg.PageURL)
	require.Equal(t, jaillog.DefaultPhotoBaseURL, cfg.PhotoBaseURL)
	require.Equal(t, db.Tables{Bookings: "b", Charges: "c", HasChargesColumn: true}, cfg.Tables)
	require.False(t, *cfg.SkipIncomplete)
	require.False(t, *cfg.SyncCharges)
	require.True(t, *cfg.SyncPhotos)
	require.Equal(t, "mugshots", cfg.Supabase.Bucket)
	require.Equal(t, 4, cfg.PhotoWorkers)

	cfg.resolveBackends()
	require.Equal(t, StoreSupabase, cfg.Store)
	require.Equal(t, PhotosSupabase, cfg.Photos.Backend)
	require.NoError(t, cfg.Validate())
}

func TestDotenv(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", ".env"), []byte("PCSO_BOOKINGS_TABLE=from_assets\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PCSO_BOOKINGS_TABLE=from_root\n"), 0600))

	cfg, err := LoadFile(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "from_assets", cfg.Tables.Bookings)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.resolveBackends()
	require.NoError(t, cfg.Validate())

	cfg.Tables.Bookings = "bookings; drop table charges"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store = StoreSupabase
	cfg.Photos.Backend = "s3"
	err := cfg.Validate()
	require.ErrorContains(t, err, "SUPABASE_URL")
	require.ErrorContains(t, err, `unknown photo backend "s3"`)

	cfg = Default()
	cfg.Database.Driver = "mysql"
	cfg.resolveBackends()
	require.Error(t, cfg.Validate())
}
