package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("jaillog", NewScopedAPI("table", rec))

	scoped.ReportBroken("extract", fmt.Errorf("boom"))
	scoped.ReportWarning("holds")
	scoped.ReportDebug("scan")
	scoped.ReportCount("bookings", 3)

	require.Equal(t, []string{"jaillog:table:extract"}, rec.IDs(KindBroken))
	require.Equal(t, []string{"jaillog:table:holds"}, rec.IDs(KindWarning))
	require.Equal(t, []string{"jaillog: table: scan"}, rec.IDs(KindDebug))

	n, ok := rec.Count("jaillog:table:bookings")
	require.True(t, ok)
	require.Equal(t, int64(3), n)
}

func TestOtelAPI(t *testing.T) {
	rec := NewRecorder()
	api, err := NewOtelAPI("test", rec)
	require.NoError(t, err)

	api.ReportCount("reconcile:processed", 12)
	api.ReportCount("reconcile:processed", 13)
	api.ReportBroken("reconcile:upsert")

	n, ok := rec.Count("reconcile:processed")
	require.True(t, ok)
	require.Equal(t, int64(13), n)
	require.Equal(t, []string{"reconcile:upsert"}, rec.IDs(KindBroken))
	require.Equal(t, "reconcile_processed", instrumentName("reconcile:processed"))
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rec := NewRecorder()
	client := resty.New()
	InstrumentResty(client, rec)

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.StatusCode())
	require.Equal(t, []string{report_resty_request, report_resty_response}, rec.IDs(KindDebug))

	_, err = client.R().Get("http://127.0.0.1:1/")
	require.Error(t, err)
	require.Equal(t, []string{report_resty_response}, rec.IDs(KindWarning))
}
