package jaillog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"jaillog-backend/internal/telemetry"

	"github.com/stretchr/testify/require"
)

func newPortal(t *testing.T) *httptest.Server {
	t.Helper()
	page, err := os.ReadFile(filepath.Join("testdata", "bookings.html"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/jail.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("user-agent") != DefaultUserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write(page)
	})
	mux.HandleFunc("/broken.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/blank.aspx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html")
		w.Write([]byte("   "))
	})
	mux.HandleFunc("/photo/png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "image/png")
		w.Write([]byte("\x89PNG"))
	})
	mux.HandleFunc("/photo/untyped", func(w http.ResponseWriter, r *http.Request) {
		// suppress content sniffing
		w.Header()["Content-Type"] = nil
		w.Write([]byte{0xff, 0xd8, 0xff})
	})
	mux.HandleFunc("/photo/html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html")
		w.Write([]byte("<html>not found</html>"))
	})
	mux.HandleFunc("/photo/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "image/jpeg")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchPage(t *testing.T) {
	server := newPortal(t)
	ctx := context.Background()

	rec := telemetry.NewRecorder()
	client := NewClient(ClientOptions{
		PageURL:           server.URL + "/jail.aspx",
		RequestsPerSecond: 50,
	}, rec)
	require.Equal(t, server.URL+"/jail.aspx", client.PageURL())

	doc, err := client.FetchPage(ctx)
	require.NoError(t, err)
	require.Len(t, InfoTables(doc), 3)
	require.Empty(t, rec.Reports(telemetry.KindBroken))

	for _, path := range []string{"/broken.aspx", "/blank.aspx", "/missing.aspx"} {
		rec := telemetry.NewRecorder()
		client := NewClient(ClientOptions{PageURL: server.URL + path}, rec)
		_, err := client.FetchPage(ctx)
		require.Error(t, err, path)
		require.Equal(t, []string{"jaillog:" + report_client_fetch_page}, rec.IDs(telemetry.KindBroken), path)
	}
}

func TestFetchPageUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	rec := telemetry.NewRecorder()
	_, err := NewClient(ClientOptions{PageURL: url}, rec).FetchPage(context.Background())
	require.Error(t, err)
	require.Len(t, rec.Reports(telemetry.KindBroken), 1)
}

func TestFetchPhoto(t *testing.T) {
	server := newPortal(t)
	ctx := context.Background()
	client := NewClient(ClientOptions{CloudflareBypass: true}, telemetry.NewRecorder())

	photo, err := client.FetchPhoto(ctx, server.URL+"/photo/png")
	require.NoError(t, err)
	require.Equal(t, "image/png", photo.ContentType)
	require.Equal(t, []byte("\x89PNG"), photo.Data)

	photo, err = client.FetchPhoto(ctx, server.URL+"/photo/untyped")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", photo.ContentType)

	for _, path := range []string{"/photo/html", "/photo/empty", "/photo/missing"} {
		_, err := client.FetchPhoto(ctx, server.URL+path)
		require.ErrorIs(t, err, ErrPhotoUnavailable, path)
	}
}
