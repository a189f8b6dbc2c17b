package commands

import (
	"os"
	"path/filepath"
	"testing"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/lib/htmlutil"

	"github.com/stretchr/testify/require"
)

func TestReadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	err := os.WriteFile(path, []byte(`[
		{"bookingNo": "PCSO24JBN000001", "name": "DOE, JOHN", "age": 34, "charges": [{"charge": "BATTERY"}]},
		{"booking_no": "PCSO24JBN000002", "releasedDate": null}
	]`), 0600)
	require.NoError(t, err)

	records, err := readRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "PCSO24JBN000001", records[0].Get(bookings.FieldBookingNo))
	require.Equal(t, "34", records[0].Get(bookings.FieldAge))
	require.Len(t, records[0].Charges, 1)
	require.Equal(t, "", records[1].Get(bookings.FieldReleasedDate))

	require.NoError(t, os.WriteFile(path, []byte(`{"booking_no": 1}`), 0600))
	_, err = readRecords(path)
	require.Error(t, err)
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<table><tr><td>Booking No:</td></tr></table>`), 0600))

	doc, err := readDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Elements("table"), 1)

	empty := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	_, err = readDocument(empty)
	require.ErrorIs(t, err, htmlutil.ErrEmptyDocument)

	_, err = readDocument(filepath.Join(dir, "missing.html"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
