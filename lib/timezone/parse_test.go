package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLocal(t *testing.T) {
	cases := []struct {
		literal string
		ok      bool
		expect  time.Time
	}{
		{
			literal: "01/05/2024 2:15 PM",
			ok:      true,
			expect:  time.Date(2024, time.January, 5, 19, 15, 0, 0, time.UTC),
		},
		{
			literal: "07/05/2024 2:15 PM",
			ok:      true,
			expect:  time.Date(2024, time.July, 5, 18, 15, 0, 0, time.UTC),
		},
		{
			literal: "1/2/2024 10:00am",
			ok:      true,
			expect:  time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC),
		},
		{
			literal: "03/10/2024 23:30",
			ok:      true,
			expect:  time.Date(2024, time.March, 11, 3, 30, 0, 0, time.UTC),
		},
		{
			literal: "11/30/2023",
			ok:      true,
			expect:  time.Date(2023, time.November, 30, 5, 0, 0, 0, time.UTC),
		},
		{
			literal: "11/30/2023  8:01:02 AM",
			ok:      true,
			expect:  time.Date(2023, time.November, 30, 13, 1, 2, 0, time.UTC),
		},
		{literal: "13/40/2024"},
		{literal: "02/30/2024 10:00 AM"},
		{literal: "yesterday"},
		{literal: ""},
	}

	for _, test := range cases {
		t.Run(test.literal, func(t *testing.T) {
			parsed, ok := ParseLocal(test.literal)
			require.Equal(t, test.ok, ok)
			if !test.ok {
				require.True(t, parsed.IsZero())
				return
			}
			require.Equal(t, test.expect, parsed)
		})
	}
}

func TestParseInstant(t *testing.T) {
	parsed, ok := ParseInstant("2024-01-02T15:00:00Z")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC), parsed)

	parsed, ok = ParseInstant("01/02/2024 10:00 AM")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC), parsed)

	_, ok = ParseInstant("not a date")
	require.False(t, ok)
}
