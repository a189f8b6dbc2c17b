package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasLabel(t *testing.T) {
	require.True(t, HasLabel("Booking No:", "Booking No"))
	require.True(t, HasLabel("  booking no : PCSO24JBN000123", "Booking No"))
	require.True(t, HasLabel("BookingNo", "Booking No:"))
	require.False(t, HasLabel("Booking Date:", "Booking No"))
	require.False(t, HasLabel("No Booking", "Booking No"))
}

func TestCollapseSpace(t *testing.T) {
	require.Equal(t, "DOE, JOHN (W/MALE)", CollapseSpace("\n DOE,   JOHN\t(W/MALE) "))
	require.Equal(t, "", CollapseSpace(" \n "))
}

func TestAfterColon(t *testing.T) {
	require.Equal(t, "In Jail", AfterColon("Status:  In Jail "))
	require.Equal(t, "10:00 AM", AfterColon("Booking Date: 10:00 AM"))
	require.Equal(t, "", AfterColon("no colon"))
}
