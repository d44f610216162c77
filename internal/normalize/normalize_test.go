package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	for _, tc := range []struct {
		text string
		want int
	}{
		{"1:02:03", 3723},
		{"45:10", 2710},
		{"0:59", 59},
		{"10:00:00", 36000},
	} {
		got, err := Duration(tc.text)
		require.NoError(t, err, tc.text)
		require.Equal(t, tc.want, got, tc.text)
	}
}

func TestDurationBadShapes(t *testing.T) {
	for _, text := range []string{"", "123", "1:2:3:4", "abc", "1:xx", "::", "-1:30", "1:-30", "+1:02:03"} {
		got, err := Duration(text)
		require.ErrorIs(t, err, ErrFormat, text)
		require.Equal(t, 0, got, text)
	}
}

func TestPace(t *testing.T) {
	got, err := Pace("4:30")
	require.NoError(t, err)
	require.Equal(t, 270, got)

	_, err = Pace("430")
	require.ErrorIs(t, err, ErrFormat)

	// Signed parts would produce a negative second count.
	_, err = Pace("-4:30")
	require.ErrorIs(t, err, ErrFormat)
}

func TestDate(t *testing.T) {
	got, err := Date("domingo", "12", "mayo", "2024")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC), got)

	got, err = Date("lunes", "1", "Enero", "2020")
	require.NoError(t, err)
	require.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDateTwoDigitYear(t *testing.T) {
	got, err := Date("sábado", "3", "septiembre", "22")
	require.NoError(t, err)
	require.Equal(t, 2022, got.Year())
}

func TestDateUnknownMonth(t *testing.T) {
	_, err := Date("monday", "12", "may", "2024")
	require.ErrorIs(t, err, ErrUnknownMonth)
	require.False(t, errors.Is(err, ErrFormat))
}

func TestDateBadTokens(t *testing.T) {
	_, err := Date("lunes", "zz", "mayo", "2024")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Date("lunes", "40", "mayo", "2024")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Date("lunes", "12", "mayo", "año")
	require.ErrorIs(t, err, ErrFormat)
}

func TestDistanceNumber(t *testing.T) {
	for _, tc := range []struct {
		text string
		want float64
	}{
		{"42,2 km", 42.2},
		{"42.2 km", 42.2},
		{"21,1km", 21.1},
		{"10", 10},
		{"0,42", 0.42},
	} {
		got, err := DistanceNumber(tc.text)
		require.NoError(t, err, tc.text)
		require.InDelta(t, tc.want, got, 1e-9, tc.text)
	}

	_, err := DistanceNumber("km 42")
	require.ErrorIs(t, err, ErrFormat)
}

func TestSplitPaceField(t *testing.T) {
	pace, units, err := SplitPaceField("4:30 /km")
	require.NoError(t, err)
	require.Equal(t, "4:30", pace)
	require.Equal(t, "km", units)

	_, _, err = SplitPaceField("4:30")
	require.ErrorIs(t, err, ErrFormat)
}

func TestElevationField(t *testing.T) {
	v, units, err := ElevationField("12 m")
	require.NoError(t, err)
	require.Equal(t, 12, v)
	require.Equal(t, "m", units)

	v, _, err = ElevationField("-4 m")
	require.NoError(t, err)
	require.Equal(t, -4, v)

	_, _, err = ElevationField("m")
	require.ErrorIs(t, err, ErrFormat)
}
