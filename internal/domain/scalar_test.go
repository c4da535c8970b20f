package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePxRoundTrip(t *testing.T) {
	cases := []string{"100", "100.5", "0.00000001", "123456.12345678", "0"}
	for _, c := range cases {
		px, err := ParsePx(c)
		require.NoError(t, err, "ParsePx(%q)", c)
		require.Equal(t, c, px.String())
	}
}

func TestParsePxTrailingZeroTrim(t *testing.T) {
	px, err := ParsePx("100.50000000")
	require.NoError(t, err)
	require.Equal(t, "100.5", px.String())
}

func TestParsePxInvalid(t *testing.T) {
	_, err := ParsePx("not-a-number")
	require.ErrorIs(t, err, ErrParse)
}

func TestParsePxNegativeRejected(t *testing.T) {
	_, err := ParsePx("-1")
	require.ErrorIs(t, err, ErrParse)
}

func TestSzDecrementSaturates(t *testing.T) {
	sz, err := ParseSz("5")
	require.NoError(t, err)
	dec, err := ParseSz("10")
	require.NoError(t, err)
	require.Equal(t, Sz(0), sz.Decrement(dec))
}

func TestSzAdd(t *testing.T) {
	a, err := ParseSz("1.5")
	require.NoError(t, err)
	b, err := ParseSz("2.25")
	require.NoError(t, err)
	require.Equal(t, "3.75", a.Add(b).String())
}

func TestPxNumDigits(t *testing.T) {
	cases := []struct {
		v    Px
		want uint32
	}{
		{0, 1},
		{1, 1},
		{9, 1},
		{10, 2},
		{999, 3},
		{1000, 4},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.v.NumDigits(), "NumDigits(%d)", c.v)
	}
}

func TestCoinIsSpot(t *testing.T) {
	require.True(t, Coin("@1").IsSpot())
	require.True(t, Coin("PURR/USDC").IsSpot())
	require.False(t, Coin("BTC").IsSpot())
}
