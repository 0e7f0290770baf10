package types

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func dec(s string) math.LegacyDec {
	return math.LegacyMustNewDecFromStr(s)
}

func TestPriceFromPools(t *testing.T) {
	cases := []struct {
		name      string
		poolTrue  string
		poolFalse string
		want      string
	}{
		{"empty pools", "0", "0", "0.5"},
		{"symmetric", "10", "10", "0.5"},
		{"true heavy", "30", "10", "0.75"},
		{"false heavy", "10", "30", "0.25"},
		{"clamped high", "990", "1", "0.99"},
		{"clamped low", "1", "990", "0.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Price(dec(tc.poolTrue), dec(tc.poolFalse))
			require.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestSharesAtPrice(t *testing.T) {
	// 20 CC at price 0.5 buys 40 long shares.
	long, err := SharesLong(dec("20"), dec("0.5"))
	require.NoError(t, err)
	require.True(t, long.Equal(dec("40")))

	// 20 CC against price 0.8 buys 100 short shares.
	short, err := SharesShort(dec("20"), dec("0.8"))
	require.NoError(t, err)
	require.True(t, short.Equal(dec("100")))
}

func TestSharesRejectBadInput(t *testing.T) {
	_, err := SharesLong(dec("0"), dec("0.5"))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = SharesLong(dec("-5"), dec("0.5"))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = SharesLong(dec("10"), dec("1"))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = SharesShort(dec("10"), dec("0"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCollateralBySide(t *testing.T) {
	// Long: shares * (1 - entry).
	c := Collateral(SideTrue, dec("40"), dec("0.5"))
	require.True(t, c.Equal(dec("20")))

	// Short: shares * entry.
	c = Collateral(SideFalse, dec("100"), dec("0.2"))
	require.True(t, c.Equal(dec("20")))
}

func TestApplyBetRepricesMarket(t *testing.T) {
	m := NewMarket("m1", "it rains tomorrow", "events", "u1", dec("10"))
	require.True(t, m.Price.Equal(dec("0.5")))
	require.True(t, m.TotalPool().Equal(dec("20")))

	m.ApplyBet(SideTrue, dec("20"))
	// Pools 30/10 -> price 0.75.
	require.True(t, m.TotalBetTrue.Equal(dec("30")))
	require.True(t, m.Price.Equal(dec("0.75")))
	require.True(t, m.TotalPool().Equal(dec("40")))
}
