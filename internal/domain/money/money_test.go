package money

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  error
	}{
		{name: "valid", amount: "10.50", currency: "USD"},
		{name: "zero", amount: "0", currency: "EUR"},
		{name: "negative amount", amount: "-0.01", currency: "USD", wantErr: ErrNegativeAmount},
		{name: "lower-case currency", amount: "1", currency: "usd", wantErr: ErrInvalidCurrency},
		{name: "empty currency", amount: "1", currency: "", wantErr: ErrInvalidCurrency},
		{name: "long currency", amount: "1", currency: "USDT", wantErr: ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(decimal.RequireFromString(tt.amount), tt.currency)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(m.Amount()))
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	require.NoError(t, ValidateCurrency("EUR"))
	for _, code := range []string{"usd", "", "US", "USDT", "U$D"} {
		require.ErrorIs(t, ValidateCurrency(code), ErrInvalidCurrency, code)
	}
}

func TestAdd(t *testing.T) {
	sum, err := MustNew("1.25", "USD").Add(MustNew("2.50", "USD"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustNew("3.75", "USD")))

	_, err = MustNew("1", "USD").Add(MustNew("1", "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestSub(t *testing.T) {
	diff, err := MustNew("5", "BRL").Sub(MustNew("1.5", "BRL"))
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustNew("3.5", "BRL")))

	_, err = MustNew("1", "BRL").Sub(MustNew("2", "BRL"))
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = MustNew("1", "BRL").Sub(MustNew("1", "USD"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestCmp(t *testing.T) {
	c, err := MustNew("2", "USD").Cmp(MustNew("1", "USD"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	_, err = MustNew("2", "USD").Cmp(MustNew("1", "GBP"))
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.35", MustNew("2.345", "USD").Round(2).Amount().StringFixed(2))
	assert.Equal(t, "2.34", MustNew("2.344", "USD").Round(2).Amount().StringFixed(2))
	assert.Equal(t, "0.13", MustNew("0.125", "USD").Round(2).Amount().StringFixed(2))
}

func TestMulIsImmutable(t *testing.T) {
	base := MustNew("2.00", "USD")
	got, err := base.Mul(decimal.NewFromInt(3))
	require.NoError(t, err)

	assert.True(t, got.Equal(MustNew("6", "USD")))
	assert.True(t, base.Equal(MustNew("2", "USD")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "$16.00", MustNew("16", "USD").String())
	assert.Equal(t, "R$7.90", MustNew("7.9", "BRL").String())
	assert.Equal(t, "CHF3.10", MustNew("3.1", "CHF").String())
}
