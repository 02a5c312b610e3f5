// Package money provides an immutable amount+currency value object.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned when a Money value would hold an amount below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInvalidCurrency is returned for currency codes that are not three
	// upper-case ASCII letters.
	ErrInvalidCurrency = errors.New("currency must be a three-letter ISO code")
	// ErrCurrencyMismatch is returned when two values of different currencies
	// are combined or compared.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"BRL": "R$",
	"GBP": "£",
	"JPY": "¥",
}

// Money is an amount in a single currency. The zero value is not valid; use New
// or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New returns a Money value after validating the amount and currency.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, errors.Wrapf(ErrNegativeAmount, "%s %s", amount, currency)
	}
	if !validCurrency(currency) {
		return Money{}, errors.Wrapf(ErrInvalidCurrency, "%q", currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNew is like New but panics on invalid input. Intended for constants
// and tests.
func MustNew(amount string, currency string) Money {
	m, err := New(decimal.RequireFromString(amount), currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m+other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m-other. The result must not be negative.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	diff := m.amount.Sub(other.amount)
	if diff.IsNegative() {
		return Money{}, errors.Wrapf(ErrNegativeAmount, "%s - %s", m, other)
	}
	return Money{amount: diff, currency: m.currency}, nil
}

// Cmp compares m and other: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal reports whether both currency and amount match.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Mul multiplies the amount by a non-negative factor.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	return New(m.amount.Mul(factor), m.currency)
}

// Round rounds the amount to the given number of places, half away from zero.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// Symbol returns the display symbol for the currency, falling back to the
// ISO code.
func (m Money) Symbol() string {
	if s, ok := symbols[m.currency]; ok {
		return s
	}
	return m.currency
}

// String renders the value with its symbol and two decimal places, e.g. "$16.00".
func (m Money) String() string {
	return m.Symbol() + m.amount.StringFixed(2)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return errors.Wrapf(ErrCurrencyMismatch, "%s vs %s", m.currency, other.currency)
	}
	return nil
}

// ValidateCurrency returns ErrInvalidCurrency unless code is three upper case
// letters.
func ValidateCurrency(code string) error {
	if !validCurrency(code) {
		return errors.Wrapf(ErrInvalidCurrency, "%q", code)
	}
	return nil
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for i := range len(c) {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}
