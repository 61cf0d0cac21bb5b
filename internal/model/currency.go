package model

import (
	"strings"

	"github.com/tianhm/nautilus-trader/internal/errors"
	"github.com/tianhm/nautilus-trader/pkg/exception"
)

// Currency is an ISO-style code with the number of fractional digits money in it carries.
type Currency struct {
	Code      string
	Precision uint8
}

var (
	USD  = Currency{Code: "USD", Precision: 2}
	EUR  = Currency{Code: "EUR", Precision: 2}
	GBP  = Currency{Code: "GBP", Precision: 2}
	AUD  = Currency{Code: "AUD", Precision: 2}
	JPY  = Currency{Code: "JPY", Precision: 0}
	USDT = Currency{Code: "USDT", Precision: 8}
	BTC  = Currency{Code: "BTC", Precision: 8}
	ETH  = Currency{Code: "ETH", Precision: 8}
)

var currencies = map[string]Currency{
	USD.Code:  USD,
	EUR.Code:  EUR,
	GBP.Code:  GBP,
	AUD.Code:  AUD,
	JPY.Code:  JPY,
	USDT.Code: USDT,
	BTC.Code:  BTC,
	ETH.Code:  ETH,
}

// CurrencyFromString looks up a built-in currency by code.
func CurrencyFromString(code string) (Currency, error) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, errors.Wrap(exception.ErrUnknownCurrency, code)
	}
	return c, nil
}

func (c Currency) String() string { return c.Code }

func (c Currency) IsNull() bool { return c.Code == "" }

func (c Currency) MarshalText() ([]byte, error) { return []byte(c.Code), nil }

func (c *Currency) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = Currency{}
		return nil
	}
	v, err := CurrencyFromString(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
