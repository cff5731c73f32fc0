package market

import (
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/pkg/formulas"
)

// AdjustedReturns compounds an instrument's local return series with the
// conversion returns of its holding currency into the base currency:
//
//	r_adj = r + r_fx + r*r_fx
//
// When the instrument is already denominated in the base currency the local
// series is returned untouched.
func AdjustedReturns(prices domain.PriceSource, fx domain.FxSource, uid, srcCurrency, baseCurrency string) (domain.Series, error) {
	local, err := prices.GetReturns(uid)
	if err != nil {
		return domain.Series{}, err
	}
	return ConvertReturns(fx, local, srcCurrency, baseCurrency)
}

// ConvertReturns compounds an already-fetched return series into the base
// currency. NaN in either leg propagates to the result.
func ConvertReturns(fx domain.FxSource, local domain.Series, srcCurrency, baseCurrency string) (domain.Series, error) {
	if srcCurrency == baseCurrency {
		return local, nil
	}

	conv, err := fx.GetConversion(srcCurrency, baseCurrency)
	if err != nil {
		return domain.Series{}, err
	}
	fxReturns := conv.Returns()

	out := domain.Series{
		Dates:  local.Dates,
		Values: make([]float64, local.Len()),
	}
	for i := range out.Values {
		out.Values[i] = formulas.CompoundReturn(local.Values[i], fxReturns.Values[i])
	}
	return out, nil
}
