package trade

import (
	"optix/pkg/errors"
)

// Validate checks the fields every stage relies on. The returned error matches
// errors.ErrMalformedTrade and carries a *errors.MultiError of field failures.
func (t Trade) Validate() error {
	var merr errors.MultiError

	if t.ID == "" {
		merr.Add(errors.NewValidationError("trade_id", "is required", t.ID))
	}
	if t.Symbol == "" {
		merr.Add(errors.NewValidationError("underlying_symbol", "is required", t.Symbol))
	}
	if !t.OptionType.Valid() {
		merr.Add(errors.NewValidationError("option_type", "must be call or put", t.OptionType))
	}
	if !t.Strike.IsPositive() {
		merr.Add(errors.NewValidationError("strike", "must be positive", t.Strike))
	}
	if t.Expiration.IsZero() {
		merr.Add(errors.NewValidationError("expiration", "is required", t.Expiration))
	}
	if !t.Premium.IsPositive() {
		merr.Add(errors.NewValidationError("premium", "must be positive", t.Premium))
	}
	if t.Size <= 0 {
		merr.Add(errors.NewValidationError("size", "must be positive", t.Size))
	}
	if t.ExecutionPrice.IsNegative() {
		merr.Add(errors.NewValidationError("execution_price", "must not be negative", t.ExecutionPrice))
	}
	if t.Timestamp.IsZero() {
		merr.Add(errors.NewValidationError("timestamp", "is required", t.Timestamp))
	}
	if t.Exchange == "" {
		merr.Add(errors.NewValidationError("exchange", "is required", t.Exchange))
	}
	if !t.ExecutionSide.Valid() {
		merr.Add(errors.NewValidationError("execution_side", "must be bid, ask or mid", t.ExecutionSide))
	}
	if t.ImpliedVol < 0 {
		merr.Add(errors.NewValidationError("implied_vol", "must not be negative", t.ImpliedVol))
	}

	if !merr.HasErrors() {
		return nil
	}
	return errors.Tag(errors.ErrMalformedTrade, merr.ToError())
}
