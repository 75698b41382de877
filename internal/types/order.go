package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide converts the string form used in order files into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSide, "unknown order side %q", s)
	}
}

// Order is an instruction to buy or sell a fixed integer number of shares
// of one symbol on one trading day. BUY increases the position (or reduces
// a short), SELL decreases it (or opens/increases a short).
type Order struct {
	Date   time.Time `yaml:"date" json:"date" csv:"date" validate:"required"`
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side   Side      `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Shares int64     `yaml:"shares" json:"shares" csv:"shares" validate:"gte=0"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}
