package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sirily11/quant-research-go/pkg/errors"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestParseSide() {
	tests := []struct {
		name     string
		input    string
		expected Side
		wantErr  bool
	}{
		{"buy", "BUY", SideBuy, false},
		{"sell", "SELL", SideSell, false},
		{"lowercase", "buy", "", true},
		{"empty", "", "", true},
		{"garbage", "HOLD", "", true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			side, err := ParseSide(tc.input)
			if tc.wantErr {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidSide))
			} else {
				suite.NoError(err)
				suite.Equal(tc.expected, side)
			}
		})
	}
}

func (suite *OrderTestSuite) TestOrderValidate() {
	valid := Order{
		Date:   time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC),
		Symbol: "AAPL",
		Side:   SideBuy,
		Shares: 100,
	}
	suite.NoError(valid.Validate())

	tests := []struct {
		name   string
		mutate func(o *Order)
	}{
		{"missing date", func(o *Order) { o.Date = time.Time{} }},
		{"missing symbol", func(o *Order) { o.Symbol = "" }},
		{"bad side", func(o *Order) { o.Side = "SHORT" }},
		{"negative shares", func(o *Order) { o.Shares = -10 }},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			order := valid
			tc.mutate(&order)
			err := order.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
		})
	}
}
