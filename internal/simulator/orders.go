package simulator

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

// orderRecord mirrors one row of an order file:
// Date,Symbol,Order,Shares with a required header row.
type orderRecord struct {
	Date   string `csv:"Date"`
	Symbol string `csv:"Symbol"`
	Order  string `csv:"Order"`
	Shares int64  `csv:"Shares"`
}

// ReadOrdersCSV reads an order file into a validated order list. Rows keep
// their file order, so same-date orders replay in the sequence they were
// written.
func ReadOrdersCSV(path string) ([]types.Order, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open order file %s", path)
	}
	defer file.Close()

	var records []*orderRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMalformedData, err, "failed to parse order file %s", path)
	}

	orders := make([]types.Order, 0, len(records))

	for i, record := range records {
		date, err := time.Parse(types.DateLayout, record.Date)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMalformedData, err,
				"invalid date %q in order file row %d", record.Date, i+1)
		}

		side, err := types.ParseSide(record.Order)
		if err != nil {
			return nil, err
		}

		order := types.Order{
			Date:   date,
			Symbol: record.Symbol,
			Side:   side,
			Shares: record.Shares,
		}

		if err := order.Validate(); err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}

	return orders, nil
}
