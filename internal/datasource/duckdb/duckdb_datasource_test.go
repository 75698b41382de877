package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/pkg/errors"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	path   string
	logger *logger.Logger
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = log

	suite.path = filepath.Join(suite.T().TempDir(), "prices.csv")
	content := `symbol,date,open,high,low,close,volume
AAPL,2015-01-05,99,101,98,100,1000
AAPL,2015-01-06,100,102,99,101,2000
AAPL,2015-01-07,101,103,100,102,3000
GOOG,2015-01-05,500,510,495,505,4000
`
	suite.Require().NoError(os.WriteFile(suite.path, []byte(content), 0644))
}

func (suite *DuckDBDataSourceTestSuite) TestGetPrices() {
	source, err := NewDataSource(suite.path, suite.logger)
	suite.Require().NoError(err)

	defer source.Close()

	prices, err := source.GetPrices("AAPL", optional.None[time.Time](), optional.None[time.Time]())
	suite.NoError(err)
	suite.Require().Len(prices, 3)
	suite.Equal(100.0, prices[0].Close)
	suite.Equal(102.0, prices[2].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestGetPricesBounded() {
	source, err := NewDataSource(suite.path, suite.logger)
	suite.Require().NoError(err)

	defer source.Close()

	start := time.Date(2015, 1, 6, 0, 0, 0, 0, time.UTC)

	prices, err := source.GetPrices("AAPL", optional.Some(start), optional.None[time.Time]())
	suite.NoError(err)
	suite.Require().Len(prices, 2)
	suite.Equal(101.0, prices[0].Close)
}

func (suite *DuckDBDataSourceTestSuite) TestUnknownSymbol() {
	source, err := NewDataSource(suite.path, suite.logger)
	suite.Require().NoError(err)

	defer source.Close()

	_, err = source.GetPrices("MSFT", optional.None[time.Time](), optional.None[time.Time]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *DuckDBDataSourceTestSuite) TestSymbols() {
	source, err := NewDataSource(suite.path, suite.logger)
	suite.Require().NoError(err)

	defer source.Close()

	symbols, err := source.Symbols()
	suite.NoError(err)
	suite.Equal([]string{"AAPL", "GOOG"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestMissingFile() {
	_, err := NewDataSource(filepath.Join(suite.T().TempDir(), "nope.csv"), suite.logger)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}
