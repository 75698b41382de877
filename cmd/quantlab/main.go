// quantlab is the command line entry point of the research toolkit. It
// simulates order files, evaluates strategies and reversal signals across
// symbol universes, and downloads daily price history into local caches.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/sirily11/quant-research-go/internal/datasource"
	csvsource "github.com/sirily11/quant-research-go/internal/datasource/csv"
	duckdbsource "github.com/sirily11/quant-research-go/internal/datasource/duckdb"
	"github.com/sirily11/quant-research-go/internal/evaluator"
	"github.com/sirily11/quant-research-go/internal/logger"
	"github.com/sirily11/quant-research-go/internal/simulator"
	"github.com/sirily11/quant-research-go/internal/stats"
	"github.com/sirily11/quant-research-go/internal/strategy"
	"github.com/sirily11/quant-research-go/internal/types"
	"github.com/sirily11/quant-research-go/internal/version"
	"github.com/sirily11/quant-research-go/pkg/marketdata"
	"github.com/sirily11/quant-research-go/pkg/marketdata/provider"
)

// openSource picks the data source backend from the path shape: a
// directory is served by the per-symbol CSV source, a file by DuckDB.
func openSource(path string, log *logger.Logger) (datasource.DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("data path %s is not readable: %w", path, err)
	}

	if info.IsDir() {
		return csvsource.NewDataSource(path, log)
	}

	return duckdbsource.NewDataSource(path, log)
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))

	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}

	return symbols
}

// universe resolves the symbol list: an explicit --symbols flag wins,
// otherwise every symbol the data source can serve.
func universe(cmd *cli.Command, source datasource.DataSource) ([]string, error) {
	if raw := cmd.String("symbols"); raw != "" {
		return splitSymbols(raw), nil
	}

	return source.Symbols()
}

// batchProgress renders evaluation progress on stderr, away from the
// per-symbol result lines on stdout.
func batchProgress(total int) evaluator.ProgressFunc {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Evaluating"),
		progressbar.OptionShowCount())

	return func(completed int, _ int) {
		bar.Set(completed)
	}
}

func evalConfig(cmd *cli.Command) (evaluator.Config, error) {
	if path := cmd.String("config"); path != "" {
		return evaluator.LoadConfig(path)
	}

	config := evaluator.DefaultConfig()

	if workers := cmd.Int("workers"); workers > 0 {
		config.Workers = int(workers)
	}

	if start := cmd.String("start"); start != "" {
		config.StartDate = start
	}

	if end := cmd.String("end"); end != "" {
		config.EndDate = end
	}

	config.AllowShort = !cmd.Bool("no-short")

	return config, config.Validate()
}

func simulateAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	orders, err := simulator.ReadOrdersCSV(cmd.String("orders"))
	if err != nil {
		return err
	}

	source, err := openSource(cmd.String("data"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	prices := make(map[string]types.PriceSeries)

	for _, order := range orders {
		if _, ok := prices[order.Symbol]; ok {
			continue
		}

		series, err := source.GetPrices(order.Symbol, optional.None[time.Time](), optional.None[time.Time]())
		if err != nil {
			return err
		}

		prices[order.Symbol] = series
	}

	sim, err := simulator.NewSimulator(simulator.Config{
		InitialCapital: cmd.Float("capital"),
		MaxLeverage:    cmd.Float("max-leverage"),
		AllowShort:     !cmd.Bool("no-short"),
	}, log)
	if err != nil {
		return err
	}

	if dir := cmd.String("record"); dir != "" {
		recorder, err := simulator.NewRecorder(log)
		if err != nil {
			return err
		}
		defer recorder.Close()

		if err := recorder.Initialize(); err != nil {
			return err
		}

		sim.SetRecorder(recorder)

		defer func() {
			if err := recorder.Export(dir); err != nil {
				log.Warn("failed to export order decisions", zap.Error(err))
			}
		}()
	}

	values, err := sim.Run(prices, orders)
	if err != nil {
		return err
	}

	perf := stats.Compute(values, 0, stats.DefaultSamplesPerYear)

	if last, ok := values.Last(); ok {
		fmt.Printf("Final value: %.2f\n", last.Value)
	}
	fmt.Printf("Cumulative return: %.6f\n", perf.CumulativeReturn)
	fmt.Printf("Avg daily return: %.6f\n", perf.AvgDailyReturn)
	fmt.Printf("Std daily return: %.6f\n", perf.StdDailyReturn)
	fmt.Printf("Sharpe ratio: %.6f\n", perf.SharpeRatio)

	return nil
}

func evaluateAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	config, err := evalConfig(cmd)
	if err != nil {
		return err
	}

	source, err := openSource(cmd.String("data"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	symbols, err := universe(cmd, source)
	if err != nil {
		return err
	}

	eval, err := evaluator.NewStrategyEvaluator(config, cmd.String("strategy"), source, os.Stdout, log)
	if err != nil {
		return err
	}

	eval.SetProgress(batchProgress(len(symbols)))

	_, report, err := eval.Run(ctx, symbols)
	if err != nil {
		return err
	}

	fmt.Println(report.Summary)

	if out := cmd.String("report"); out != "" {
		return types.WriteReport(out, report)
	}

	return nil
}

func reversalAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	config, err := evalConfig(cmd)
	if err != nil {
		return err
	}

	source, err := openSource(cmd.String("data"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	symbols, err := universe(cmd, source)
	if err != nil {
		return err
	}

	eval, err := evaluator.NewReversalEvaluator(config, int(cmd.Int("target-period")), source, os.Stdout, log)
	if err != nil {
		return err
	}

	eval.SetProgress(batchProgress(len(symbols)))

	_, report, err := eval.Run(ctx, symbols)
	if err != nil {
		return err
	}

	fmt.Println(report.Summary)

	if out := cmd.String("report"); out != "" {
		return types.WriteReport(out, report)
	}

	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  provider.Type(cmd.String("provider")),
		WriterType:    marketdata.WriterType(cmd.String("writer")),
		DataPath:      cmd.String("data"),
		PolygonAPIKey: os.Getenv("POLYGON_API_KEY"),
	}, log)
	if err != nil {
		return err
	}

	out, err := client.Download(ctx, marketdata.DownloadParams{
		Symbols:   splitSymbols(cmd.String("symbols")),
		StartDate: cmd.Timestamp("start"),
		EndDate:   cmd.Timestamp("end"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded daily bars to %s\n", out)

	return nil
}

func strategiesAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range strategy.Names() {
		fmt.Println(name)
	}

	return nil
}

func dateFlag(name, alias, usage string, required bool) *cli.TimestampFlag {
	flag := &cli.TimestampFlag{
		Name:     name,
		Aliases:  []string{alias},
		Usage:    usage,
		Required: required,
		Config: cli.TimestampConfig{
			Layouts: []string{types.DateLayout},
		},
	}
	if !required {
		flag.Value = time.Now()
	}

	return flag
}

func evalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Price data directory or file", Value: "data"},
		&cli.StringFlag{Name: "symbols", Usage: "Comma-separated symbol list; defaults to every cached symbol"},
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML evaluation config path"},
		&cli.IntFlag{Name: "workers", Usage: "Worker pool size; defaults to CPU count"},
		&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "Start date in YYYY-MM-DD format"},
		&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "End date in YYYY-MM-DD format"},
		&cli.BoolFlag{Name: "no-short", Usage: "Disallow short positions in the simulation"},
		&cli.StringFlag{Name: "report", Aliases: []string{"r"}, Usage: "Write the aggregate report to this YAML file"},
	}
}

func main() {
	// .env is optional, used for POLYGON_API_KEY in local setups
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "quantlab",
		Usage:   "Personal quantitative trading research toolkit",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "simulate",
				Usage: "Replay an order file against cached prices and report portfolio statistics",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "orders", Aliases: []string{"o"}, Usage: "Order CSV file", Required: true},
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Price data directory or file", Value: "data"},
					&cli.FloatFlag{Name: "capital", Usage: "Starting cash", Value: 1_000_000},
					&cli.FloatFlag{Name: "max-leverage", Usage: "Maximum leverage per order", Value: 2.0},
					&cli.BoolFlag{Name: "no-short", Usage: "Disallow short positions"},
					&cli.StringFlag{Name: "record", Usage: "Export order decisions as Parquet into this directory"},
				},
				Action: simulateAction,
			},
			{
				Name:  "evaluate",
				Usage: "Backtest a registered strategy across a symbol universe",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "strategy", Aliases: []string{"S"}, Usage: "Registered strategy name", Required: true},
				}, evalFlags()...),
				Action: evaluateAction,
			},
			{
				Name:  "reversal",
				Usage: "Measure KDJ reversal signal hit rates across a symbol universe",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "target-period", Usage: "Forward horizon in trading days", Value: 5},
				}, evalFlags()...),
				Action: reversalAction,
			},
			{
				Name:  "download",
				Usage: "Download daily price history into a local cache",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "symbols", Usage: "Comma-separated symbol list", Required: true},
					dateFlag("start", "s", "Start date in YYYY-MM-DD format", true),
					dateFlag("end", "e", "End date in YYYY-MM-DD format; defaults to today", false),
					&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "Data provider (polygon, binance)", Value: string(provider.TypePolygon)},
					&cli.StringFlag{Name: "writer", Aliases: []string{"w"}, Usage: "Cache format (csv, duckdb)", Value: string(marketdata.WriterCSV)},
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "Cache output directory", Value: "data"},
				},
				Action: downloadAction,
			},
			{
				Name:   "strategies",
				Usage:  "List registered strategies",
				Action: strategiesAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
