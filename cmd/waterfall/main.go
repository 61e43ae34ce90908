/*
main.go - One-shot waterfall CLI

PURPOSE:
  Runs a deal through the waterfall without a server or database and
  prints the result as JSON. Deals come from a YAML or JSON deal file or
  from a preset plus capital flags.

COMMAND-LINE FLAGS:
  -deal    Deal file (.yaml, .yml or .json)
  -preset  Preset structure ID, used when no deal file is given
  -lp      LP equity (with -preset)
  -gp      GP equity (with -preset)
  -hold    Hold period in years (with -preset)
  -total   Total distributable; overrides the deal file's total
  -sweep   Comma-separated totals; prints one result per total
  -log     Log level (default: warn)

EXAMPLES:
  ./waterfall -deal=deals/fund-i.yaml
  ./waterfall -preset=pref-8-catchup-20 -lp=9000000 -gp=1000000 -hold=5 -total=18000000
  ./waterfall -preset=simple-split -lp=800 -gp=200 -sweep=900,1400,2000

EXIT CODES:
  0 success, 1 runtime failure, 2 usage error
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/deal/store"
	"github.com/warp/distribution-engine/factory"
	"github.com/warp/distribution-engine/logger"
)

var errUsage = errors.New("usage")

func main() {
	dealPath := flag.String("deal", "", "Deal file (.yaml, .yml or .json)")
	preset := flag.String("preset", "", "Preset structure ID")
	lp := flag.Float64("lp", 0, "LP equity")
	gp := flag.Float64("gp", 0, "GP equity")
	hold := flag.Float64("hold", 5, "Hold period in years")
	total := flag.String("total", "", "Total distributable")
	sweep := flag.String("sweep", "", "Comma-separated totals to sweep")
	logLevel := flag.String("log", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.InitWriter(os.Stderr, *logLevel)

	df, err := loadDeal(*dealPath, *preset, *lp, *gp, *hold)
	if err == nil && *total != "" {
		var t decimal.Decimal
		if t, err = decimal.NewFromString(*total); err == nil {
			df.Total = &t
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		flag.Usage()
		os.Exit(2)
	}

	out, err := run(context.Background(), df, *sweep)
	if err != nil {
		log.Error("waterfall failed", "error", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Error("failed to write result", "error", err)
		os.Exit(1)
	}
}

// loadDeal reads the deal file, or builds a deal from a preset.
func loadDeal(path, preset string, lp, gp, hold float64) (*factory.DealFile, error) {
	if path == "" {
		if preset == "" {
			return nil, fmt.Errorf("%w: one of -deal or -preset is required", errUsage)
		}
		return factory.DealFromJSON(factory.DealJSON{
			Name:      preset,
			Preset:    preset,
			LPEquity:  lp,
			GPEquity:  gp,
			HoldYears: hold,
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return factory.ParseDealYAML(data)
	case ".json":
		return factory.ParseDealJSON(data)
	default:
		return nil, fmt.Errorf("%w: unsupported deal file extension %q", errUsage, filepath.Ext(path))
	}
}

// run stores the deal in memory and either runs it once or sweeps it.
func run(ctx context.Context, df *factory.DealFile, sweep string) (any, error) {
	svc := deal.NewService(store.NewMemory(), deal.Options{Logger: logger.L})

	d, err := svc.CreateDeal(ctx, df.Deal)
	if err != nil {
		return nil, err
	}

	if sweep != "" {
		totals, err := parseTotals(sweep)
		if err != nil {
			return nil, err
		}
		return svc.Sweep(ctx, d.ID, totals)
	}

	if df.Total == nil {
		return nil, fmt.Errorf("%w: a total is required (-total or total_distributable in the deal file)", errUsage)
	}
	r, err := svc.RunDeal(ctx, d.ID, *df.Total)
	if err != nil {
		return nil, err
	}
	return r.Result, nil
}

func parseTotals(s string) ([]decimal.Decimal, error) {
	var totals []decimal.Decimal
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("%w: bad sweep total %q", errUsage, part)
		}
		totals = append(totals, t)
	}
	if len(totals) == 0 {
		return nil, fmt.Errorf("%w: -sweep has no totals", errUsage)
	}
	return totals, nil
}
