package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/swaptoon/swap-engine/internal/catalog"
	"github.com/swaptoon/swap-engine/internal/convert"
	"github.com/swaptoon/swap-engine/internal/model"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Show what a swap would return without executing it",
	Example: `  swaptoon quote 1 BTC to USDC
  swaptoon quote 2 eth to sol`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := ParseSwapCommand(strings.Join(args, " "))
		if err != nil {
			return err
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}
		q, err := quoteFor(e.cat, req)
		if err != nil {
			return err
		}
		printQuote(q)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

type quote struct {
	Source       model.Asset
	Target       model.Asset
	SourceAmount string
	TargetAmount string
	Rate         decimal.Decimal
	SourceUSD    decimal.Decimal
}

func quoteFor(cat *catalog.Catalog, req *Request) (*quote, error) {
	src, err := cat.Asset(req.Source)
	if err != nil {
		return nil, err
	}
	dst, err := cat.Asset(req.Target)
	if err != nil {
		return nil, err
	}
	rateFrom, err := cat.Rate(src.Symbol)
	if err != nil {
		return nil, err
	}
	rateTo, err := cat.Rate(dst.Symbol)
	if err != nil {
		return nil, err
	}
	rate, err := convert.Rate(rateFrom, rateTo)
	if err != nil {
		return nil, err
	}
	return &quote{
		Source:       src,
		Target:       dst,
		SourceAmount: req.Amount,
		TargetAmount: convert.Convert(req.Amount, rateFrom, rateTo),
		Rate:         rate,
		SourceUSD:    convert.USDValue(req.Amount, rateFrom),
	}, nil
}

func printQuote(q *quote) {
	fmt.Println()
	fmt.Printf("  You pay:     %s %s\n", q.SourceAmount, swatch(q.Source.Color, q.Source.Symbol))
	fmt.Printf("  You receive: %s %s\n", q.TargetAmount, swatch(q.Target.Color, q.Target.Symbol))
	fmt.Printf("  Rate:        1 %s = %s %s\n", q.Source.Symbol, convert.Format(q.Rate), q.Target.Symbol)
	fmt.Printf("  Value:       ≈ $%s\n", q.SourceUSD.StringFixed(2))
	fmt.Println()
}
