package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swaptoon/swap-engine/internal/app"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/insight"
)

var insightCmd = &cobra.Command{
	Use:     "insight <source-token> <dest-token>",
	Short:   "Ask Gemini for a one-line vibe check on a pair",
	Example: "  swaptoon insight BTC USDC",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		from, err := e.cat.Asset(strings.ToUpper(args[0]))
		if err != nil {
			return err
		}
		to, err := e.cat.Asset(strings.ToUpper(args[1]))
		if err != nil {
			return err
		}

		provider := app.Insight(e.cfg, clock.NewReal())

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		s := newSpinner(insight.Loading)
		s.Start()
		text := provider.Insight(ctx, from.Symbol, to.Symbol)
		s.Stop()

		fmt.Printf("\n  %s %s\n\n", color.YellowString("✨"), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightCmd)
}
