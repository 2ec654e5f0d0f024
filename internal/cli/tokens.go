package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "assets"},
	Short:   "List tradable tokens and their USD rates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("\n%-8s %-12s %16s\n", "SYMBOL", "NAME", "USD")
		for _, a := range e.cat.Assets() {
			rate, err := e.cat.Rate(a.Symbol)
			if err != nil {
				return err
			}
			fmt.Printf("%s %-12s %16s\n", swatch(a.Color, fmt.Sprintf("%-8s", a.Symbol)), a.Name, rate.StringFixed(2))
		}
		fmt.Println()
		return nil
	},
}

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List liquidity pools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("\n%-12s %-12s %8s %10s\n", "ID", "PAIR", "APR", "TVL")
		for _, p := range e.cat.Pools() {
			pair := p.AssetA.Symbol + "/" + p.AssetB.Symbol
			fmt.Printf("%-12s %-12s %8s %10s\n", p.ID, pair, color.GreenString("%7s%%", p.APR.String()), p.TVL)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(poolsCmd)
}
