package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swaptoon/swap-engine/internal/app"
	"github.com/swaptoon/swap-engine/internal/convert"
	"github.com/swaptoon/swap-engine/internal/model"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"trades"},
	Short:   "List recorded trades, most recent first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		st, closeStore, err := app.OpenStore(cmd.Context(), e.cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		trades, err := st.ListTrades(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			fmt.Printf("\nNo trades recorded for %s.\n\n", userID)
			return nil
		}
		color.New(color.Bold).Printf("\n%-20s %-28s %-28s\n", "TIME", "PAID", "RECEIVED")
		for _, t := range trades {
			fmt.Println(historyLine(t))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

// historyLine renders amounts with four decimals, as the profile view does.
func historyLine(t model.Trade) string {
	return fmt.Sprintf("%-20s %-28s %-28s",
		t.Timestamp.Local().Format("2006-01-02 15:04:05"),
		convert.Fixed(t.SourceAmount, 4)+" "+t.SourceAsset.Symbol,
		convert.Fixed(t.TargetAmount, 4)+" "+t.TargetAsset.Symbol,
	)
}
