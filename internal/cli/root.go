// Package cli implements the swaptoon command line: catalog listings,
// quotes, simulated swaps, pool joins and market insights, all run
// in-process against the same engine the HTTP server uses.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swaptoon/swap-engine/internal/app"
	"github.com/swaptoon/swap-engine/internal/catalog"
	"github.com/swaptoon/swap-engine/internal/config"
	"github.com/swaptoon/swap-engine/internal/logging"
)

// Version is stamped by the build.
var Version = "0.1.0"

var (
	cfgFile string
	userID  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "swaptoon",
	Short: "A playful token swap simulator",
	Long: `swaptoon quotes and simulates token swaps against a static rate table,
joins liquidity pools and asks Gemini for a one-line market vibe check.

Examples:
  swaptoon tokens
  swaptoon quote 1 BTC to USDC
  swaptoon swap 0.5 ETH to SOL --yes
  swaptoon join btc-usdc --amount 250
  swaptoon insight BTC USDC`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports errors in color.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.swaptoon.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "cli", "user id trades and positions are recorded under")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine events to stderr")
}

// env is what every command needs: configuration and the asset catalog.
type env struct {
	cfg *config.Config
	cat *catalog.Catalog
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := "error"
	if verbose {
		level = "debug"
	}
	logging.SetupWriter(os.Stderr, "swaptoon-cli", cfg.Env, level)

	cat, err := app.Catalog(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, cat: cat}, nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	return s
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s %v\n\n", color.RedString("Error:"), err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString(message))
}

func swatch(hex, text string) string {
	return color.RGB(hexRGB(hex)).Sprint(text)
}

// hexRGB parses "#RRGGBB"; anything else renders white.
func hexRGB(hex string) (r, g, b int) {
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 255, 255, 255
	}
	return r, g, b
}
