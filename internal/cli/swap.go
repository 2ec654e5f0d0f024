package cli

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swaptoon/swap-engine/internal/app"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/events"
	"github.com/swaptoon/swap-engine/internal/swap"
)

var (
	failRate  float64
	noConfirm bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Run a simulated swap through confirmation and execution",
	Long: `Swap runs one trade through the full lifecycle: the quote is confirmed,
executed and recorded in the trade history. Press Ctrl-C while it is in
flight to cancel.

Examples:
  swaptoon swap 1 BTC to USDC
  swaptoon swap 0.5 ETH to SOL --yes
  swaptoon swap 100 USDC to ETH --fail-rate 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Float64Var(&failRate, "fail-rate", 0, "probability each lifecycle step fails (overrides config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) error {
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

	if !noConfirm && !confirm("Proceed with swap?") {
		fmt.Println("Swap cancelled.")
		return nil
	}

	rate := e.cfg.FailRate
	if cmd.Flags().Changed("fail-rate") {
		rate = failRate
	}
	if rate < 0 || rate > 1 {
		return fmt.Errorf("--fail-rate must be within [0, 1], got %v", rate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := app.OpenStore(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	listeners := swap.Listeners{}
	if e.cfg.AMQPURL != "" {
		pub, err := events.DialAMQP(e.cfg.AMQPURL, 3, time.Second)
		if err != nil {
			return err
		}
		defer pub.Close()
		listeners = append(listeners, events.NewBridge(nil, pub))
	}
	transitions := make(chan swap.Event, 8)
	listeners = append(listeners, swap.ListenerFunc(func(ev swap.Event) { transitions <- ev }))

	ctrl, err := swap.New(swap.Config{
		UserID:       userID,
		Catalog:      e.cat,
		Store:        st,
		Scheduler:    clock.NewReal(),
		ConfirmDelay: e.cfg.ConfirmDelay,
		ExecuteDelay: e.cfg.ExecuteDelay,
		Failures:     swap.RandomFailures(rate, rand.New(rand.NewSource(time.Now().UnixNano()))),
		Listener:     listeners,
		Source:       q.Source.Symbol,
		Target:       q.Target.Symbol,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.SetSourceAmount(req.Amount); err != nil {
		return err
	}
	if ok, err := ctrl.Submit(); err != nil {
		return err
	} else if !ok {
		return swap.ErrNotIdle
	}

	ev := await(ctx, ctrl, transitions)
	if ev.To == swap.StatusFailed {
		return fmt.Errorf("swap failed after %s: %s", ev.Elapsed.Round(time.Millisecond), ev.Snapshot.FailureReason)
	}

	printSuccess(fmt.Sprintf("✓ Swapped %s %s for %s %s in %s",
		ev.Trade.SourceAmount, ev.Trade.SourceAsset.Symbol,
		ev.Trade.TargetAmount, ev.Trade.TargetAsset.Symbol,
		ev.Elapsed.Round(time.Millisecond)))
	fmt.Printf("  Trade ID: %s\n\n", color.CyanString(ev.Trade.ID))
	return nil
}

// await follows the session until it settles, cancelling it once if ctx
// ends first.
func await(ctx context.Context, ctrl *swap.Controller, transitions <-chan swap.Event) swap.Event {
	s := newSpinner(suffixFor(swap.StatusConfirming))
	s.Start()
	defer s.Stop()

	done := ctx.Done()
	for {
		select {
		case ev := <-transitions:
			if ev.Terminal() {
				return ev
			}
			setSuffix(s, suffixFor(ev.To))
		case <-done:
			done = nil
			setSuffix(s, "Cancelling...")
			ctrl.Cancel()
		}
	}
}

func setSuffix(s *spinner.Spinner, text string) {
	s.Lock()
	s.Suffix = " " + text
	s.Unlock()
}

func suffixFor(status swap.Status) string {
	switch status {
	case swap.StatusExecuting:
		return "Executing swap..."
	default:
		return "Confirming swap..."
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s (y/N): ", prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
