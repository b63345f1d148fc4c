package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"cafe_client/internal/auth"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session fresh and print state changes until interrupted",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("now", true, "revalidate once before waiting for the schedule")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	unsubscribe := core.Auth.Subscribe(func(st auth.State) {
		fmt.Fprintf(out, "-> %s\n", st.Kind)
	})
	defer unsubscribe()

	printState(out, core.Auth.State())

	if now, _ := cmd.Flags().GetBool("now"); now {
		if err := core.Revalidate.RunOnce(ctx); err != nil {
			fmt.Fprintf(out, "revalidate: %v\n", err)
		}
	}

	if err := core.Revalidate.SetupAndStart(); err != nil {
		return err
	}
	defer core.Revalidate.Stop()

	<-ctx.Done()
	return nil
}
