package cli

import (
	"errors"
	"fmt"
	"time"

	"cafe_client/internal/auth"
	"cafe_client/internal/screens"
	"cafe_client/internal/shared"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and complete it once the email is verified",
	Long: `Create an identity provider account, then retry sign-in until the email
address has been verified and the account is synced with the backend.

The pending registration only lives in this process: if it exits before
verification succeeds, run login after verifying instead.

Examples:
  cafeauth register --email leo@cafe.co --first Leo --last Paz --role manager
  cafeauth register --email ana@cafe.co --first Ana --last Gil --interval 10s --attempts 30`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password (default $CAFE_PASSWORD)")
	registerCmd.Flags().String("confirm", "", "password confirmation (default: same as password)")
	registerCmd.Flags().String("first", "", "first name")
	registerCmd.Flags().String("last", "", "last name")
	registerCmd.Flags().String("role", string(shared.RoleClient), "client or manager")
	registerCmd.Flags().Duration("interval", 5*time.Second, "wait between verification attempts")
	registerCmd.Flags().Int("attempts", 60, "verification attempts before giving up")
}

func runRegister(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	email, _ := flags.GetString("email")
	first, _ := flags.GetString("first")
	last, _ := flags.GetString("last")
	role, _ := flags.GetString("role")
	confirm, _ := flags.GetString("confirm")
	interval, _ := flags.GetDuration("interval")
	attempts, _ := flags.GetInt("attempts")

	pw := password(cmd, "password")
	if confirm == "" {
		confirm = pw
	}

	out := cmd.OutOrStdout()
	res := core.Register.Submit(cmd.Context(), auth.RegisterForm{
		Email:           email,
		Password:        pw,
		ConfirmPassword: confirm,
		FirstName:       first,
		LastName:        last,
		Role:            shared.Role(role),
	})
	if res.Error != "" {
		return errors.New(res.Error)
	}
	fmt.Fprintf(out, "Account created. Verify %s, waiting...\n", email)

	for i := 0; i < attempts; i++ {
		res = core.Register.Verify(cmd.Context())
		if res.Error == "" {
			printState(out, core.Auth.State())
			fmt.Fprintf(out, "route: %s\n", res.Destination)
			return nil
		}
		if core.Register.Stage() != screens.StageVerify {
			return errors.New(res.Error)
		}
		fmt.Fprintf(out, "  %s\n", res.Error)

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("email not verified after %d attempts", attempts)
}
