package cli

import (
	"errors"
	"fmt"
	"io"

	"cafe_client/internal/auth"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE:  runStatus,
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Print the screen the app would open",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), core.Router.Next(cmd.Context(), core.Auth.State()))
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		core.Auth.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var cafeCmd = &cobra.Command{
	Use:   "cafe",
	Short: "Show the signed-in manager's café",
	RunE:  runCafe,
}

func init() {
	rootCmd.AddCommand(statusCmd, routeCmd, loginCmd, logoutCmd, cafeCmd)

	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (default $CAFE_PASSWORD)")
}

func printState(w io.Writer, st auth.State) {
	fmt.Fprintf(w, "state: %s\n", st.Kind)
	if u := st.User(); u != nil {
		fmt.Fprintf(w, "email: %s\nrole:  %s\n", u.Email, u.Role)
		if u.EmailVerified != nil {
			fmt.Fprintf(w, "verified: %t\n", *u.EmailVerified)
		}
	}
	if st.Pending != nil {
		fmt.Fprintf(w, "pending: %s (%s)\n", st.Pending.Email, st.Pending.Role)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	st := core.Auth.State()
	printState(cmd.OutOrStdout(), st)
	fmt.Fprintf(cmd.OutOrStdout(), "route: %s\n", core.Router.Next(cmd.Context(), st))
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	res := core.Login.Submit(cmd.Context(), auth.LoginForm{Email: email, Password: password(cmd, "password")})
	if res.Error != "" {
		return errors.New(res.Error)
	}
	printState(cmd.OutOrStdout(), core.Auth.State())
	fmt.Fprintf(cmd.OutOrStdout(), "route: %s\n", res.Destination)
	return nil
}

func runCafe(cmd *cobra.Command, args []string) error {
	cafe, err := core.Auth.ManagerCafe(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", cafe.ID, cafe.Name)
	if cafe.Address != "" {
		fmt.Fprintln(cmd.OutOrStdout(), cafe.Address)
	}
	return nil
}
