package main

import (
	"fmt"
	"os"

	"github.com/angelmondragon/maison-storefront/internal/session"
	"github.com/angelmondragon/maison-storefront/pkg/enums"
	"github.com/spf13/cobra"
)

const envPassword = "STOREFRONT_PASSWORD"

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(envPassword)
}

func newLoginCmd(current func() *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and merge the guest cart into the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			sess, err := a.sf.Login(cmd.Context(), session.Credentials{Username: args[0], Password: passwordOrEnv(password)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s), continue at %s\n",
				sess.User.Username, sess.User.Role, a.sf.RedirectPath(cmd.Context()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (defaults to $"+envPassword+")")
	return cmd
}

func newRegisterCmd(current func() *app) *cobra.Command {
	var reg session.Registration
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg.Password = passwordOrEnv(reg.Password)
			if role != "" {
				parsed, err := enums.ParseRole(role)
				if err != nil {
					return err
				}
				reg.Role = parsed
			}
			sess, err := current().sf.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "welcome %s (%s)\n", sess.User.Username, sess.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Username, "username", "", "username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "password (defaults to $"+envPassword+")")
	cmd.Flags().StringVar(&reg.FullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&role, "role", "", "customer or seller")
	return cmd
}

func newLogoutCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local cart data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current().sf.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := current().sf.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "guest")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", user.Username, user.Email, user.Role)
			return nil
		},
	}
}
