package main

import (
	"io"

	"github.com/spf13/cobra"
)

// newRootCmd builds the CLI. The returned shutdown releases what the
// executed command opened and must run after Execute, successful or not.
func newRootCmd(out, errOut io.Writer) (*cobra.Command, func() error) {
	var a *app

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Maison storefront client: session, cart and wishlist",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = bootstrap(cmd.Context(), errOut)
			return err
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	current := func() *app { return a }
	root.AddCommand(
		newLoginCmd(current),
		newRegisterCmd(current),
		newLogoutCmd(current),
		newWhoamiCmd(current),
		newCartCmd(current),
		newAddCmd(current),
		newUpdateCmd(current),
		newRemoveCmd(current),
		newClearCmd(current),
		newWishlistCmd(current),
		newWishCmd(current),
		newUnwishCmd(current),
		newToggleCmd(current),
		newBadgeCmd(current),
		newServeFakeCmd(),
	)
	shutdown := func() error {
		if a == nil {
			return nil
		}
		err := a.close(errOut)
		a = nil
		return err
	}
	return root, shutdown
}
