package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/angelmondragon/maison-storefront/internal/cart"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type productFlags struct {
	name     string
	price    string
	material string
	caseSize string
	ref      string
}

func (p *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.name, "name", "", "product name shown in the guest cart")
	cmd.Flags().StringVar(&p.price, "price", "0", "unit price shown in the guest cart")
	cmd.Flags().StringVar(&p.material, "material", "", "case material")
	cmd.Flags().StringVar(&p.caseSize, "case-size", "", "case size")
	cmd.Flags().StringVar(&p.ref, "ref", "", "reference number")
}

func (p *productFlags) snapshot(id string) (cart.ProductSnapshot, error) {
	price, err := decimal.NewFromString(p.price)
	if err != nil {
		return cart.ProductSnapshot{}, fmt.Errorf("invalid --price %q: %w", p.price, err)
	}
	return cart.ProductSnapshot{
		ID:              id,
		Name:            p.name,
		Price:           price,
		Material:        p.material,
		CaseSize:        p.caseSize,
		ReferenceNumber: p.ref,
	}, nil
}

func printCart(w io.Writer, c cart.Cart) {
	if len(c.Lines) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tNAME\tQTY\tPRICE\tTOTAL")
	for _, line := range c.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			line.LineID, line.ProductID, line.Product.Name, line.Quantity,
			line.Product.Price.StringFixed(2), line.Total().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%s\n", c.ItemCount, c.Subtotal.StringFixed(2))
	_ = tw.Flush()
}

func printWishlist(w io.Writer, list cart.Wishlist) {
	if len(list.Lines) == 0 {
		fmt.Fprintln(w, "wishlist is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tPRICE")
	for _, line := range list.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", line.ProductID, line.Product.Name, line.Product.Price.StringFixed(2))
	}
	_ = tw.Flush()
}

func newCartCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show the active cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := current().sf.Cart(cmd.Context())
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newAddCmd(current func() *app) *cobra.Command {
	var qty int
	var product productFlags
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := product.snapshot(args[0])
			if err != nil {
				return err
			}
			c, err := current().sf.AddToCart(cmd.Context(), snap, qty)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	product.register(cmd)
	return cmd
}

func newUpdateCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <line-id> <qty>",
		Short: "Set a line quantity; 0 removes the line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			c, err := current().sf.UpdateQuantity(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newRemoveCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := current().sf.RemoveFromCart(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newClearCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := current().sf.ClearCart(cmd.Context())
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newWishlistCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wishlist",
		Short: "Show the wishlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := current().sf.Wishlist(cmd.Context())
			if err != nil {
				return err
			}
			printWishlist(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newWishCmd(current func() *app) *cobra.Command {
	var product productFlags
	cmd := &cobra.Command{
		Use:   "wish <product-id>",
		Short: "Add a product to the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := product.snapshot(args[0])
			if err != nil {
				return err
			}
			list, err := current().sf.AddToWishlist(cmd.Context(), snap)
			if err != nil {
				return err
			}
			printWishlist(cmd.OutOrStdout(), list)
			return nil
		},
	}
	product.register(cmd)
	return cmd
}

func newUnwishCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unwish <product-id>",
		Short: "Remove a product from the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := current().sf.RemoveFromWishlist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printWishlist(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newToggleCmd(current func() *app) *cobra.Command {
	var product productFlags
	cmd := &cobra.Command{
		Use:   "toggle <product-id>",
		Short: "Wish a product, or unwish it when already wished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := product.snapshot(args[0])
			if err != nil {
				return err
			}
			wished, list, err := current().sf.ToggleWishlist(cmd.Context(), snap)
			if err != nil {
				return err
			}
			state := "removed from"
			if wished {
				state = "added to"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s wishlist\n", args[0], state)
			printWishlist(cmd.OutOrStdout(), list)
			return nil
		},
	}
	product.register(cmd)
	return cmd
}

func newBadgeCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "badge",
		Short: "Show header badge counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, wishes, err := current().sf.BadgeCounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cart %d  wishlist %d\n", items, wishes)
			return nil
		},
	}
}
