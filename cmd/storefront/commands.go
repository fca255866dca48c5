package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"storefront/internal/domain"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/spf13/cobra"
)

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Browse the catalog, manage your cart, and place orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.productsCommand(),
		a.cartCommand(),
		a.orderCommand(),
		a.profileCommand(),
		a.adminCommand(),
	)
	return root
}

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := a.auth.Login(cmd.Context(), email, password)
			if !result.Success {
				return fmt.Errorf("login failed: %s", result.Message)
			}
			fmt.Printf("Signed in as %s\n", a.auth.Current().Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCommand() *cobra.Command {
	input := service.RegisterInput{Role: "user"}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := a.auth.Register(cmd.Context(), input)
			if !result.Success {
				return fmt.Errorf("registration failed: %s", result.Message)
			}
			fmt.Printf("Account created for %s\n", a.auth.Current().Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Email, "email", "", "account email")
	cmd.Flags().StringVar(&input.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&input.Address, "address", "", "address")
	cmd.Flags().StringVar(&input.Password, "password", "", "password")
	cmd.Flags().StringVar(&input.ConfirmPassword, "confirm-password", "", "password confirmation")
	cmd.Flags().StringVar(&input.Role, "role", "user", "account role (user or admin)")
	cmd.Flags().StringVar(&input.AdminCode, "admin-code", "", "admin registration code")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("confirm-password")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the cached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.auth.Logout()
			fmt.Println("Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.auth.Current()
			if user == nil {
				fmt.Println("Not signed in")
				return nil
			}
			role := "user"
			if user.IsAdmin {
				role = "admin"
			}
			fmt.Printf("%s <%s> (%s)\n", user.Name, user.Email, role)
			return nil
		},
	}
}

func (a *app) productsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	var (
		search   string
		category string
		maxPrice float64
		rating   string
		page     int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List products with optional filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ratingFilter, err := domain.ParseRatingFilter(rating)
			if err != nil {
				return err
			}
			q := domain.Query{
				Search:   search,
				Category: category,
				MaxPrice: maxPrice,
				Rating:   ratingFilter,
				Page:     page,
				Limit:    a.cfg.Catalog.PageSize,
			}
			result, err := a.catalog.Fetch(cmd.Context(), q)
			if err != nil {
				return err
			}
			printProducts(result.Products)
			if !ratingFilter.IsZero() && len(result.Products) < result.Unfiltered {
				fmt.Printf("(%d of %d items on this page match the rating filter)\n",
					len(result.Products), result.Unfiltered)
			}
			fmt.Printf("Page %d, %d total in catalog\n", q.Normalize().Page, result.Total)
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "search term")
	list.Flags().StringVar(&category, "category", "", "category filter")
	list.Flags().Float64Var(&maxPrice, "max-price", 0, "price ceiling")
	list.Flags().StringVar(&rating, "rating", "", `rating filter, "gte:4" or "lt:3.5"`)
	list.Flags().IntVar(&page, "page", 1, "page number")

	get := &cobra.Command{
		Use:   "get <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", p.Title, p.Brand)
			fmt.Printf("  %s\n", p.Description)
			fmt.Printf("  Price: %.2f (%.0f%% off -> %.2f)  Rating: %.1f  Stock: %d\n",
				p.Price, p.DiscountPercentage, p.DiscountedPrice(), p.Rating, p.Stock)
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear-filters",
		Short: "Reset all filters and cached pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.catalog.ClearFilters()
			fmt.Println("Filters cleared")
			return nil
		},
	}

	cmd.AddCommand(list, get, clear)
	return cmd
}

func (a *app) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage your cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cart.Fetch(cmd.Context()); err != nil {
				return err
			}
			items := a.cart.Items()
			if len(items) == 0 {
				fmt.Println("Your cart is empty")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRODUCT\tQTY\tUNIT\tLINE")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n",
					item.Product.Title, item.Quantity,
					item.Product.DiscountedPrice(), item.LineTotal())
			}
			w.Flush()
			fmt.Printf("%d items, total %.2f\n", a.cart.ItemCount(), a.cart.Total())
			return nil
		},
	}

	var qty int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cart.Add(cmd.Context(), args[0], qty); err != nil {
				return err
			}
			fmt.Println("Item added to cart")
			return nil
		},
	}
	add.Flags().IntVar(&qty, "quantity", 1, "quantity to add")

	var newQty int
	update := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Change a line's quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cart.Update(cmd.Context(), args[0], newQty); err != nil {
				return err
			}
			fmt.Println("Cart updated")
			return nil
		},
	}
	update.Flags().IntVar(&newQty, "quantity", 1, "new quantity")
	update.MarkFlagRequired("quantity")

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cart.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Item removed from cart")
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cart.Clear(cmd.Context())
			fmt.Println("Cart cleared")
			return nil
		},
	}

	cmd.AddCommand(show, add, update, remove, clear)
	return cmd
}

func (a *app) orderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place orders and review history",
	}

	var address, payment string
	place := &cobra.Command{
		Use:   "place",
		Short: "Check out the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				// Fall back to the remembered delivery address.
				address, _ = a.sessions.Get(store.KeyDeliveryAddress)
			}
			if err := a.cart.Fetch(cmd.Context()); err != nil {
				return err
			}
			order, err := a.cart.PlaceOrder(cmd.Context(), address, payment)
			if err != nil {
				return err
			}
			if err := a.sessions.Set(store.KeyDeliveryAddress, address); err != nil {
				a.logger.Warn("Failed to remember delivery address")
			}
			fmt.Printf("Order %s placed, total %.2f\n", order.ID, order.TotalPrice)
			return nil
		},
	}
	place.Flags().StringVar(&address, "address", "", "shipping address (defaults to the last one used)")
	place.Flags().StringVar(&payment, "payment", "",
		"payment method: "+strings.Join(domain.PaymentMethods, ", "))
	place.MarkFlagRequired("payment")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your past orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := a.orders.ListMine(cmd.Context())
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Println("You have no past orders")
				return nil
			}
			printOrders(orders)
			return nil
		},
	}

	cmd.AddCommand(place, list)
	return cmd
}

func (a *app) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}

	input := service.ProfileInput{}
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile details",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.UpdateProfile(cmd.Context(), input); err != nil {
				return err
			}
			fmt.Println("Profile updated")
			return nil
		},
	}
	update.Flags().StringVar(&input.Name, "name", "", "display name")
	update.Flags().StringVar(&input.Phone, "phone", "", "phone number")
	update.Flags().StringVar(&input.Address, "address", "", "address")
	update.MarkFlagRequired("name")

	cmd.AddCommand(update)
	return cmd
}

func (a *app) adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Catalog and order management (admin only)",
	}

	products := &cobra.Command{
		Use:   "products",
		Short: "List the full catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := a.admin.Products(cmd.Context())
			if err != nil {
				return err
			}
			printProducts(products)
			return nil
		},
	}

	orders := &cobra.Command{
		Use:   "orders",
		Short: "List all orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := a.admin.Orders(cmd.Context())
			if err != nil {
				return err
			}
			printOrders(orders)
			return nil
		},
	}

	carts := &cobra.Command{
		Use:   "carts",
		Short: "List all carts",
		RunE: func(cmd *cobra.Command, args []string) error {
			carts, err := a.admin.Carts(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range carts {
				fmt.Printf("User %s: %d items, total %.2f\n",
					c.UserID, domain.CartItemCount(c.Items), domain.CartTotal(c.Items))
			}
			return nil
		},
	}

	input := service.ProductInput{}
	addFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&input.Title, "title", "", "product title")
		c.Flags().StringVar(&input.Description, "description", "", "description")
		c.Flags().StringVar(&input.Brand, "brand", "", "brand")
		c.Flags().StringVar(&input.Category, "category", "", "category")
		c.Flags().Float64Var(&input.Price, "price", 0, "price")
		c.Flags().Float64Var(&input.DiscountPercentage, "discount", 0, "discount percentage")
		c.Flags().Float64Var(&input.Rating, "rating", 0, "rating")
		c.Flags().IntVar(&input.Stock, "stock", 0, "stock count")
		c.Flags().StringVar(&input.Thumbnail, "thumbnail", "", "thumbnail URL")
	}

	addProduct := &cobra.Command{
		Use:   "add-product",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.admin.AddProduct(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Printf("Product %s created\n", p.ID)
			return nil
		},
	}
	addFlags(addProduct)

	updateProduct := &cobra.Command{
		Use:   "update-product <product-id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.admin.UpdateProduct(cmd.Context(), args[0], input); err != nil {
				return err
			}
			fmt.Println("Product updated")
			return nil
		},
	}
	addFlags(updateProduct)

	deleteProduct := &cobra.Command{
		Use:   "delete-product <product-id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.admin.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Product deleted")
			return nil
		},
	}

	cmd.AddCommand(products, orders, carts, addProduct, updateProduct, deleteProduct)
	return cmd
}

func printProducts(products []domain.Product) {
	if len(products) == 0 {
		fmt.Println("No products found")
		return
	}
	for _, p := range products {
		fmt.Printf("%s  %-30s  %8.2f  %.1f★  [%s]\n",
			p.ID, p.Title, p.DiscountedPrice(), p.Rating, p.Category)
	}
}

func printOrders(orders []domain.Order) {
	for _, o := range orders {
		fmt.Printf("%s  %s  %8.2f  %s  (%d lines)\n",
			o.ID, o.CreatedAt.Format("2006-01-02"), o.TotalPrice, o.Status, len(o.Items))
	}
}
