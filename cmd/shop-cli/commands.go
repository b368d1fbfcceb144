package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/messaging"
	"shopping-portal/internal/state"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.ctrl.SetCredentials(username, password)
			if err := a.ctrl.Login(cmd.Context()); err != nil {
				return errReported
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ctrl.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear %s: %w", a.tokens.Path(), err)
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show whether a session is stored",
		Run: func(*cobra.Command, []string) {
			s := a.ctrl.Snapshot()
			switch {
			case s.User != nil:
				fmt.Fprintf(a.out, "Logged in as %s\n", s.User.Username)
			case s.Token != "":
				fmt.Fprintf(a.out, "Logged in (session from %s)\n", a.tokens.Path())
			default:
				fmt.Fprintln(a.out, "Not logged in")
			}
		},
	}
}

func (a *app) itemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "items",
		Short:   "List the catalog",
		PreRunE: a.requireSession,
		Run: func(*cobra.Command, []string) {
			// the catalog was fetched when the stored session was restored
			items := a.ctrl.Snapshot().Items
			if len(items) == 0 {
				fmt.Fprintln(a.out, "No items available. Please check back later.")
				return
			}
			for _, item := range items {
				fmt.Fprintf(a.out, "%d\t%s\t$%.2f\t%s\n", item.ID, item.Name, item.Price, item.Description)
			}
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <item-id>",
		Short:   "Add an item to the cart",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return reported(a.ctrl.AddToCart(cmd.Context(), id))
		},
	}
}

func (a *app) cartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "cart",
		Short:   "Show the cart",
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reported(a.ctrl.ViewCart(cmd.Context()))
		},
	}
}

func (a *app) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "orders",
		Short:   "Show the order history",
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reported(a.ctrl.ViewOrderHistory(cmd.Context()))
		},
	}
}

func (a *app) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "checkout",
		Short:   "Order the current cart",
		PreRunE: a.requireSession,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.ctrl.Checkout(cmd.Context()) == state.CheckoutFailed {
				return errReported
			}
			return nil
		},
	}
}

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events [binding-key]",
		Short: "Follow shop events published to EVENTS_AMQP_URL",
		Long: `Follow the events other shop clients publish, one JSON object per line.

The optional binding key filters by routing key, for example "checkout.*"
or "notice.error". The default is "#", every event.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.EventsAMQPURL == "" {
				return errors.New("EVENTS_AMQP_URL is not set")
			}
			key := "#"
			if len(args) == 1 {
				key = args[0]
			}

			rmq, err := messaging.NewRabbitMQ(a.cfg.EventsAMQPURL)
			if err != nil {
				return err
			}
			defer rmq.Close()

			events, err := rmq.Consumer().Subscribe(cmd.Context(), key)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(a.out)
			for ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// reported hides errors a notice has already shown; a missing session
// still fails the command
func reported(err error) error {
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return errNoSession
	}
	return nil
}
