package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"shopping-portal/internal/config"
	"shopping-portal/internal/domain"
	"shopping-portal/internal/messaging"
	"shopping-portal/internal/notify"
	"shopping-portal/internal/observability"
	"shopping-portal/internal/state"
	"shopping-portal/internal/tokenstore"

	"github.com/spf13/cobra"
)

// errReported means a notice already told the user what went wrong
var errReported = errors.New("reported")

var errNoSession = errors.New("not logged in; run 'shop-cli login' first")

// app is the state shared by every subcommand of one invocation
type app struct {
	out io.Writer

	apiURL    string
	tokenFile string
	logLevel  string

	cfg     *config.Config
	tokens  *tokenstore.FileStore
	ctrl    *state.Controller
	closers []func()
}

func newApp(out io.Writer) *app {
	return &app{out: out}
}

// run executes one invocation. Whatever the command opened is released
// afterwards, whether it succeeded or not.
func run(ctx context.Context, a *app, args ...string) error {
	defer a.shutdown()

	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *app) shutdown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) rootCmd() *cobra.Command {

	root := &cobra.Command{
		Use:   "shop-cli",
		Short: "Shopping portal client for the terminal",
		Long: `shop-cli talks to the shop API the same way the web frontend does.

The session token is kept in TOKEN_FILE between invocations, so log in
once and then browse, add to the cart and check out.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "shop API base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", "", "session token file (overrides TOKEN_FILE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.itemsCmd(),
		a.addCmd(),
		a.cartCmd(),
		a.checkoutCmd(),
		a.ordersCmd(),
		a.eventsCmd(),
	)
	return root
}

// setup builds the controller over the file token store and restores
// any stored session
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	observability.InitLogger(os.Stderr, a.logLevel, "text")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = a.apiURL
	}
	if a.tokenFile != "" {
		cfg.TokenFile = a.tokenFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	api, err := config.NewShopClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	notifiers := notify.Multi{printer{a.out}}
	var opts []state.ControllerOption
	if cfg.EventsAMQPURL != "" && cmd.Name() != "events" {
		if rmq, err := messaging.NewRabbitMQ(cfg.EventsAMQPURL); err != nil {
			slog.Warn("events disabled", slog.String("error", err.Error()))
		} else {
			publisher := rmq.Publisher()
			notifiers = append(notifiers, publisher)
			opts = append(opts, state.WithCheckoutObserver(publisher))
			a.onClose(func() { rmq.Close() })
		}
	}

	a.tokens = tokenstore.NewFileStore(cfg.TokenFile)
	a.ctrl = state.NewController(api, a.tokens, notify.Counted(notifiers), opts...)
	return a.ctrl.Start(cmd.Context())
}

func (a *app) requireSession(*cobra.Command, []string) error {
	if !a.ctrl.Authenticated() {
		return errNoSession
	}
	return nil
}

// printer writes notices to stdout, one per line
type printer struct {
	w io.Writer
}

func (p printer) Notify(_ context.Context, n domain.Notice) {
	if n.Kind == domain.NoticeError {
		fmt.Fprintln(p.w, "Error:", n.Message)
		return
	}
	fmt.Fprintln(p.w, n.Message)
}
