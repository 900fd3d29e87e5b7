package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/config"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	fail    = color.New(color.FgRed).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

// app carries the state shared by every subcommand once the root command
// has loaded the configuration.
type app struct {
	cfgFile  string
	logLevel string

	mu     sync.Mutex
	out    io.Writer
	cfg    *config.Config
	logger zerolog.Logger
	client *gotweet.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "tweetctl",
		Short: "Work with the Twitter API from the command line",
		Long: `tweetctl posts and deletes tweets, looks up users and timelines and
serves an Account Activity webhook, using credentials from config.yaml,
a .env file or GOTWEET_ environment variables.`,
		PersistentPreRunE: a.initialize,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.tweetCmd(),
		a.whoamiCmd(),
		a.userCmd(),
		a.showCmd(),
		a.deleteCmd(),
		a.timelineCmd(),
		a.webhookCmd(),
	)
	return root
}

// initialize loads the configuration and builds the logger and client.
func (a *app) initialize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())

	a.client, err = gotweet.NewClient(cfg.ClientOptions(&a.logger))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// step runs fn behind a spinner labelled msg. The spinner only draws when
// stderr is a terminal.
func (a *app) step(cmd *cobra.Command, msg string, fn func(ctx context.Context) error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " " + msg
	s.Start()
	err := fn(cmd.Context())
	s.Stop()
	return err
}

// printf is safe to call from webhook handlers running on the worker pool.
func (a *app) printf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}
