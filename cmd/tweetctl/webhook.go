package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesprial/go-twitter-api-wrapper/webhook"
)

func (a *app) webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Account Activity webhook tools",
	}
	cmd.AddCommand(a.webhookServeCmd())
	return cmd
}

func (a *app) webhookServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive Account Activity deliveries and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Webhook.Addr = addr
			}

			server, err := a.newWebhookServer()
			if err != nil {
				return err
			}

			a.printf("%s Listening on %s%s\n", success("✓"), a.cfg.Webhook.Addr, a.cfg.Webhook.Path)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides webhook.addr)")
	return cmd
}

func (a *app) newWebhookServer() (*webhook.Server, error) {
	dispatcher := webhook.NewDispatcher(a.cfg.Webhook.Workers, &a.logger)
	for _, t := range []webhook.EventType{
		webhook.EventDirectMessage,
		webhook.EventTyping,
		webhook.EventFollow,
		webhook.EventUnfollow,
		webhook.EventTweetCreate,
		webhook.EventFavorite,
	} {
		dispatcher.On(t, a.printEvent)
	}

	server, err := webhook.NewServer(webhook.ServerConfig{
		ConsumerSecret: a.cfg.Credentials.ConsumerSecret,
		Addr:           a.cfg.Webhook.Addr,
		Path:           a.cfg.Webhook.Path,
		Logger:         &a.logger,
	}, dispatcher)
	if err != nil {
		dispatcher.Close()
		return nil, err
	}
	return server, nil
}

func (a *app) printEvent(_ context.Context, ev *webhook.Event) error {
	line := fmt.Sprintf("%s %s", info(string(ev.Type)), faint(ev.CreatedAt.Format("15:04:05")))
	switch {
	case ev.Message != nil:
		line += fmt.Sprintf(" %s -> %s: %s", ev.Message.SenderID, ev.Message.RecipientID, ev.Message.Text)
	case ev.Tweet != nil:
		line += fmt.Sprintf(" %s: %s", ev.Tweet.ID, ev.Tweet.Text)
	}
	if ev.Source != nil && ev.Target != nil {
		line += fmt.Sprintf(" @%s -> @%s", ev.Source.Username, ev.Target.Username)
	}
	a.printf("%s\n", line)
	return nil
}
