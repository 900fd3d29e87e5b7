package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the access token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var user *types.User
			err := a.step(cmd, "Fetching account...", func(ctx context.Context) error {
				var err error
				user, err = a.client.Me(ctx)
				return err
			})
			if err != nil {
				return err
			}
			a.printUser(user)
			return nil
		},
	}
}

func (a *app) userCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <id|@username>",
		Short: "Look up a user by id or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var user *types.User
			err := a.step(cmd, "Fetching user...", func(ctx context.Context) error {
				var err error
				user, err = a.resolveUser(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			a.printUser(user)
			return nil
		},
	}
}

// resolveUser treats "@name" and anything that is not all digits as a
// username, and the rest as a user id.
func (a *app) resolveUser(ctx context.Context, ref string) (*types.User, error) {
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		return a.client.FetchUserByUsername(ctx, name)
	}
	if isNumeric(ref) {
		return a.client.FetchUser(ctx, ref)
	}
	return a.client.FetchUserByUsername(ctx, ref)
}

// resolveUserID is resolveUser for callers that only need the id; a numeric
// reference is used as is.
func (a *app) resolveUserID(ctx context.Context, ref string) (string, error) {
	if isNumeric(ref) {
		return ref, nil
	}
	user, err := a.resolveUser(ctx, ref)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (a *app) printUser(user *types.User) {
	a.printf("%s %s (%s)\n", info("@"+user.Username), user.Name, user.ID)
	if user.Description != "" {
		a.printf("  %s\n", user.Description)
	}
	if m := user.PublicMetrics; m != nil {
		a.printf("  %d followers, %d following, %d tweets\n", m.FollowersCount, m.FollowingCount, m.TweetCount)
	}
	if user.Protected {
		a.printf("  %s\n", faint("protected"))
	}
}
