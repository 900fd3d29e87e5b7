package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const defaultTimelineMax = 10

func (a *app) tweetCmd() *cobra.Command {
	var (
		media   []string
		replyTo string
	)

	cmd := &cobra.Command{
		Use:   "tweet <text>",
		Short: "Post a tweet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &types.PostTweetRequest{Text: args[0], InReplyToTweetID: replyTo}
			for _, path := range media {
				file, err := gotweet.OpenMedia(path, "")
				if err != nil {
					return err
				}
				defer file.Close()
				req.Media = append(req.Media, file)
			}

			var tweet *types.Tweet
			err := a.step(cmd, "Posting tweet...", func(ctx context.Context) error {
				var err error
				tweet, err = a.client.PostTweet(ctx, req)
				return err
			})
			if err != nil {
				return err
			}

			a.printf("%s Posted tweet %s\n", success("✓"), tweet.ID)
			a.printTweet(tweet)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&media, "media", nil, "image, GIF or video to attach (repeatable)")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "id of the tweet to reply to")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <tweet id>",
		Short: "Show a tweet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tweet *types.Tweet
			err := a.step(cmd, "Fetching tweet...", func(ctx context.Context) error {
				var err error
				tweet, err = a.client.FetchTweet(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			a.printTweet(tweet)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tweet id>",
		Short: "Delete one of your tweets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rel *types.Relation
			err := a.step(cmd, "Deleting tweet...", func(ctx context.Context) error {
				var err error
				rel, err = a.client.DeleteTweet(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			if !rel.Deleted {
				return fmt.Errorf("tweet %s was not deleted", args[0])
			}
			a.printf("%s Deleted tweet %s\n", success("✓"), args[0])
			return nil
		},
	}
}

func (a *app) timelineCmd() *cobra.Command {
	var max int

	cmd := &cobra.Command{
		Use:   "timeline <user id|@username>",
		Short: "List a user's most recent tweets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if max <= 0 {
				return fmt.Errorf("--max must be positive")
			}

			var tweets []*types.Tweet
			err := a.step(cmd, "Fetching timeline...", func(ctx context.Context) error {
				userID, err := a.resolveUserID(ctx, args[0])
				if err != nil {
					return err
				}
				tweets, err = a.client.TimelineIter(ctx, userID, &types.TimelineRequest{}).WithLimit(max).Collect(max)
				return err
			})
			if err != nil {
				return err
			}

			if len(tweets) == 0 {
				a.printf("No tweets found.\n")
				return nil
			}
			for _, tweet := range tweets {
				a.printTweet(tweet)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&max, "max", defaultTimelineMax, "maximum number of tweets to list")
	return cmd
}

func (a *app) printTweet(tweet *types.Tweet) {
	author := tweet.AuthorID
	if tweet.Author != nil {
		author = "@" + tweet.Author.Username
	}
	header := info(tweet.ID)
	if author != "" {
		header += " " + author
	}
	if tweet.CreatedAt != nil {
		header += " " + faint(tweet.CreatedAt.Format("2006-01-02 15:04"))
	}
	a.printf("%s\n", header)
	for _, line := range strings.Split(tweet.Text, "\n") {
		a.printf("  %s\n", line)
	}
	if m := tweet.PublicMetrics; m != nil {
		a.printf("  %s\n", faint(fmt.Sprintf("%d replies, %d retweets, %d likes", m.ReplyCount, m.RetweetCount, m.LikeCount)))
	}
}
