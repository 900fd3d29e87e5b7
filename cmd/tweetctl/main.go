// Command tweetctl posts, reads and deletes tweets and runs an Account
// Activity webhook receiver from the command line.
//
// Credentials come from config.yaml, a .env file or GOTWEET_ environment
// variables:
//
//	export GOTWEET_CREDENTIALS_BEARER_TOKEN="..."
//	tweetctl user @XDevelopers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", fail("error:"), err)
		os.Exit(1)
	}
}
