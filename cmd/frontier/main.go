// Package main is the entry point for the frontier command line tool.
//
// frontier computes the mean-variance efficient frontier of an asset
// universe: for a sweep of target returns it finds the fully invested
// allocation with the lowest volatility under per-asset bounds, and reports
// the portfolio with the best Sharpe ratio.
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
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
