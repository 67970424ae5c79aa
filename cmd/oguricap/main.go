package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// An interrupted run loop surfaces context.Canceled after the shutdown
	// was already logged, so exit without repeating it.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "oguricap:", err)
	}
	os.Exit(1)
}
