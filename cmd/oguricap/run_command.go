package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/commands"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process inbound commands line by line",
		Long: `Reads one inbound command per line from stdin and runs it through the
resolution engine. Line format:

  <requester>[@scope][!] /<comando> [args...]

"@scope" marks the origin scope, "!" marks an elevated moderator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				logger, err := buildLogger(cfg)
				if err != nil {
					return err
				}

				lockPath := filepath.Join(cfg.Paths.DataDir, "oguricap.lock")
				lock := flock.New(lockPath)
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another instance holds %s", lockPath)
				}
				defer lock.Unlock()

				router, err := buildRouter(cfg, st, logger)
				if err != nil {
					return err
				}

				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				return runLoop(signalCtx, router, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// runLoop consumes inbound lines until EOF or cancellation. One command is
// processed to completion before the next is read.
func runLoop(ctx context.Context, router *commands.Router, in io.Reader, out io.Writer) error {
	messenger := &consoleMessenger{out: out}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seq := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seq++
		event, err := parseInboundLine(line, strconv.Itoa(seq))
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		if err := router.Dispatch(ctx, messenger, event); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read inbound: %w", err)
	}
	return nil
}

// parseInboundLine splits "requester[@scope][!] /comando args..." into an
// inbound event.
func parseInboundLine(line, messageID string) (commands.Inbound, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return commands.Inbound{}, errors.New("expected: <requester>[@scope][!] /<comando> [args...]")
	}

	identity := fields[0]
	elevated := strings.HasSuffix(identity, "!")
	identity = strings.TrimSuffix(identity, "!")

	requester, scope, _ := strings.Cut(identity, "@")
	if requester == "" {
		return commands.Inbound{}, errors.New("empty requester")
	}

	command := strings.TrimPrefix(fields[1], "/")
	if command == "" {
		return commands.Inbound{}, errors.New("empty command")
	}

	return commands.Inbound{
		Command:       command,
		Args:          fields[2:],
		RequesterID:   requester,
		OriginScopeID: scope,
		GroupScoped:   scope != "",
		Elevated:      elevated,
		MessageID:     messageID,
	}, nil
}
