package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	maxButtonRows   = 10
	maxTemplateRows = 3
)

// SendChooser negotiates the richest widget the transport supports: a rich
// list, then a bounded button widget, then a compact template, then plain
// text enumeration of action tokens the user can re-type. Each attempt is
// time-boxed; failure or ErrUnsupported cascades to the next fallback.
func SendChooser(ctx context.Context, logger *slog.Logger, m Messenger, chooser Chooser, attemptTimeout time.Duration) error {
	if attemptTimeout <= 0 {
		attemptTimeout = 8 * time.Second
	}

	attempts := []struct {
		name string
		send func(context.Context) error
	}{
		{"list", func(ctx context.Context) error { return m.SendList(ctx, chooser) }},
		{"buttons", func(ctx context.Context) error {
			bounded := boundRows(chooser, maxButtonRows)
			return m.SendButtons(ctx, bounded)
		}},
		{"template", func(ctx context.Context) error {
			bounded := boundRows(chooser, maxTemplateRows)
			return m.SendTemplate(ctx, bounded)
		}},
		{"text", func(ctx context.Context) error { return m.Reply(ctx, renderText(chooser)) }},
	}

	var lastErr error
	for _, attempt := range attempts {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := attempt.send(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if logger != nil && !errors.Is(err, ErrUnsupported) {
			logger.Warn("chooser attempt failed", "strategy", attempt.name, "error", err)
		}
	}
	return fmt.Errorf("all chooser strategies failed: %w", lastErr)
}

// boundRows trims the chooser to at most limit rows across sections,
// preserving section order.
func boundRows(chooser Chooser, limit int) Chooser {
	out := Chooser{Title: chooser.Title, Body: chooser.Body}
	remaining := limit
	for _, section := range chooser.Sections {
		if remaining <= 0 {
			break
		}
		rows := section.Rows
		if len(rows) > remaining {
			rows = rows[:remaining]
		}
		out.Sections = append(out.Sections, Section{Title: section.Title, Rows: rows})
		remaining -= len(rows)
	}
	return out
}

// renderText enumerates the chooser as plain text with re-typable tokens.
func renderText(chooser Chooser) string {
	var builder strings.Builder
	if chooser.Title != "" {
		builder.WriteString(chooser.Title)
		builder.WriteByte('\n')
	}
	if chooser.Body != "" {
		builder.WriteString(chooser.Body)
		builder.WriteByte('\n')
	}
	for _, section := range chooser.Sections {
		if section.Title != "" {
			builder.WriteString("\n" + section.Title + "\n")
		}
		for _, row := range section.Rows {
			builder.WriteString(fmt.Sprintf("  [%s] %s", row.ActionToken, row.Title))
			if row.Description != "" {
				builder.WriteString(" - " + row.Description)
			}
			builder.WriteByte('\n')
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}
