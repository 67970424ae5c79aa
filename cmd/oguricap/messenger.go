package main

import (
	"context"
	"fmt"
	"io"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
)

// consoleMessenger renders engine replies on the run loop's output. It
// supports no chooser widgets, so every chooser falls through to the
// plain-text enumeration.
type consoleMessenger struct {
	out io.Writer
}

func (m *consoleMessenger) Reply(_ context.Context, text string) error {
	_, err := fmt.Fprintln(m.out, text)
	return err
}

func (m *consoleMessenger) SendFile(_ context.Context, path, filename, caption string) error {
	_, err := fmt.Fprintf(m.out, "[archivo] %s (%s): %s\n", filename, path, caption)
	return err
}

func (m *consoleMessenger) SendList(context.Context, channel.Chooser) error {
	return channel.ErrUnsupported
}

func (m *consoleMessenger) SendButtons(context.Context, channel.Chooser) error {
	return channel.ErrUnsupported
}

func (m *consoleMessenger) SendTemplate(context.Context, channel.Chooser) error {
	return channel.ErrUnsupported
}
