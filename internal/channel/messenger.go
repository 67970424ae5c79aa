package channel

import (
	"context"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

// ErrUnsupported is returned by transports that lack a widget capability,
// letting the chooser chain fall through to the next strategy.
var ErrUnsupported = services.ErrUnsupportedTransport

// Row is one selectable entry in a chooser.
type Row struct {
	Title       string
	Description string
	ActionToken string
}

// Section groups chooser rows under a heading.
type Section struct {
	Title string
	Rows  []Row
}

// Chooser is a capability-negotiated selection prompt.
type Chooser struct {
	Title    string
	Body     string
	Sections []Section
}

// Rows flattens all sections into a single row list.
func (c Chooser) Rows() []Row {
	var out []Row
	for _, section := range c.Sections {
		out = append(out, section.Rows...)
	}
	return out
}

// Messenger is the outbound reply surface the conversational transport
// provides. Widget methods return ErrUnsupported when the transport cannot
// render them.
type Messenger interface {
	Reply(ctx context.Context, text string) error
	SendFile(ctx context.Context, path, filename, caption string) error
	SendList(ctx context.Context, chooser Chooser) error
	SendButtons(ctx context.Context, chooser Chooser) error
	SendTemplate(ctx context.Context, chooser Chooser) error
}
