package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/dedupe"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/logging"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/resolution"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// Inbound is one parsed command event from the conversational transport.
type Inbound struct {
	Command       string
	Args          []string
	RequesterID   string
	OriginScopeID string
	GroupScoped   bool
	ReplyTargetID string
	Elevated      bool
	MessageID     string
}

// Actor projects the inbound identity into the engine's actor.
func (in Inbound) Actor() resolution.Actor {
	return resolution.Actor{
		ID:          in.RequesterID,
		OriginScope: in.OriginScopeID,
		Elevated:    in.Elevated,
	}
}

// Handler processes one admitted, authorized inbound command. When the
// spec demands a target request it arrives preloaded; otherwise it is nil.
type Handler func(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error

// Spec describes one registered command. RequiresTarget makes the router
// parse the first argument as a request id and load it; Mutating
// additionally runs the authorization guard before the handler.
type Spec struct {
	Name           string
	Usage          string
	RequiresTarget bool
	Mutating       bool
	Handler        Handler
}

// Router dispatches inbound commands. Duplicate suppression and the
// authorization guard run here, once, so handlers stay free of both.
type Router struct {
	engine  *resolution.Engine
	store   *store.Store
	guard   *dedupe.Guard
	logger  *slog.Logger
	specs   map[string]Spec
	nowFunc func() time.Time
}

// NewRouter builds a router over the engine with all stock handlers
// registered.
func NewRouter(engine *resolution.Engine, st *store.Store, guard *dedupe.Guard, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Router{
		engine:  engine,
		store:   st,
		guard:   guard,
		logger:  logger.With(logging.FieldComponent, "commands"),
		specs:   make(map[string]Spec),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	r.registerStock()
	return r
}

// Register adds or replaces a command spec.
func (r *Router) Register(spec Spec) {
	r.specs[spec.Name] = spec
}

// Dispatch runs one inbound command to completion. Every taxonomy error
// becomes a single user-visible reply; nothing propagates a panic.
func (r *Router) Dispatch(ctx context.Context, m channel.Messenger, in Inbound) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("handler panicked",
				logging.FieldCommand, in.Command,
				"panic", recovered,
			)
			err = r.reply(ctx, m, "Algo salio mal procesando el comando.")
		}
	}()

	key := dedupe.Key{
		Command:     in.Command,
		OriginScope: in.OriginScopeID,
		RequesterID: in.RequesterID,
		MessageID:   in.MessageID,
	}
	if !r.guard.Admit(key, r.nowFunc()) {
		r.logger.Debug("duplicate inbound dropped",
			logging.FieldCommand, in.Command,
			logging.FieldRequester, in.RequesterID,
			logging.FieldOriginScope, in.OriginScopeID,
		)
		return nil
	}

	ctx = services.WithCommand(ctx, in.Command)
	ctx = services.WithCorrelationID(ctx, in.MessageID)

	spec, ok := r.specs[in.Command]
	if !ok {
		return r.reply(ctx, m, fmt.Sprintf("Comando desconocido: %s", in.Command))
	}

	var req *store.Request
	if spec.RequiresTarget {
		req, err = r.loadTarget(ctx, in, spec)
		if err != nil {
			return r.replyError(ctx, m, in, err)
		}
		ctx = services.WithRequestID(ctx, req.ID)
	}

	if err := spec.Handler(ctx, m, in, req); err != nil {
		return r.replyError(ctx, m, in, err)
	}
	return nil
}

func (r *Router) loadTarget(ctx context.Context, in Inbound, spec Spec) (*store.Request, error) {
	if len(in.Args) == 0 {
		return nil, services.Wrap(services.ErrValidation, "commands", in.Command,
			"falta el numero de pedido. Uso: "+spec.Usage, nil)
	}
	id, err := strconv.ParseInt(in.Args[0], 10, 64)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "commands", in.Command,
			fmt.Sprintf("%q no es un numero de pedido", in.Args[0]), nil)
	}

	req, err := r.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if spec.Mutating {
		if err := r.engine.Authorize(in.Actor(), req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (r *Router) reply(ctx context.Context, m channel.Messenger, text string) error {
	if err := m.Reply(ctx, text); err != nil {
		r.logger.Warn("reply failed", "error", err)
		return err
	}
	return nil
}

// replyError turns a taxonomy error into the single user-visible reply.
func (r *Router) replyError(ctx context.Context, m channel.Messenger, in Inbound, err error) error {
	var text string
	switch {
	case errors.Is(err, services.ErrValidation):
		text = "No entendi el pedido: " + detailOf(err, services.ErrValidation)
	case errors.Is(err, services.ErrNotFound):
		text = "No encontre lo que buscas."
	case errors.Is(err, services.ErrPermission):
		text = "No tenes permiso para modificar ese pedido."
	case services.Terminal(err):
		text = "Ese pedido ya fue cancelado."
		if errors.Is(err, services.ErrAlreadyCompleted) {
			text = "Ese pedido ya fue completado."
		}
	case errors.Is(err, services.ErrConfirmationExpired):
		text = "La confirmacion vencio. Volve a elegir el item."
	case errors.Is(err, services.ErrDelivery):
		text = "No pude entregar el archivo: " + detailOf(err, services.ErrDelivery)
	case errors.Is(err, services.ErrConflict):
		text = "El pedido cambio mientras lo procesaba. Proba de nuevo."
	default:
		r.logger.Error("command failed",
			logging.FieldCommand, in.Command,
			"error", err,
		)
		text = "Algo salio mal procesando el comando."
	}
	return r.reply(ctx, m, text)
}

// detailOf strips the sentinel prefix so replies carry only the detail.
func detailOf(err error, marker error) string {
	return strings.TrimPrefix(err.Error(), marker.Error()+": ")
}
