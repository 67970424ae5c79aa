package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/classify"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/matching"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

const suggestionLimit = 10

func (r *Router) registerStock() {
	r.Register(Spec{Name: "pedido", Usage: "/pedido <titulo> [| cap N] [| prioridad]", Handler: r.handlePedido})
	r.Register(Spec{Name: "pedidos", Usage: "/pedidos", Handler: r.handlePedidos})
	r.Register(Spec{Name: "elegir", Usage: "/elegir <pedido> <fuente:item>", RequiresTarget: true, Mutating: true, Handler: r.handleElegir})
	r.Register(Spec{Name: "confirmar", Usage: "/confirmar <pedido>", RequiresTarget: true, Mutating: true, Handler: r.handleConfirmar})
	r.Register(Spec{Name: "rechazar", Usage: "/rechazar <pedido>", RequiresTarget: true, Mutating: true, Handler: r.handleRechazar})
	r.Register(Spec{Name: "cancelar", Usage: "/cancelar <pedido>", RequiresTarget: true, Mutating: true, Handler: r.handleCancelar})
	r.Register(Spec{Name: "votar", Usage: "/votar <pedido>", RequiresTarget: true, Mutating: true, Handler: r.handleVotar})
	r.Register(Spec{Name: "estado", Usage: "/estado <pedido>", RequiresTarget: true, Handler: r.handleEstado})
	r.Register(Spec{Name: "sugerencias", Usage: "/sugerencias <texto>", Handler: r.handleSugerencias})
	r.Register(Spec{Name: "aportes", Usage: "/aportes <texto>", Handler: r.handleAportes})
	r.Register(Spec{Name: "proveedor", Usage: "/proveedor <pedido> <proveedor>", RequiresTarget: true, Mutating: true, Handler: r.handleProveedor})
}

func (r *Router) handlePedido(ctx context.Context, m channel.Messenger, in Inbound, _ *store.Request) error {
	raw := strings.Join(in.Args, " ")
	req, err := r.engine.CreateRequest(ctx, in.Actor(), raw)
	if err != nil {
		return err
	}

	outcome, err := r.engine.AutoResolve(ctx, m, in.Actor(), req)
	if err != nil {
		return err
	}

	switch {
	case outcome.Delivered:
		return r.reply(ctx, m, fmt.Sprintf("Pedido #%d entregado.", req.ID))
	case outcome.AwaitingConfirmation:
		return r.reply(ctx, m, confirmationPrompt(req.ID, outcome.Classification))
	default:
		// The chooser already went out; just anchor the request number.
		return r.reply(ctx, m, fmt.Sprintf("Pedido #%d registrado.", req.ID))
	}
}

// handlePedidos lists the open requests of the inbound conversation scope.
func (r *Router) handlePedidos(ctx context.Context, m channel.Messenger, in Inbound, _ *store.Request) error {
	requests, err := r.store.ListScopeRequests(ctx, in.OriginScopeID)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return r.reply(ctx, m, "No hay pedidos activos en este chat.")
	}

	var b strings.Builder
	b.WriteString("Pedidos activos:\n")
	for _, req := range requests {
		fmt.Fprintf(&b, "#%d %s (%s, %d votos)\n", req.ID, req.Title, req.Status, req.VoteCount())
	}
	return r.reply(ctx, m, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleElegir(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error {
	if len(in.Args) < 2 {
		return services.Wrap(services.ErrValidation, "commands", "elegir",
			"falta el item. Uso: /elegir <pedido> <fuente:item>", nil)
	}
	source, candidateID, err := parseCandidateRef(in.Args[1])
	if err != nil {
		return err
	}

	outcome, err := r.engine.SelectCandidate(ctx, m, in.Actor(), req.ID, source, candidateID)
	if err != nil {
		return err
	}
	if outcome.Delivered {
		return r.reply(ctx, m, fmt.Sprintf("Pedido #%d entregado.", req.ID))
	}
	return r.reply(ctx, m, confirmationPrompt(req.ID, outcome.Classification))
}

func (r *Router) handleConfirmar(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error {
	outcome, err := r.engine.Confirm(ctx, m, in.Actor(), req.ID)
	if err != nil {
		return err
	}
	return r.reply(ctx, m, fmt.Sprintf("Pedido #%d entregado: %s", req.ID, outcome.Request.Resolution.Title))
}

func (r *Router) handleRechazar(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error {
	if _, err := r.engine.Decline(ctx, in.Actor(), req.ID); err != nil {
		return err
	}
	return r.reply(ctx, m, fmt.Sprintf("Listo, segui buscando para el pedido #%d.", req.ID))
}

func (r *Router) handleCancelar(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error {
	if _, err := r.engine.Cancel(ctx, in.Actor(), req.ID); err != nil {
		return err
	}
	return r.reply(ctx, m, fmt.Sprintf("Pedido #%d cancelado.", req.ID))
}

func (r *Router) handleVotar(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error {
	updated, err := r.engine.Vote(ctx, in.Actor(), req.ID)
	if err != nil {
		return err
	}
	return r.reply(ctx, m, fmt.Sprintf("Pedido #%d tiene %d votos.", req.ID, updated.VoteCount()))
}

func (r *Router) handleEstado(ctx context.Context, m channel.Messenger, _ Inbound, req *store.Request) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido #%d: %s\n", req.ID, req.Title)
	fmt.Fprintf(&b, "Estado: %s, prioridad %s, %d votos\n", req.Status, req.Priority, req.VoteCount())
	if req.Pending != nil {
		fmt.Fprintf(&b, "Esperando confirmacion de %s:%d (%s)\n", req.Pending.Source, req.Pending.CandidateID, req.Pending.ContentType)
	}
	if req.Resolution != nil {
		fmt.Fprintf(&b, "Resuelto con %s:%d (%s)\n", req.Resolution.Source, req.Resolution.CandidateID, req.Resolution.Title)
	}
	return r.reply(ctx, m, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleSugerencias(ctx context.Context, m channel.Messenger, in Inbound, _ *store.Request) error {
	matches, err := r.engine.Suggestions(ctx, in.Actor(), strings.Join(in.Args, " "), suggestionLimit)
	if err != nil {
		return err
	}
	return r.reply(ctx, m, renderMatches("Sugerencias", matches))
}

func (r *Router) handleAportes(ctx context.Context, m channel.Messenger, in Inbound, _ *store.Request) error {
	matches, err := r.engine.SearchContributions(ctx, in.Actor(), strings.Join(in.Args, " "), suggestionLimit)
	if err != nil {
		return err
	}
	return r.reply(ctx, m, renderMatches("Aportes", matches))
}

func (r *Router) handleProveedor(ctx context.Context, m channel.Messenger, in Inbound, req *store.Request) error {
	if len(in.Args) < 2 {
		return services.Wrap(services.ErrValidation, "commands", "proveedor",
			"falta el proveedor. Uso: /proveedor <pedido> <proveedor>", nil)
	}
	providerID, err := strconv.ParseInt(in.Args[1], 10, 64)
	if err != nil {
		return services.Wrap(services.ErrValidation, "commands", "proveedor",
			fmt.Sprintf("%q no es un proveedor", in.Args[1]), nil)
	}

	updated, err := r.engine.BindProvider(ctx, in.Actor(), req.ID, providerID)
	if err != nil {
		return err
	}
	return r.reply(ctx, m, fmt.Sprintf("Pedido #%d limitado al proveedor %d.", req.ID, updated.ProviderID))
}

// parseCandidateRef splits a "source:id" token from a chooser action.
func parseCandidateRef(ref string) (string, int64, error) {
	source, rawID, ok := strings.Cut(ref, ":")
	if !ok {
		return "", 0, services.Wrap(services.ErrValidation, "commands", "elegir",
			fmt.Sprintf("%q no tiene el formato fuente:item", ref), nil)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, services.Wrap(services.ErrValidation, "commands", "elegir",
			fmt.Sprintf("%q no es un numero de item", rawID), nil)
	}
	return source, id, nil
}

func confirmationPrompt(requestID int64, result classify.Result) string {
	reason := fmt.Sprintf("contenido %q, no historia principal", result.ContentType)
	if result.Sensitive {
		reason = "contenido marcado como sensible"
	}
	return fmt.Sprintf(
		"El item parece ser %s. Confirmalo con /confirmar %d o rechazalo con /rechazar %d.",
		reason, requestID, requestID,
	)
}

func renderMatches(heading string, matches []matching.Match) string {
	if len(matches) == 0 {
		return heading + ": sin resultados."
	}
	var b strings.Builder
	b.WriteString(heading + ":\n")
	for i, match := range matches {
		fmt.Fprintf(&b, "%d. %s [%s:%d]", i+1, match.Candidate.Title, match.Candidate.Source, match.Candidate.ID)
		if match.Candidate.Season != nil {
			fmt.Fprintf(&b, " temporada %d", *match.Candidate.Season)
		}
		if match.Candidate.Chapter != nil {
			fmt.Fprintf(&b, " cap %d", *match.Candidate.Chapter)
		}
		b.WriteString("\n")
	}
	b.WriteString("Elegi con /elegir <pedido> <fuente:item>.")
	return b.String()
}
