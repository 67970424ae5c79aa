package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/classify"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/delivery"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/events"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/logging"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/matching"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/queryparse"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// Actor identifies who is issuing an operation. Elevated marks a moderator
// for the actor's origin scope; the global owner comes from configuration.
type Actor struct {
	ID          string
	OriginScope string
	Elevated    bool
}

// Outcome reports where an operation left the request and what the caller
// should surface next.
type Outcome struct {
	Request              *store.Request
	Delivered            bool
	AwaitingConfirmation bool
	Classification       classify.Result
	Matches              []matching.Match
	Buckets              []matching.Bucket
}

// Engine owns every Request mutation. All status transitions re-validate
// the observed status inside the store's conditional update, so concurrent
// invocations sharing the database cannot double-apply a transition.
type Engine struct {
	store      *store.Store
	classifier *classify.Classifier
	deliverer  *delivery.Deliverer
	events     events.Service
	cfg        *config.Config
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// New builds an engine over the shared store.
func New(st *store.Store, classifier *classify.Classifier, deliverer *delivery.Deliverer, ev events.Service, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:      st,
		classifier: classifier,
		deliverer:  deliverer,
		events:     ev,
		cfg:        cfg,
		logger:     logger.With(logging.FieldComponent, "resolution"),
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) now() time.Time {
	return e.nowFunc()
}

// IsOwner reports whether the actor is the configured global owner.
func (e *Engine) IsOwner(actor Actor) bool {
	return e.cfg.Auth.OwnerID != "" && actor.ID == e.cfg.Auth.OwnerID
}

// visibility projects the actor into the store's contribution filter.
func (e *Engine) visibility(actor Actor) store.Visibility {
	return store.Visibility{
		RequesterID: actor.ID,
		OriginScope: actor.OriginScope,
		Elevated:    actor.Elevated,
		Owner:       e.IsOwner(actor),
	}
}

// Authorize enforces the mutation guard: the request's own requester within
// its origin scope, an elevated moderator scoped to that origin, or the
// global owner. Everyone else gets a permission error and no mutation.
func (e *Engine) Authorize(actor Actor, req *store.Request) error {
	if e.IsOwner(actor) {
		return nil
	}
	if actor.ID == req.RequesterID {
		return nil
	}
	if actor.Elevated && (req.OriginScopeID == "" || actor.OriginScope == req.OriginScopeID) {
		return nil
	}
	return services.Wrap(services.ErrPermission, "resolution", "authorize",
		fmt.Sprintf("requester %s cannot mutate request %d", actor.ID, req.ID), nil)
}

// pendingActive reports whether the request carries a live confirmation
// record. Records older than the configured TTL are treated as absent.
func (e *Engine) pendingActive(req *store.Request, now time.Time) bool {
	if req.Pending == nil {
		return false
	}
	ttl := time.Duration(e.cfg.Resolution.ConfirmationTTLMinutes) * time.Minute
	return now.Sub(req.Pending.CreatedAt) <= ttl
}

// queryFromRequest rebuilds the parsed query from the request's structured
// fields so matching stays consistent across the request's lifetime.
func queryFromRequest(req *store.Request) *queryparse.Query {
	return &queryparse.Query{
		Title:       req.Title,
		Season:      req.Season,
		ChapterFrom: req.ChapterFrom,
		ChapterTo:   req.ChapterTo,
		IsRange:     req.IsRange,
		Priority:    req.Priority,
		Extra:       req.Descriptor,
	}
}

// collectCandidates gathers matchable items from both stores. Library
// items honor the request's bound provider, or the origin scope's
// providers when the actor is neither elevated nor the owner. Contribution
// visibility follows approval and scope rules.
func (e *Engine) collectCandidates(ctx context.Context, actor Actor, req *store.Request) ([]matching.Candidate, error) {
	var candidates []matching.Candidate

	items, err := e.scopedLibraryItems(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		candidates = append(candidates, matching.FromLibraryItem(item))
	}

	contribs, err := e.store.ListVisibleContributions(ctx, e.visibility(actor))
	if err != nil {
		return nil, err
	}
	for _, contrib := range contribs {
		candidates = append(candidates, matching.FromContribution(contrib))
	}
	return candidates, nil
}

func (e *Engine) scopedLibraryItems(ctx context.Context, actor Actor, req *store.Request) ([]*store.LibraryItem, error) {
	if req.ProviderID != 0 {
		return e.store.ListLibraryItems(ctx, req.ProviderID)
	}
	if actor.Elevated || e.IsOwner(actor) || req.OriginScopeID == "" {
		return e.store.ListLibraryItems(ctx)
	}

	providers, err := e.store.ListScopeProviders(ctx, req.OriginScopeID)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		// A scoped origin with no bound providers cannot see the library.
		return nil, nil
	}
	ids := make([]int64, 0, len(providers))
	for _, provider := range providers {
		ids = append(ids, provider.ID)
	}
	return e.store.ListLibraryItems(ctx, ids...)
}

// classifyCandidate runs the content classifier over the candidate's
// descriptive fields.
func (e *Engine) classifyCandidate(candidate matching.Candidate) classify.Result {
	return e.classifier.Classify(classify.Subject{
		Title:    candidate.Title,
		Filename: candidate.Filename,
		Body:     candidate.Body,
		Category: candidate.Category,
		Tags:     candidate.Tags,
	})
}

// findCandidate loads one candidate from the named store.
func (e *Engine) findCandidate(ctx context.Context, source string, candidateID int64) (matching.Candidate, error) {
	switch source {
	case store.SourceLibrary:
		item, err := e.store.GetLibraryItem(ctx, candidateID)
		if err != nil {
			return matching.Candidate{}, err
		}
		return matching.FromLibraryItem(item), nil
	case store.SourceContribution:
		contrib, err := e.store.GetContribution(ctx, candidateID)
		if err != nil {
			return matching.Candidate{}, err
		}
		return matching.FromContribution(contrib), nil
	default:
		return matching.Candidate{}, services.Wrap(services.ErrValidation, "resolution", "find candidate",
			fmt.Sprintf("unknown source %q", source), nil)
	}
}

// emitUpdated fires the update event; failures are logged, never surfaced.
func (e *Engine) emitUpdated(ctx context.Context, req *store.Request) {
	if err := e.events.RequestUpdated(ctx, req); err != nil {
		e.logger.Warn("request update event failed",
			logging.FieldRequestID, req.ID,
			"error", err,
		)
	}
}
