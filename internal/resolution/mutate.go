package resolution

import (
	"context"
	"fmt"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// Cancel terminates a non-terminal request. Terminal requests answer with
// the idempotent already-completed or already-cancelled error instead.
func (e *Engine) Cancel(ctx context.Context, actor Actor, requestID int64) (*store.Request, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.Authorize(actor, req); err != nil {
		return nil, err
	}

	updated, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		current.Status = store.StatusCancelled
		current.Pending = nil
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "cancelled",
			Payload: map[string]any{
				"by": actor.ID,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitUpdated(ctx, updated)
	return updated, nil
}

// Vote registers the actor's vote. A repeated vote from the same actor is
// a no-op that reports the unchanged request.
func (e *Engine) Vote(ctx context.Context, actor Actor, requestID int64) (*store.Request, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.Authorize(actor, req); err != nil {
		return nil, err
	}
	if err := store.GuardMutable(req); err != nil {
		return nil, err
	}
	if req.HasVoter(actor.ID) {
		return req, nil
	}

	updated, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		if current.HasVoter(actor.ID) {
			return nil
		}
		current.Voters = append(current.Voters, actor.ID)
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "voted",
			Payload: map[string]any{
				"by":    actor.ID,
				"votes": len(current.Voters),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitUpdated(ctx, updated)
	return updated, nil
}

// SetStatus advances the request's lifecycle along the permitted path.
func (e *Engine) SetStatus(ctx context.Context, actor Actor, requestID int64, next store.Status) (*store.Request, error) {
	if !next.Valid() {
		return nil, services.Wrap(services.ErrValidation, "resolution", "set status",
			fmt.Sprintf("unknown status %q", next), nil)
	}

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.Authorize(actor, req); err != nil {
		return nil, err
	}

	updated, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		if current.Status == next {
			return nil
		}
		if !current.Status.CanAdvanceTo(next) {
			return services.Wrap(services.ErrConflict, "resolution", "set status",
				fmt.Sprintf("cannot move %s to %s", current.Status, next), nil)
		}
		current.Status = next
		if next.Terminal() {
			current.Pending = nil
		}
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "status_changed",
			Payload: map[string]any{
				"status": string(next),
				"by":     actor.ID,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitUpdated(ctx, updated)
	return updated, nil
}

// BindProvider restricts the request's library matching to one provider.
// The provider must belong to the request's origin scope unless the
// request is unscoped.
func (e *Engine) BindProvider(ctx context.Context, actor Actor, requestID, providerID int64) (*store.Request, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.Authorize(actor, req); err != nil {
		return nil, err
	}

	provider, err := e.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if req.OriginScopeID != "" && provider.OriginScopeID != req.OriginScopeID {
		return nil, services.Wrap(services.ErrValidation, "resolution", "bind provider",
			fmt.Sprintf("provider %d belongs to another scope", providerID), nil)
	}

	updated, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		current.ProviderID = provider.ID
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "provider_bound",
			Payload: map[string]any{
				"provider_id": provider.ID,
				"provider":    provider.Name,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitUpdated(ctx, updated)
	return updated, nil
}
