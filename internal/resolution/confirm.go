package resolution

import (
	"context"
	"fmt"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/classify"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/matching"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// deliver hands a concrete candidate to the delivery layer. The deliverer
// finalizes the request on success; any failure leaves it untouched.
func (e *Engine) deliver(ctx context.Context, m channel.Messenger, req *store.Request, candidate matching.Candidate, score float64, result classify.Result) (*store.Request, error) {
	resolution := store.Resolution{
		Source:      candidate.Source,
		CandidateID: candidate.ID,
		Title:       candidate.Title,
		Score:       score,
		ContentType: result.ContentType,
	}
	return e.deliverer.Deliver(ctx, m, req, resolution)
}

// SelectCandidate picks one candidate for the request. Non-sensitive main
// content is delivered immediately; anything else parks the request behind a
// pending confirmation the requester must affirm within the configured TTL.
func (e *Engine) SelectCandidate(ctx context.Context, m channel.Messenger, actor Actor, requestID int64, source string, candidateID int64) (*Outcome, error) {
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

	candidate, err := e.findCandidate(ctx, source, candidateID)
	if err != nil {
		return nil, err
	}

	result := e.classifyCandidate(candidate)
	score := matching.ScoreItem(queryFromRequest(req), req.Category, candidate)

	if result.AutoDeliverable() {
		finalized, err := e.deliver(ctx, m, req, candidate, score, result)
		if err != nil {
			return nil, err
		}
		return &Outcome{Request: finalized, Delivered: true, Classification: result}, nil
	}

	updated, err := e.holdForConfirmation(ctx, requestID, candidate, result)
	if err != nil {
		return nil, err
	}
	return &Outcome{Request: updated, AwaitingConfirmation: true, Classification: result}, nil
}

// holdForConfirmation records the candidate awaiting affirmation and moves
// a pending request into in_progress.
func (e *Engine) holdForConfirmation(ctx context.Context, requestID int64, candidate matching.Candidate, result classify.Result) (*store.Request, error) {
	updated, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		if current.Status == store.StatusPending {
			current.Status = store.StatusInProgress
		}
		current.Pending = &store.PendingConfirmation{
			Source:        candidate.Source,
			CandidateID:   candidate.ID,
			ContentType:   result.ContentType,
			ContentSource: result.ContentSource,
			CreatedAt:     e.now(),
		}
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "confirmation_requested",
			Payload: map[string]any{
				"source":       candidate.Source,
				"candidate_id": candidate.ID,
				"content_type": result.ContentType,
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

// Confirm affirms the pending candidate and delivers it. An expired
// pending record is cleared and reported; the request stays in browsing.
func (e *Engine) Confirm(ctx context.Context, m channel.Messenger, actor Actor, requestID int64) (*Outcome, error) {
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
	if req.Pending == nil {
		return nil, services.Wrap(services.ErrValidation, "resolution", "confirm",
			fmt.Sprintf("request %d has no pending confirmation", requestID), nil)
	}
	if !e.pendingActive(req, e.now()) {
		return nil, e.expirePending(ctx, requestID)
	}

	pending := *req.Pending
	candidate, err := e.findCandidate(ctx, pending.Source, pending.CandidateID)
	if err != nil {
		return nil, err
	}

	result := classify.Result{
		ContentType:   pending.ContentType,
		ContentSource: pending.ContentSource,
	}
	score := matching.ScoreItem(queryFromRequest(req), req.Category, candidate)

	finalized, err := e.deliver(ctx, m, req, candidate, score, result)
	if err != nil {
		return nil, err
	}
	return &Outcome{Request: finalized, Delivered: true, Classification: result}, nil
}

// Decline rejects the pending candidate and returns the request to
// browsing with everything else unchanged.
func (e *Engine) Decline(ctx context.Context, actor Actor, requestID int64) (*Outcome, error) {
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
	if req.Pending == nil {
		return nil, services.Wrap(services.ErrValidation, "resolution", "decline",
			fmt.Sprintf("request %d has no pending confirmation", requestID), nil)
	}
	if !e.pendingActive(req, e.now()) {
		return nil, e.expirePending(ctx, requestID)
	}

	updated, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		current.Pending = nil
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "confirmation_declined",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitUpdated(ctx, updated)
	return &Outcome{Request: updated}, nil
}

// expirePending clears a stale confirmation record and reports the expiry.
// The request's status is untouched.
func (e *Engine) expirePending(ctx context.Context, requestID int64) error {
	_, err := e.store.MutateRequest(ctx, requestID, func(current *store.Request) error {
		if err := store.GuardMutable(current); err != nil {
			return err
		}
		current.Pending = nil
		current.Audit = append(current.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "confirmation_expired",
		})
		return nil
	})
	if err != nil {
		return err
	}
	return services.Wrap(services.ErrConfirmationExpired, "resolution", "confirm",
		fmt.Sprintf("pending confirmation on request %d lapsed", requestID), nil)
}
