package resolution

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/logging"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/matching"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/queryparse"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// CreateRequest parses the free-text ask and persists a new pending
// request for the actor. The raw text must yield a non-empty title.
func (e *Engine) CreateRequest(ctx context.Context, actor Actor, raw string) (*store.Request, error) {
	query, err := queryparse.Parse(raw)
	if err != nil {
		return nil, err
	}

	req := &store.Request{
		Title:         query.Title,
		Descriptor:    query.Extra,
		Priority:      query.Priority,
		Status:        store.StatusPending,
		RequesterID:   actor.ID,
		OriginScopeID: actor.OriginScope,
		Season:        query.Season,
		ChapterFrom:   query.ChapterFrom,
		ChapterTo:     query.ChapterTo,
		IsRange:       query.IsRange,
	}

	created, err := e.store.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := e.events.RequestCreated(ctx, created); err != nil {
		e.logger.Warn("request created event failed",
			logging.FieldRequestID, created.ID,
			"error", err,
		)
	}
	return created, nil
}

// AutoResolve attempts the automatic path for a fresh request. A query
// carrying a chapter runs exact matching across both stores; exactly one
// candidate that classifies as deliverable main content is sent without
// further interaction. Anything else drops into browsing and presents a
// chooser.
func (e *Engine) AutoResolve(ctx context.Context, m channel.Messenger, actor Actor, req *store.Request) (*Outcome, error) {
	query := queryFromRequest(req)

	candidates, err := e.collectCandidates(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	if query.HasChapter() {
		matches := matching.ExactMatches(query, candidates)
		if len(matches) == 1 {
			result := e.classifyCandidate(matches[0].Candidate)
			if result.AutoDeliverable() {
				finalized, err := e.deliver(ctx, m, req, matches[0].Candidate, matches[0].Score, result)
				if err != nil {
					return nil, err
				}
				return &Outcome{Request: finalized, Delivered: true, Classification: result}, nil
			}
			// Non-main and sensitive content never auto-completes.
			// Hold the lone candidate for explicit affirmation instead.
			updated, err := e.holdForConfirmation(ctx, req.ID, matches[0].Candidate, result)
			if err != nil {
				return nil, err
			}
			return &Outcome{Request: updated, AwaitingConfirmation: true, Classification: result}, nil
		}
		return e.browse(ctx, m, req, matches, nil)
	}

	buckets := matching.TitleBuckets(query.Title, candidates)
	return e.browse(ctx, m, req, nil, buckets)
}

// browse moves a pending request into in_progress and presents the
// available choices through the capability-negotiated chooser.
func (e *Engine) browse(ctx context.Context, m channel.Messenger, req *store.Request, matches []matching.Match, buckets []matching.Bucket) (*Outcome, error) {
	updated, err := e.beginBrowsing(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	chooser := e.buildChooser(updated, matches, buckets)
	if len(chooser.Rows()) == 0 {
		chooser.Body = "Sin coincidencias. Proba con otro titulo o usa /sugerencias."
	}

	timeout := time.Duration(e.cfg.Chooser.AttemptTimeoutSeconds) * time.Second
	if err := channel.SendChooser(ctx, e.logger, m, chooser, timeout); err != nil {
		return nil, err
	}
	return &Outcome{Request: updated, Matches: matches, Buckets: buckets}, nil
}

func (e *Engine) beginBrowsing(ctx context.Context, id int64) (*store.Request, error) {
	return e.store.MutateRequest(ctx, id, func(req *store.Request) error {
		if err := store.GuardMutable(req); err != nil {
			return err
		}
		if req.Status != store.StatusPending {
			return nil
		}
		req.Status = store.StatusInProgress
		req.Audit = append(req.Audit, store.AuditEntry{
			At:    e.now(),
			Event: "browsing",
		})
		return nil
	})
}

func (e *Engine) buildChooser(req *store.Request, matches []matching.Match, buckets []matching.Bucket) channel.Chooser {
	chooser := channel.Chooser{
		Title: fmt.Sprintf("Pedido #%d: %s", req.ID, req.Title),
		Body:  "Elegi una opcion o responde con el comando indicado.",
	}

	maxRows := e.cfg.Chooser.MaxRows
	if len(matches) > 0 {
		rows := make([]channel.Row, 0, len(matches))
		for _, match := range matches {
			if len(rows) >= maxRows {
				break
			}
			rows = append(rows, channel.Row{
				Title:       match.Candidate.Title,
				Description: describeCandidate(match.Candidate),
				ActionToken: selectToken(req.ID, match.Candidate),
			})
		}
		chooser.Sections = append(chooser.Sections, channel.Section{Title: "Coincidencias", Rows: rows})
		return chooser
	}

	rows := make([]channel.Row, 0, len(buckets))
	for _, bucket := range buckets {
		if len(rows) >= maxRows {
			break
		}
		rows = append(rows, channel.Row{
			Title:       bucket.Title,
			Description: describeBucket(bucket),
			ActionToken: bucketToken(req.ID, bucket),
		})
	}
	chooser.Sections = append(chooser.Sections, channel.Section{Title: "Titulos", Rows: rows})
	return chooser
}

func describeCandidate(candidate matching.Candidate) string {
	var parts []string
	if candidate.Season != nil {
		parts = append(parts, "temporada "+strconv.Itoa(*candidate.Season))
	}
	if candidate.Chapter != nil {
		chapter := "cap " + strconv.Itoa(*candidate.Chapter)
		if candidate.ChapterTo != nil && *candidate.ChapterTo != *candidate.Chapter {
			chapter += "-" + strconv.Itoa(*candidate.ChapterTo)
		}
		parts = append(parts, chapter)
	}
	parts = append(parts, candidate.Source)
	return strings.Join(parts, ", ")
}

func describeBucket(bucket matching.Bucket) string {
	var parts []string
	if len(bucket.Seasons) > 0 {
		parts = append(parts, "temporadas "+joinInts(bucket.Seasons))
	}
	if len(bucket.Chapters) > 0 {
		parts = append(parts, "capitulos "+joinInts(bucket.Chapters))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d items", len(bucket.Candidates))
	}
	return strings.Join(parts, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = strconv.Itoa(value)
	}
	return strings.Join(parts, " ")
}

// selectToken is the re-typeable action that picks a concrete candidate.
func selectToken(requestID int64, candidate matching.Candidate) string {
	return fmt.Sprintf("/elegir %d %s:%d", requestID, candidate.Source, candidate.ID)
}

// bucketToken drills into a title bucket. A single-item bucket selects the
// item directly; otherwise the token re-runs a ranked listing for the
// title so seasons and chapters can be told apart.
func bucketToken(requestID int64, bucket matching.Bucket) string {
	if len(bucket.Candidates) == 1 {
		return selectToken(requestID, bucket.Candidates[0])
	}
	return "/sugerencias " + bucket.Title
}
