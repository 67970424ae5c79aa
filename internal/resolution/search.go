package resolution

import (
	"context"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/matching"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/queryparse"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// Suggestions runs the ranked scorer over both stores for an interactive
// listing. Read-only; no authorization guard applies.
func (e *Engine) Suggestions(ctx context.Context, actor Actor, raw string, limit int) ([]matching.Match, error) {
	query, err := queryparse.Parse(raw)
	if err != nil {
		return nil, err
	}

	candidates, err := e.collectCandidates(ctx, actor, &store.Request{
		OriginScopeID: actor.OriginScope,
	})
	if err != nil {
		return nil, err
	}

	matches := matching.RankCandidates(query, "", candidates)
	return capMatches(matches, limit), nil
}

// SearchContributions ranks visible contributions only, for the parallel
// browsing path that sidesteps the library.
func (e *Engine) SearchContributions(ctx context.Context, actor Actor, raw string, limit int) ([]matching.Match, error) {
	query, err := queryparse.Parse(raw)
	if err != nil {
		return nil, err
	}

	contribs, err := e.store.ListVisibleContributions(ctx, e.visibility(actor))
	if err != nil {
		return nil, err
	}
	candidates := make([]matching.Candidate, 0, len(contribs))
	for _, contrib := range contribs {
		candidates = append(candidates, matching.FromContribution(contrib))
	}

	matches := matching.RankCandidates(query, "", candidates)
	return capMatches(matches, limit), nil
}

func capMatches(matches []matching.Match, limit int) []matching.Match {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}
