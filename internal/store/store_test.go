package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/testsupport"
)

func intp(v int) *int { return &v }

func TestCreateAndGetRequest(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	created := testsupport.NewRequest(t, st, &store.Request{
		Title:         "One Piece",
		RequesterID:   "user-1",
		OriginScopeID: "group-a",
		Season:        intp(2),
		ChapterFrom:   intp(10),
		Tags:          []string{"manga"},
	})
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.Status != store.StatusPending {
		t.Fatalf("status = %q, want pending", created.Status)
	}
	if len(created.Audit) != 1 || created.Audit[0].Event != "created" {
		t.Fatalf("audit = %+v, want single created entry", created.Audit)
	}

	got, err := st.GetRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Title != "One Piece" || got.OriginScopeID != "group-a" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Season == nil || *got.Season != 2 {
		t.Fatalf("season = %v, want 2", got.Season)
	}
	if got.ChapterFrom == nil || *got.ChapterFrom != 10 {
		t.Fatalf("chapterFrom = %v, want 10", got.ChapterFrom)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "manga" {
		t.Fatalf("tags = %v", got.Tags)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := st.GetRequest(context.Background(), 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateRequestAppendsAuditAndStatus(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	created := testsupport.NewRequest(t, st, &store.Request{Title: "Bleach"})

	updated, err := st.MutateRequest(ctx, created.ID, func(req *store.Request) error {
		if err := store.GuardMutable(req); err != nil {
			return err
		}
		req.Status = store.StatusInProgress
		req.Audit = append(req.Audit, store.AuditEntry{At: time.Now().UTC(), Event: "browsing"})
		return nil
	})
	if err != nil {
		t.Fatalf("MutateRequest: %v", err)
	}
	if updated.Status != store.StatusInProgress {
		t.Fatalf("status = %q", updated.Status)
	}

	got, err := st.GetRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != store.StatusInProgress {
		t.Fatalf("persisted status = %q", got.Status)
	}
	if len(got.Audit) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(got.Audit))
	}
}

func TestGuardMutableTerminalStates(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	created := testsupport.NewRequest(t, st, &store.Request{Title: "Naruto"})

	if _, err := st.MutateRequest(ctx, created.ID, func(req *store.Request) error {
		req.Status = store.StatusCancelled
		return nil
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := st.MutateRequest(ctx, created.ID, func(req *store.Request) error {
		if err := store.GuardMutable(req); err != nil {
			return err
		}
		req.Voters = append(req.Voters, "late-voter")
		return nil
	})
	if !errors.Is(err, services.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}

	got, err := st.GetRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.VoteCount() != 0 {
		t.Fatal("terminal request must not mutate")
	}
}

func TestPendingConfirmationRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	created := testsupport.NewRequest(t, st, &store.Request{Title: "Gintama"})

	stamp := time.Now().UTC().Truncate(time.Millisecond)
	if _, err := st.MutateRequest(ctx, created.ID, func(req *store.Request) error {
		req.Status = store.StatusInProgress
		req.Pending = &store.PendingConfirmation{
			Source:      store.SourceContribution,
			CandidateID: 9,
			ContentType: "extra",
			CreatedAt:   stamp,
		}
		return nil
	}); err != nil {
		t.Fatalf("set pending: %v", err)
	}

	got, err := st.GetRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Pending == nil || got.Pending.CandidateID != 9 || got.Pending.Source != store.SourceContribution {
		t.Fatalf("pending = %+v", got.Pending)
	}
	if !got.Pending.CreatedAt.Equal(stamp) {
		t.Fatalf("pending createdAt = %v, want %v", got.Pending.CreatedAt, stamp)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from store.Status
		to   store.Status
		want bool
	}{
		{store.StatusPending, store.StatusInProgress, true},
		{store.StatusPending, store.StatusCompleted, true},
		{store.StatusPending, store.StatusCancelled, true},
		{store.StatusInProgress, store.StatusCompleted, true},
		{store.StatusInProgress, store.StatusCancelled, true},
		{store.StatusInProgress, store.StatusPending, false},
		{store.StatusCompleted, store.StatusCancelled, false},
		{store.StatusCancelled, store.StatusInProgress, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestListVisibleContributions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	approved := testsupport.NewContribution(t, st, &store.Contribution{
		Title: "Naruto", SubmitterID: "alice", OriginScopeID: "g1", Approval: store.ApprovalApproved,
	})
	pendingOwn := testsupport.NewContribution(t, st, &store.Contribution{
		Title: "Bleach", SubmitterID: "bob", OriginScopeID: "g1",
	})
	pendingOther := testsupport.NewContribution(t, st, &store.Contribution{
		Title: "Gintama", SubmitterID: "carol", OriginScopeID: "g2",
	})

	ids := func(list []*store.Contribution) map[int64]bool {
		out := make(map[int64]bool, len(list))
		for _, c := range list {
			out[c.ID] = true
		}
		return out
	}

	plain, err := st.ListVisibleContributions(ctx, store.Visibility{RequesterID: "bob", OriginScope: "g1"})
	if err != nil {
		t.Fatalf("list plain: %v", err)
	}
	got := ids(plain)
	if !got[approved.ID] || !got[pendingOwn.ID] || got[pendingOther.ID] {
		t.Fatalf("plain visibility = %v", got)
	}

	mod, err := st.ListVisibleContributions(ctx, store.Visibility{RequesterID: "mod", OriginScope: "g2", Elevated: true})
	if err != nil {
		t.Fatalf("list moderator: %v", err)
	}
	got = ids(mod)
	if !got[approved.ID] || got[pendingOwn.ID] || !got[pendingOther.ID] {
		t.Fatalf("moderator visibility = %v", got)
	}

	owner, err := st.ListVisibleContributions(ctx, store.Visibility{RequesterID: "boss", Owner: true})
	if err != nil {
		t.Fatalf("list owner: %v", err)
	}
	if len(owner) != 3 {
		t.Fatalf("owner sees %d contributions, want 3", len(owner))
	}
}

func TestListLibraryItemsByProvider(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewLibraryItem(t, st, &store.LibraryItem{ProviderID: 1, Title: "One Piece", Chapter: intp(5)})
	testsupport.NewLibraryItem(t, st, &store.LibraryItem{ProviderID: 2, Title: "Bleach"})

	all, err := st.ListLibraryItems(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	scoped, err := st.ListLibraryItems(ctx, 2)
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Title != "Bleach" {
		t.Fatalf("scoped = %+v", scoped)
	}
}

func TestProvidersByScope(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := st.PutProvider(ctx, &store.Provider{Name: "scans-a", OriginScopeID: "g1"}); err != nil {
		t.Fatalf("put provider: %v", err)
	}
	if _, err := st.PutProvider(ctx, &store.Provider{Name: "scans-b", OriginScopeID: "g2"}); err != nil {
		t.Fatalf("put provider: %v", err)
	}

	providers, err := st.ListScopeProviders(ctx, "g1")
	if err != nil {
		t.Fatalf("ListScopeProviders: %v", err)
	}
	if len(providers) != 1 || providers[0].Name != "scans-a" {
		t.Fatalf("providers = %+v", providers)
	}
}
