package resolution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/classify"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/delivery"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/events"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/testsupport"
)

type sentFile struct {
	filename string
	caption  string
}

type fakeMessenger struct {
	replies []string
	files   []sentFile
}

func (m *fakeMessenger) Reply(_ context.Context, text string) error {
	m.replies = append(m.replies, text)
	return nil
}

func (m *fakeMessenger) SendFile(_ context.Context, _, filename, caption string) error {
	m.files = append(m.files, sentFile{filename: filename, caption: caption})
	return nil
}

func (m *fakeMessenger) SendList(context.Context, channel.Chooser) error {
	return channel.ErrUnsupported
}

func (m *fakeMessenger) SendButtons(context.Context, channel.Chooser) error {
	return channel.ErrUnsupported
}

func (m *fakeMessenger) SendTemplate(context.Context, channel.Chooser) error {
	return channel.ErrUnsupported
}

type fixture struct {
	cfg    *config.Config
	store  *store.Store
	engine *Engine
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	ev := events.NewService(cfg)
	deliverer := delivery.New(st, ev, cfg, nil)
	engine := New(st, classify.NewDefault(), deliverer, ev, cfg, nil)
	return &fixture{cfg: cfg, store: st, engine: engine}
}

func (f *fixture) seedAsset(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.cfg.Paths.LibraryDir, name)
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return path
}

func intp(v int) *int { return &v }

func TestAutoResolveDeliversSingleMainContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	path := f.seedAsset(t, "naruto-5.cbz")
	testsupport.NewContribution(t, f.store, &store.Contribution{
		SubmitterID: "uploader",
		Title:       "Naruto",
		Chapter:     intp(5),
		Approval:    store.ApprovalApproved,
		Filename:    "naruto-5.cbz",
		Location:    path,
	})

	req, err := f.engine.CreateRequest(ctx, actor, "Naruto | cap 5")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	messenger := &fakeMessenger{}
	outcome, err := f.engine.AutoResolve(ctx, messenger, actor, req)
	if err != nil {
		t.Fatalf("AutoResolve: %v", err)
	}
	if !outcome.Delivered {
		t.Fatalf("outcome = %+v, want delivered", outcome)
	}
	if outcome.Request.Status != store.StatusCompleted {
		t.Fatalf("status = %s, want completed", outcome.Request.Status)
	}
	if outcome.Request.Resolution.Source != store.SourceContribution {
		t.Fatalf("resolution source = %s, want contribution", outcome.Request.Resolution.Source)
	}
	if len(messenger.files) == 0 {
		t.Fatal("no file transported")
	}
}

func TestAutoResolveHoldsSingleNonMainMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
		ProviderID: 1,
		Title:      "Naruto",
		Chapter:    intp(5),
		Filename:   "naruto-extra-5.cbz",
	})

	req, err := f.engine.CreateRequest(ctx, actor, "Naruto | cap 5")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	outcome, err := f.engine.AutoResolve(ctx, &fakeMessenger{}, actor, req)
	if err != nil {
		t.Fatalf("AutoResolve: %v", err)
	}
	if outcome.Delivered {
		t.Fatal("non-main content auto-completed")
	}
	if !outcome.AwaitingConfirmation {
		t.Fatalf("outcome = %+v, want awaiting confirmation", outcome)
	}
	if outcome.Classification.ContentType != classify.TypeExtra {
		t.Fatalf("content type = %s, want extra", outcome.Classification.ContentType)
	}
	if outcome.Request.Pending == nil {
		t.Fatal("no pending confirmation recorded")
	}
	if outcome.Request.Status != store.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", outcome.Request.Status)
	}
}

func TestAutoResolveHoldsSensitiveMainMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	path := f.seedAsset(t, "given-5.cbz")
	testsupport.NewContribution(t, f.store, &store.Contribution{
		SubmitterID: "uploader",
		Title:       "Given",
		Chapter:     intp(5),
		Approval:    store.ApprovalApproved,
		Tags:        []string{"yaoi"},
		Filename:    "given-5.cbz",
		Location:    path,
	})

	req, err := f.engine.CreateRequest(ctx, actor, "Given | cap 5")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	messenger := &fakeMessenger{}
	outcome, err := f.engine.AutoResolve(ctx, messenger, actor, req)
	if err != nil {
		t.Fatalf("AutoResolve: %v", err)
	}
	if outcome.Delivered || len(messenger.files) != 0 {
		t.Fatal("sensitive content auto-completed")
	}
	if !outcome.AwaitingConfirmation {
		t.Fatalf("outcome = %+v, want awaiting confirmation", outcome)
	}
	if outcome.Classification.ContentType != classify.TypeMain || !outcome.Classification.Sensitive {
		t.Fatalf("classification = %+v, want sensitive main", outcome.Classification)
	}
	if outcome.Request.Pending == nil {
		t.Fatal("no pending confirmation recorded")
	}

	// An explicit affirmation still completes the request.
	confirmed, err := f.engine.Confirm(ctx, messenger, actor, req.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !confirmed.Delivered || confirmed.Request.Status != store.StatusCompleted {
		t.Fatalf("confirmed outcome = %+v, want completed delivery", confirmed)
	}
}

func TestAutoResolveBrowsesTitleBuckets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	for _, title := range []string{"One Piece", "One Piece Film Red", "One Piece Stampede"} {
		testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
			ProviderID: 1,
			Title:      title,
			Chapter:    intp(1),
		})
	}

	req, err := f.engine.CreateRequest(ctx, actor, "One Piece")
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	messenger := &fakeMessenger{}
	outcome, err := f.engine.AutoResolve(ctx, messenger, actor, req)
	if err != nil {
		t.Fatalf("AutoResolve: %v", err)
	}
	if outcome.Delivered || outcome.AwaitingConfirmation {
		t.Fatalf("outcome = %+v, want browsing", outcome)
	}
	if len(outcome.Buckets) != 3 {
		t.Fatalf("buckets = %d, want 3", len(outcome.Buckets))
	}
	if outcome.Request.Status != store.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", outcome.Request.Status)
	}
	// The fake transport supports no widgets, so the chooser must have
	// fallen through to the plain-text enumeration.
	if len(messenger.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(messenger.replies))
	}
}

func TestSelectIllustrationDeclineThenConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	path := f.seedAsset(t, "portada.png")
	item := testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
		ProviderID: 1,
		Title:      "Berserk",
		Filename:   "berserk-portada.png",
		Location:   path,
	})
	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Berserk",
		RequesterID: actor.ID,
	})

	messenger := &fakeMessenger{}
	outcome, err := f.engine.SelectCandidate(ctx, messenger, actor, req.ID, store.SourceLibrary, item.ID)
	if err != nil {
		t.Fatalf("SelectCandidate: %v", err)
	}
	if !outcome.AwaitingConfirmation {
		t.Fatalf("outcome = %+v, want awaiting confirmation", outcome)
	}
	if outcome.Classification.ContentType != classify.TypeIllustration {
		t.Fatalf("content type = %s, want illustration", outcome.Classification.ContentType)
	}

	declined, err := f.engine.Decline(ctx, actor, req.ID)
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if declined.Request.Pending != nil {
		t.Fatal("pending survived decline")
	}
	if declined.Request.Status != store.StatusInProgress {
		t.Fatalf("status = %s, want in_progress after decline", declined.Request.Status)
	}

	if _, err := f.engine.SelectCandidate(ctx, messenger, actor, req.ID, store.SourceLibrary, item.ID); err != nil {
		t.Fatalf("SelectCandidate again: %v", err)
	}
	confirmed, err := f.engine.Confirm(ctx, messenger, actor, req.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Request.Status != store.StatusCompleted {
		t.Fatalf("status = %s, want completed", confirmed.Request.Status)
	}
	if confirmed.Request.Resolution.CandidateID != item.ID {
		t.Fatalf("resolved candidate = %d, want %d", confirmed.Request.Resolution.CandidateID, item.ID)
	}
}

func TestConfirmExpiredPendingReportsAndClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	item := testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
		ProviderID: 1,
		Title:      "Dororo",
		Filename:   "dororo-especial.cbz",
	})
	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Dororo",
		RequesterID: actor.ID,
	})

	if _, err := f.engine.SelectCandidate(ctx, &fakeMessenger{}, actor, req.ID, store.SourceLibrary, item.ID); err != nil {
		t.Fatalf("SelectCandidate: %v", err)
	}

	f.engine.nowFunc = func() time.Time {
		return time.Now().UTC().Add(11 * time.Minute)
	}

	_, err := f.engine.Confirm(ctx, &fakeMessenger{}, actor, req.ID)
	if !errors.Is(err, services.ErrConfirmationExpired) {
		t.Fatalf("err = %v, want confirmation expired", err)
	}

	reloaded, err := f.store.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if reloaded.Status != store.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", reloaded.Status)
	}
	if reloaded.Pending != nil {
		t.Fatal("expired pending not cleared")
	}
}

func TestVoteIdempotentPerRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Vagabond",
		RequesterID: actor.ID,
	})

	for i := 0; i < 2; i++ {
		if _, err := f.engine.Vote(ctx, actor, req.ID); err != nil {
			t.Fatalf("Vote %d: %v", i, err)
		}
	}

	reloaded, err := f.store.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if reloaded.VoteCount() != 1 {
		t.Fatalf("votes = %d, want 1", reloaded.VoteCount())
	}

	voted := 0
	for _, entry := range reloaded.Audit {
		if entry.Event == "voted" {
			voted++
		}
	}
	if voted != 1 {
		t.Fatalf("voted audit entries = %d, want 1", voted)
	}
}

func TestTerminalRequestsRejectMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Monster",
		RequesterID: actor.ID,
	})
	cancelled, err := f.engine.Cancel(ctx, actor, req.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	auditLen := len(cancelled.Audit)

	if _, err := f.engine.Cancel(ctx, actor, req.ID); !errors.Is(err, services.ErrAlreadyCancelled) {
		t.Fatalf("second cancel err = %v, want already cancelled", err)
	}
	if _, err := f.engine.Vote(ctx, actor, req.ID); !errors.Is(err, services.ErrAlreadyCancelled) {
		t.Fatalf("vote err = %v, want already cancelled", err)
	}

	reloaded, err := f.store.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if len(reloaded.Audit) != auditLen {
		t.Fatalf("audit grew from %d to %d on terminal request", auditLen, len(reloaded.Audit))
	}
}

func TestAuthorizationGuard(t *testing.T) {
	f := newFixture(t, testsupport.WithOwner("the-owner"))
	ctx := context.Background()

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:         "Akira",
		RequesterID:   "user-1",
		OriginScopeID: "scope-a",
	})

	stranger := Actor{ID: "user-2", OriginScope: "scope-a"}
	if _, err := f.engine.Vote(ctx, stranger, req.ID); !errors.Is(err, services.ErrPermission) {
		t.Fatalf("stranger vote err = %v, want permission error", err)
	}

	otherScopeMod := Actor{ID: "mod-1", OriginScope: "scope-b", Elevated: true}
	if _, err := f.engine.Cancel(ctx, otherScopeMod, req.ID); !errors.Is(err, services.ErrPermission) {
		t.Fatalf("cross-scope moderator err = %v, want permission error", err)
	}

	sameScopeMod := Actor{ID: "mod-2", OriginScope: "scope-a", Elevated: true}
	if _, err := f.engine.Vote(ctx, sameScopeMod, req.ID); err != nil {
		t.Fatalf("same-scope moderator vote: %v", err)
	}

	owner := Actor{ID: "the-owner"}
	if _, err := f.engine.Cancel(ctx, owner, req.ID); err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
}

func TestCreateRequestRejectsEmptyTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateRequest(ctx, Actor{ID: "user-1"}, "cap 10")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	all, err := f.store.ListRequests(ctx)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("requests = %d, want none", len(all))
	}
}

func TestBindProviderScopesMatching(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1", OriginScope: "scope-a"}

	provider, err := f.store.PutProvider(ctx, &store.Provider{Name: "scans-a", OriginScopeID: "scope-a"})
	if err != nil {
		t.Fatalf("PutProvider: %v", err)
	}
	other, err := f.store.PutProvider(ctx, &store.Provider{Name: "scans-b", OriginScopeID: "scope-b"})
	if err != nil {
		t.Fatalf("PutProvider: %v", err)
	}

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:         "Claymore",
		RequesterID:   actor.ID,
		OriginScopeID: "scope-a",
	})

	if _, err := f.engine.BindProvider(ctx, actor, req.ID, other.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("cross-scope bind err = %v, want validation error", err)
	}

	updated, err := f.engine.BindProvider(ctx, actor, req.ID, provider.ID)
	if err != nil {
		t.Fatalf("BindProvider: %v", err)
	}
	if updated.ProviderID != provider.ID {
		t.Fatalf("provider id = %d, want %d", updated.ProviderID, provider.ID)
	}
}

func TestSetStatusFollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "20th Century Boys",
		RequesterID: actor.ID,
	})

	if _, err := f.engine.SetStatus(ctx, actor, req.ID, store.Status("archived")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown status err = %v, want validation error", err)
	}

	updated, err := f.engine.SetStatus(ctx, actor, req.ID, store.StatusInProgress)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != store.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", updated.Status)
	}

	// The lifecycle never moves backwards.
	if _, err := f.engine.SetStatus(ctx, actor, req.ID, store.StatusPending); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("backwards transition err = %v, want conflict", err)
	}
}

func TestSuggestionsRanksAcrossStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: "user-1"}

	testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
		ProviderID: 1,
		Title:      "Hunter x Hunter",
		Chapter:    intp(10),
	})
	testsupport.NewContribution(t, f.store, &store.Contribution{
		Title:    "Hunter x Hunter",
		Chapter:  intp(11),
		Approval: store.ApprovalApproved,
	})
	testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
		ProviderID: 1,
		Title:      "Fullmetal Alchemist",
	})

	matches, err := f.engine.Suggestions(ctx, actor, "Hunter x Hunter | cap 10", 5)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(matches) < 2 {
		t.Fatalf("matches = %d, want at least the two hunter entries", len(matches))
	}
	if matches[0].Candidate.Chapter == nil || *matches[0].Candidate.Chapter != 10 {
		t.Fatalf("top match = %+v, want the exact-chapter item", matches[0].Candidate)
	}
}
