package commands

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/channel"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/classify"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/dedupe"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/delivery"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/events"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/resolution"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/testsupport"
)

type fakeMessenger struct {
	replies []string
	files   []string
}

func (m *fakeMessenger) Reply(_ context.Context, text string) error {
	m.replies = append(m.replies, text)
	return nil
}

func (m *fakeMessenger) SendFile(_ context.Context, _, filename, _ string) error {
	m.files = append(m.files, filename)
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
	engine *resolution.Engine
	router *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ev := events.NewService(cfg)
	deliverer := delivery.New(st, ev, cfg, nil)
	engine := resolution.New(st, classify.NewDefault(), deliverer, ev, cfg, nil)
	router := NewRouter(engine, st, dedupe.New(dedupe.DefaultOptions()), nil)
	return &fixture{cfg: cfg, store: st, engine: engine, router: router}
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

func inbound(command, requester, messageID string, args ...string) Inbound {
	return Inbound{
		Command:     command,
		Args:        args,
		RequesterID: requester,
		MessageID:   messageID,
	}
}

func TestDispatchPedidoDeliversExactMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.seedAsset(t, "naruto-5.cbz")
	testsupport.NewLibraryItem(t, f.store, &store.LibraryItem{
		ProviderID: 1,
		Title:      "Naruto",
		Chapter:    intp(5),
		Filename:   "naruto-5.cbz",
		Location:   path,
	})

	messenger := &fakeMessenger{}
	if err := f.router.Dispatch(ctx, messenger, inbound("pedido", "user-1", "m1", "Naruto", "|", "cap", "5")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(messenger.files) == 0 {
		t.Fatal("no file delivered")
	}
	if len(messenger.replies) == 0 || !strings.Contains(messenger.replies[len(messenger.replies)-1], "entregado") {
		t.Fatalf("replies = %q, want delivery confirmation", messenger.replies)
	}

	all, err := f.store.ListRequests(ctx, store.StatusCompleted)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("completed requests = %d, want 1", len(all))
	}
}

func TestDispatchSuppressesDuplicateInbound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Vagabond",
		RequesterID: "user-1",
	})
	auditBefore := len(req.Audit)

	event := inbound("votar", "user-1", "msg-77", strconv.FormatInt(req.ID, 10))
	messenger := &fakeMessenger{}
	for i := 0; i < 2; i++ {
		if err := f.router.Dispatch(ctx, messenger, event); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}

	reloaded, err := f.store.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got := len(reloaded.Audit) - auditBefore; got != 1 {
		t.Fatalf("new audit entries = %d, want exactly 1", got)
	}
	if len(messenger.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(messenger.replies))
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	f := newFixture(t)

	messenger := &fakeMessenger{}
	if err := f.router.Dispatch(context.Background(), messenger, inbound("banear", "user-1", "m1")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(messenger.replies) != 1 || !strings.Contains(messenger.replies[0], "desconocido") {
		t.Fatalf("replies = %q", messenger.replies)
	}
}

func TestDispatchMapsPermissionError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:         "Akira",
		RequesterID:   "user-1",
		OriginScopeID: "scope-a",
	})

	messenger := &fakeMessenger{}
	event := inbound("cancelar", "user-2", "m1", strconv.FormatInt(req.ID, 10))
	event.OriginScopeID = "scope-a"
	if err := f.router.Dispatch(ctx, messenger, event); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(messenger.replies) != 1 || !strings.Contains(messenger.replies[0], "permiso") {
		t.Fatalf("replies = %q, want permission reply", messenger.replies)
	}

	reloaded, err := f.store.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if reloaded.Status != store.StatusPending {
		t.Fatalf("status = %s, want pending", reloaded.Status)
	}
}

func TestDispatchMapsTerminalErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Monster",
		RequesterID: "user-1",
	})
	id := strconv.FormatInt(req.ID, 10)

	messenger := &fakeMessenger{}
	if err := f.router.Dispatch(ctx, messenger, inbound("cancelar", "user-1", "m1", id)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.router.Dispatch(ctx, messenger, inbound("cancelar", "user-1", "m2", id)); err != nil {
		t.Fatalf("second cancel: %v", err)
	}

	last := messenger.replies[len(messenger.replies)-1]
	if !strings.Contains(last, "ya fue cancelado") {
		t.Fatalf("reply = %q, want idempotent cancelled notice", last)
	}

	completed := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Berserk",
		RequesterID: "user-1",
	})
	actor := resolution.Actor{ID: "user-1"}
	for _, next := range []store.Status{store.StatusInProgress, store.StatusCompleted} {
		if _, err := f.engine.SetStatus(ctx, actor, completed.ID, next); err != nil {
			t.Fatalf("SetStatus(%s): %v", next, err)
		}
	}
	if err := f.router.Dispatch(ctx, messenger, inbound("cancelar", "user-1", "m3", strconv.FormatInt(completed.ID, 10))); err != nil {
		t.Fatalf("cancel completed: %v", err)
	}
	last = messenger.replies[len(messenger.replies)-1]
	if !strings.Contains(last, "ya fue completado") {
		t.Fatalf("reply = %q, want idempotent completed notice", last)
	}
}

func TestDispatchPedidosListsOnlyScopeActives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testsupport.NewRequest(t, f.store, &store.Request{
		Title:         "Monster",
		RequesterID:   "user-1",
		OriginScopeID: "grupo-a",
	})
	testsupport.NewRequest(t, f.store, &store.Request{
		Title:         "Berserk",
		RequesterID:   "user-2",
		OriginScopeID: "grupo-b",
	})
	cancelled := testsupport.NewRequest(t, f.store, &store.Request{
		Title:         "Vagabond",
		RequesterID:   "user-1",
		OriginScopeID: "grupo-a",
	})
	if _, err := f.engine.Cancel(ctx, resolution.Actor{ID: "user-1"}, cancelled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	messenger := &fakeMessenger{}
	in := inbound("pedidos", "user-1", "m1")
	in.OriginScopeID = "grupo-a"
	in.GroupScoped = true
	if err := f.router.Dispatch(ctx, messenger, in); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(messenger.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(messenger.replies))
	}
	reply := messenger.replies[0]
	if !strings.Contains(reply, "Monster") {
		t.Fatalf("reply %q missing the scope's open request", reply)
	}
	for _, absent := range []string{"Berserk", "Vagabond"} {
		if strings.Contains(reply, absent) {
			t.Fatalf("reply %q leaks %s", reply, absent)
		}
	}
}

func TestDispatchMapsValidationError(t *testing.T) {
	f := newFixture(t)

	messenger := &fakeMessenger{}
	if err := f.router.Dispatch(context.Background(), messenger, inbound("pedido", "user-1", "m1", "cap", "10")); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(messenger.replies) != 1 || !strings.Contains(messenger.replies[0], "No entendi") {
		t.Fatalf("replies = %q, want validation reply", messenger.replies)
	}
}

func TestDispatchElegirBadReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Claymore",
		RequesterID: "user-1",
	})

	messenger := &fakeMessenger{}
	event := inbound("elegir", "user-1", "m1", strconv.FormatInt(req.ID, 10), "biblioteca-12")
	if err := f.router.Dispatch(ctx, messenger, event); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(messenger.replies) != 1 || !strings.Contains(messenger.replies[0], "fuente:item") {
		t.Fatalf("replies = %q", messenger.replies)
	}
}

func TestDispatchEstadoShowsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := testsupport.NewRequest(t, f.store, &store.Request{
		Title:       "Dororo",
		RequesterID: "user-1",
	})

	messenger := &fakeMessenger{}
	if err := f.router.Dispatch(ctx, messenger, inbound("estado", "user-2", "m1", strconv.FormatInt(req.ID, 10))); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(messenger.replies) != 1 || !strings.Contains(messenger.replies[0], "pending") {
		t.Fatalf("replies = %q, want status line", messenger.replies)
	}
}
