package testsupport

import (
	"context"
	"testing"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewRequest creates a pending request for tests using the provided store.
func NewRequest(t testing.TB, st *store.Store, req *store.Request) *store.Request {
	t.Helper()

	if req.RequesterID == "" {
		req.RequesterID = "tester"
	}
	created, err := st.CreateRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("store.CreateRequest: %v", err)
	}
	return created
}

// NewLibraryItem seeds a catalogued asset for tests.
func NewLibraryItem(t testing.TB, st *store.Store, item *store.LibraryItem) *store.LibraryItem {
	t.Helper()

	created, err := st.PutLibraryItem(context.Background(), item)
	if err != nil {
		t.Fatalf("store.PutLibraryItem: %v", err)
	}
	return created
}

// NewContribution seeds a user submission for tests.
func NewContribution(t testing.TB, st *store.Store, contrib *store.Contribution) *store.Contribution {
	t.Helper()

	if contrib.SubmitterID == "" {
		contrib.SubmitterID = "tester"
	}
	created, err := st.PutContribution(context.Background(), contrib)
	if err != nil {
		t.Fatalf("store.PutContribution: %v", err)
	}
	return created
}
