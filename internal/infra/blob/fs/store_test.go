package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"surveycore/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutGetRoundtripWithSidecar(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	info, err := store.Put(ctx, "exports/run1/visits.csv", bytes.NewReader([]byte("site,visits\n")), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"query": "visits"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ContentType != "text/csv" || info.ETag == "" || info.Size != 12 {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "exports/run1/visits.csv.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	got, rc, err := store.Get(ctx, "exports/run1/visits.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "site,visits\n" {
		t.Fatalf("body mismatch: %q", data)
	}
	if got.Metadata["query"] != "visits" || got.ETag != info.ETag {
		t.Fatalf("sidecar metadata lost: %#v", got)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "k.txt", bytes.NewReader([]byte("one")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k.txt", bytes.NewReader([]byte("two")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestKeySanitization(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/abs/path", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestMissingKey(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "nope"); err != nil || ok {
		t.Fatalf("delete missing: %v %v", ok, err)
	}
}

func TestDeleteRemovesSidecar(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "k.txt", bytes.NewReader([]byte("x")), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := store.Delete(ctx, "k.txt")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "k.txt.meta")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("sidecar should be gone: %v", err)
	}
}

func TestListSkipsSidecarsAndFiltersPrefix(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"exports/b.csv", "exports/a.csv", "other/x.txt"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a.csv" || infos[1].Key != "exports/b.csv" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestSignedURLUnsupported(t *testing.T) {
	store := newStore(t)
	if _, err := store.SignedURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("driver %s", store.Driver())
	}
}
