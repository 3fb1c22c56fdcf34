//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	"github.com/oceanclean/oceanclean/internal/adapters/postgres"
	"github.com/oceanclean/oceanclean/internal/pkg/config"
)

// setupStore connects to the test database (see OCEANCLEAN_DATABASE_* env)
// and returns a store rooted at a fresh prefix.
func setupStore(t *testing.T) (*docstore.Store, string) {
	cfg, err := config.Load("oceanclean-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	store, err := docstore.New(postgres.NewBackend(db), docstore.NewLocalNotifier())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	root := "itest-" + uuid.NewString()
	t.Cleanup(func() {
		_ = store.Delete(context.Background(), root)
		store.Close()
		db.Close()
	})
	return store, root
}

func TestBackend_SetGetDelete(t *testing.T) {
	store, root := setupStore(t)
	ctx := context.Background()

	doc := json.RawMessage(`{"name":"Harbor","createdAt":1000,"areas":[{"id":"a1","coordinates":[[1,2],[3,4],[5,6]]}]}`)
	if err := store.Set(ctx, root+"/maps/1", doc); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, root+"/maps/2", json.RawMessage(`{"name":"Bay"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, ok, err := store.Get(ctx, root+"/maps/1/name")
	if err != nil || !ok {
		t.Fatalf("get child: ok=%v err=%v", ok, err)
	}
	if string(raw) != `"Harbor"` {
		t.Errorf("expected \"Harbor\", got %s", raw)
	}

	raw, ok, err = store.Get(ctx, root+"/maps")
	if err != nil || !ok {
		t.Fatalf("get collection: ok=%v err=%v", ok, err)
	}
	var maps map[string]map[string]any
	if err := json.Unmarshal(raw, &maps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(maps) != 2 || maps["2"]["name"] != "Bay" {
		t.Errorf("unexpected collection %v", maps)
	}

	if err := store.Delete(ctx, root+"/maps/1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, root+"/maps/1"); ok {
		t.Error("expected document removed")
	}
}

func TestBackend_LikeWildcardsAreLiteral(t *testing.T) {
	store, root := setupStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, root+"/a_b/x", json.RawMessage(`1`))
	_ = store.Set(ctx, root+"/acb/x", json.RawMessage(`2`))

	raw, ok, err := store.Get(ctx, root+"/a_b")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(raw) != `{"x":1}` {
		t.Errorf("expected only a_b, got %s", raw)
	}
}
