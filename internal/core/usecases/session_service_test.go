package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oceanclean/oceanclean/internal/adapters/drawing"
	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

type surfaces struct {
	mu   sync.Mutex
	list []*drawing.Adapter
}

func (s *surfaces) factory() func() ports.DrawingSurface {
	return func() ports.DrawingSurface {
		a := drawing.New(drawing.Options{})
		s.mu.Lock()
		s.list = append(s.list, a)
		s.mu.Unlock()
		return a
	}
}

func newSessionService(repo *fakeMapRepo, idle time.Duration) (*usecases.SessionService, *surfaces) {
	s := &surfaces{}
	svc := usecases.NewSessionService(repo, s.factory(), idle,
		usecases.WithClock(func() time.Time { return fixedNow }),
		usecases.WithIDGenerator(sequentialIDs("gen")),
	)
	return svc, s
}

func TestSessionService_OpenLoadsRoster(t *testing.T) {
	svc, _ := newSessionService(newFakeMapRepo(mapA(), mapB()), 0)
	defer svc.Shutdown()

	sess, st, err := svc.Open(context.Background(), "ops")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sess.Owner != "ops" || sess.ID == "" {
		t.Errorf("unexpected session %+v", sess)
	}
	if len(st.Maps) != 2 || st.SelectedID != "1" {
		t.Errorf("expected roster loaded, got %+v", st)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 session, got %d", svc.Count())
	}

	got, err := svc.Get(sess.ID)
	if err != nil || got != sess {
		t.Errorf("expected Get to return the session, got %v", err)
	}
}

func TestSessionService_OpenFailsWhenStoreDown(t *testing.T) {
	repo := newFakeMapRepo()
	repo.fail(errors.New("down"))
	svc, surf := newSessionService(repo, 0)

	_, _, err := svc.Open(context.Background(), "ops")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if svc.Count() != 0 {
		t.Error("failed session must not be registered")
	}
	if surf.list[0].Listeners() != 0 {
		t.Error("drawing surface must be torn down")
	}
}

func TestSessionService_GestureDrawsArea(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc, _ := newSessionService(repo, 0)
	defer svc.Shutdown()

	sess, _, err := svc.Open(context.Background(), "ops")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := sess.Editor().EditMap("1"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	var pushed []domain.EditorState
	sess.Listen(func(st domain.EditorState) { pushed = append(pushed, st) })

	st, err := sess.Gesture(context.Background(), domain.DrawGesture{
		Type:      drawing.EventCreated,
		LayerType: "polygon",
		LayerID:   42,
		LatLngs:   json.RawMessage(`[[10,20],[11,21],[10,22]]`),
	})
	if err != nil {
		t.Fatalf("gesture: %v", err)
	}
	if len(st.Current.Areas) != 1 || st.Current.Areas[0].Name != "Area 1" {
		t.Fatalf("expected Area 1 drawn, got %+v", st.Current.Areas)
	}
	if len(pushed) != 1 {
		t.Errorf("expected one state push, got %d", len(pushed))
	}

	// deleting the layer removes the area it created
	st, err = sess.Gesture(context.Background(), domain.DrawGesture{Type: drawing.EventDeleted, LayerIDs: []int64{42}})
	if err != nil {
		t.Fatalf("delete gesture: %v", err)
	}
	if len(st.Current.Areas) != 0 {
		t.Errorf("expected area removed, got %d", len(st.Current.Areas))
	}
	saved, _ := repo.stored("1")
	if len(saved.Areas) != 0 {
		t.Errorf("expected removal persisted, got %d", len(saved.Areas))
	}
}

func TestSessionService_GestureWhileBrowsing(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc, _ := newSessionService(repo, 0)
	defer svc.Shutdown()

	sess, _, _ := svc.Open(context.Background(), "ops")
	_, err := sess.Gesture(context.Background(), domain.DrawGesture{
		Type:    drawing.EventCreated,
		LatLngs: json.RawMessage(`[[10,20],[11,21],[10,22]]`),
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
	if repo.writes() != 0 {
		t.Error("expected no write")
	}
}

func TestSessionService_RemotePushReachesListeners(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc, _ := newSessionService(repo, 0)
	defer svc.Shutdown()

	sess, _, _ := svc.Open(context.Background(), "ops")
	var pushed []domain.EditorState
	sess.Listen(func(st domain.EditorState) { pushed = append(pushed, st) })

	_ = repo.SaveMap(context.Background(), &domain.Map{ID: "9", Name: "Remote", Areas: []domain.Area{}, CreatedAt: 9000})
	repo.push()

	if len(pushed) != 1 || len(pushed[0].Maps) != 2 {
		t.Fatalf("expected a push with 2 maps, got %+v", pushed)
	}
}

func TestSessionService_CloseTearsDown(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc, surf := newSessionService(repo, 0)

	sess, _, _ := svc.Open(context.Background(), "ops")
	if surf.list[0].Listeners() != 2 {
		t.Fatalf("expected 2 drawing listeners, got %d", surf.list[0].Listeners())
	}
	calls := 0
	sess.Listen(func(domain.EditorState) { calls++ })

	svc.Close(sess.ID)
	svc.Close(sess.ID) // idempotent

	if surf.list[0].Listeners() != 0 {
		t.Error("expected drawing listeners released")
	}
	if _, err := svc.Get(sess.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := sess.Editor().Load(context.Background()); !errors.Is(err, usecases.ErrEditorClosed) {
		t.Errorf("expected editor closed, got %v", err)
	}
	repo.push()
	if calls != 0 {
		t.Error("closed session must not publish")
	}
}

func TestSessionService_RemountDoesNotLeakListeners(t *testing.T) {
	svc, surf := newSessionService(newFakeMapRepo(mapA()), 0)
	for range 5 {
		sess, _, err := svc.Open(context.Background(), "ops")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		svc.Close(sess.ID)
	}
	for i, a := range surf.list {
		if a.Listeners() != 0 {
			t.Errorf("surface %d leaked %d listeners", i, a.Listeners())
		}
	}
}

func TestSessionService_Expire(t *testing.T) {
	svc, _ := newSessionService(newFakeMapRepo(), 10*time.Minute)
	defer svc.Shutdown()

	_, _, _ = svc.Open(context.Background(), "a")
	_, _, _ = svc.Open(context.Background(), "b")

	if n := svc.Expire(time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("expected nothing expired yet, got %d", n)
	}
	if n := svc.Expire(time.Now().Add(time.Hour)); n != 2 {
		t.Errorf("expected 2 expired, got %d", n)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no sessions left, got %d", svc.Count())
	}
}

func TestSessionService_ExpireDisabled(t *testing.T) {
	svc, _ := newSessionService(newFakeMapRepo(), 0)
	defer svc.Shutdown()
	_, _, _ = svc.Open(context.Background(), "a")
	if n := svc.Expire(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("expected expiry disabled, got %d", n)
	}
}

func TestSessionService_RunShutsDownOnCancel(t *testing.T) {
	svc, _ := newSessionService(newFakeMapRepo(), time.Hour)
	_, _, _ = svc.Open(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if svc.Count() != 0 {
		t.Errorf("expected sessions closed, got %d", svc.Count())
	}
}

func TestSessionService_GestureRetriedAfterStoreFailure(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc, _ := newSessionService(repo, 0)
	defer svc.Shutdown()

	sess, _, _ := svc.Open(context.Background(), "ops")
	if _, err := sess.Editor().EditMap("1"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	g := domain.DrawGesture{
		Type:      drawing.EventCreated,
		LayerType: "polygon",
		LayerID:   42,
		LatLngs:   json.RawMessage(`[[10,20],[11,21],[10,22]]`),
	}

	repo.fail(errors.New("down"))
	if _, err := sess.Gesture(context.Background(), g); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	repo.fail(nil)

	st, err := sess.Gesture(context.Background(), g)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(st.Current.Areas) != 1 {
		t.Fatalf("expected the resent polygon drawn, got %d areas", len(st.Current.Areas))
	}
	saved, _ := repo.stored("1")
	if len(saved.Areas) != 1 {
		t.Errorf("expected area persisted, got %d", len(saved.Areas))
	}
}

func TestSessionService_DeleteAreaReleasesLayer(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc, surf := newSessionService(repo, 0)
	defer svc.Shutdown()

	sess, _, _ := svc.Open(context.Background(), "ops")
	if _, err := sess.Editor().EditMap("1"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	st, err := sess.Gesture(context.Background(), domain.DrawGesture{
		Type:      drawing.EventCreated,
		LayerType: "polygon",
		LayerID:   7,
		LatLngs:   json.RawMessage(`[[10,20],[11,21],[10,22]]`),
	})
	if err != nil || len(st.Current.Areas) != 1 {
		t.Fatalf("draw: %v", err)
	}
	areaID := st.Current.Areas[0].ID

	st, err = sess.DeleteArea(context.Background(), areaID)
	if err != nil {
		t.Fatalf("delete area: %v", err)
	}
	if len(st.Current.Areas) != 0 {
		t.Errorf("expected area removed, got %d", len(st.Current.Areas))
	}
	if _, ok := surf.list[0].AreaForLayer(7); ok {
		t.Error("expected the layer binding released")
	}
}
