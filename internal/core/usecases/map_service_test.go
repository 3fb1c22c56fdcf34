package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

func squareAt(lat, lng float64) []domain.LatLng {
	return ring([2]float64{lat, lng}, [2]float64{lat, lng + 1}, [2]float64{lat + 1, lng + 1}, [2]float64{lat + 1, lng})
}

func TestMapService_ListSorted(t *testing.T) {
	svc := usecases.NewMapService(newFakeMapRepo(mapB(), mapA()))
	maps, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(maps) != 2 || maps[0].ID != "1" {
		t.Errorf("expected Harbor first, got %+v", maps)
	}
}

func TestMapService_GetNotFound(t *testing.T) {
	svc := usecases.NewMapService(newFakeMapRepo())
	_, err := svc.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMapService_CreateFillsAreas(t *testing.T) {
	repo := newFakeMapRepo()
	svc := usecases.NewMapService(repo)

	m, err := svc.Create(context.Background(), "  Harbor ", []domain.Area{
		{Coordinates: squareAt(0, 0)},
		{Name: "Pier", Coordinates: squareAt(5, 5)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Name != "Harbor" || m.ID == "" {
		t.Errorf("unexpected map %+v", m)
	}
	if m.Areas[0].Name != "Area 1" || m.Areas[1].Name != "Pier" {
		t.Errorf("expected default and given names, got %q %q", m.Areas[0].Name, m.Areas[1].Name)
	}
	if m.Areas[0].ID == "" || m.Areas[0].ID == m.Areas[1].ID {
		t.Error("expected distinct generated area ids")
	}
	if _, ok := repo.stored(m.ID); !ok {
		t.Error("expected map persisted")
	}
}

func TestMapService_CreateValidation(t *testing.T) {
	repo := newFakeMapRepo()
	svc := usecases.NewMapService(repo)

	if _, err := svc.Create(context.Background(), "  ", nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank name: expected validation error, got %v", err)
	}
	_, err := svc.Create(context.Background(), "Harbor", []domain.Area{{Coordinates: ring([2]float64{0, 0}, [2]float64{1, 1})}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("short ring: expected validation error, got %v", err)
	}
	_, err = svc.Create(context.Background(), "Harbor", []domain.Area{
		{ID: "x", Coordinates: squareAt(0, 0)},
		{ID: "x", Coordinates: squareAt(1, 1)},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("duplicate id: expected validation error, got %v", err)
	}
	if repo.writes() != 0 {
		t.Error("invalid input must not reach the store")
	}
}

func TestMapService_ReplaceKeepsIdentity(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc := usecases.NewMapService(repo)

	m, err := svc.Replace(context.Background(), "1", "Harbour", []domain.Area{{Coordinates: squareAt(0, 0)}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if m.ID != "1" || m.CreatedAt != 1000 || m.Name != "Harbour" || len(m.Areas) != 1 {
		t.Errorf("unexpected map %+v", m)
	}

	if _, err := svc.Replace(context.Background(), "ghost", "x", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMapService_Delete(t *testing.T) {
	repo := newFakeMapRepo(mapA())
	svc := usecases.NewMapService(repo)

	if err := svc.Delete(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.stored("1"); ok {
		t.Error("expected map removed")
	}
}

func TestMapService_Locate(t *testing.T) {
	m := mapA()
	m.Areas = []domain.Area{
		{ID: "a1", Name: "Area 1", Coordinates: squareAt(0, 0)},
		{ID: "a2", Name: "Area 2", Coordinates: squareAt(0.5, 0.5)},
		{ID: "a3", Name: "Area 3", Coordinates: squareAt(10, 10)},
	}
	svc := usecases.NewMapService(newFakeMapRepo(m))
	ctx := context.Background()

	res, err := svc.Locate(ctx, "1", domain.LatLng{Lat: 0.75, Lng: 0.75})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if len(res.Inside) != 2 || res.Inside[0].ID != "a1" || res.Inside[1].ID != "a2" {
		t.Errorf("expected a1 and a2 in map order, got %+v", res.Inside)
	}
	if res.Nearest != nil {
		t.Error("nearest is only set when no area contains the point")
	}

	res, err = svc.Locate(ctx, "1", domain.LatLng{Lat: 9, Lng: 9})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if len(res.Inside) != 0 || res.Nearest == nil || res.Nearest.ID != "a3" {
		t.Errorf("expected nearest a3, got %+v", res)
	}
	if res.DistanceMeters <= 0 {
		t.Errorf("expected positive distance, got %f", res.DistanceMeters)
	}

	if _, err := svc.Locate(ctx, "1", domain.LatLng{Lat: 100, Lng: 0}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.Locate(ctx, "ghost", domain.LatLng{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
