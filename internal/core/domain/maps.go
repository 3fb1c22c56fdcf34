package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Area is a named polygon within a Map.
type Area struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Coordinates []LatLng `json:"coordinates"`
	CreatedAt   int64    `json:"createdAt"` // epoch milliseconds
}

// Map is a named collection of areas, persisted as one document.
type Map struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Areas     []Area `json:"areas"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
}

// UnmarshalJSON normalises a missing areas list to an empty one. The store
// drops empty arrays, so a freshly created map comes back without the key.
func (m *Map) UnmarshalJSON(data []byte) error {
	type plain Map
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Areas == nil {
		p.Areas = []Area{}
	}
	*m = Map(p)
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (m Map) Clone() Map {
	out := m
	out.Areas = make([]Area, len(m.Areas))
	for i, a := range m.Areas {
		a.Coordinates = append([]LatLng(nil), a.Coordinates...)
		out.Areas[i] = a
	}
	return out
}

// AreaIndex returns the position of the area with id, or -1.
func (m Map) AreaIndex(id string) int {
	for i, a := range m.Areas {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// DefaultAreaName is the label given to the n-th area drawn on a map.
func DefaultAreaName(existing int) string {
	return fmt.Sprintf("Area %d", existing+1)
}

// DefaultMapName is the label given to a freshly created map.
const DefaultMapName = "Untitled Map"

// EpochMillis converts t to the timestamp format used in documents.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// PolygonFinalized is emitted by the drawing adapter once per completed polygon.
type PolygonFinalized struct {
	LayerID int64
	Ring    []LatLng
}

// EditorMode is the state of a map editor.
type EditorMode string

const (
	ModeBrowsing EditorMode = "browsing"
	ModeEditing  EditorMode = "editing"
)

// EditorState is a snapshot of a map editor, rendered by the dashboard.
type EditorState struct {
	Mode       EditorMode `json:"mode"`
	Maps       []Map      `json:"maps"`
	SelectedID string     `json:"selectedId,omitempty"`
	Current    *Map       `json:"current,omitempty"`
	DraftName  string     `json:"draftName"`
}

// DrawGesture is a raw drawing-toolset event forwarded by the map canvas.
// LatLngs is left undecoded; the drawing adapter accepts several shapes.
type DrawGesture struct {
	Type      string          `json:"type"`
	LayerType string          `json:"layerType,omitempty"`
	LayerID   int64           `json:"layerId,omitempty"`
	LatLngs   json.RawMessage `json:"latlngs,omitempty"`
	LayerIDs  []int64         `json:"layerIds,omitempty"`
	AreaID    string          `json:"areaId,omitempty"`
}
