package slots

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExpandRangeNormalizesDirection(t *testing.T) {
	catalog := DefaultCatalog()

	forward := catalog.ExpandRange("7", "9", CategoryClassroom)
	backward := catalog.ExpandRange("9", "7", CategoryClassroom)

	want := []string{"7", "8", "9"}
	if !reflect.DeepEqual(forward, want) {
		t.Fatalf("expected %v, got %v", want, forward)
	}
	if !reflect.DeepEqual(backward, want) {
		t.Fatalf("expected reversed range to equal %v, got %v", want, backward)
	}
}

func TestExpandRangeFallback(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		name       string
		start, end string
		category   Category
		want       []string
	}{
		{name: "single slot", start: "12", end: "12", category: CategoryClassroom, want: []string{"12"}},
		{name: "unknown endpoint", start: "7", end: "99", category: CategoryClassroom, want: []string{"7", "99"}},
		{name: "unknown equal endpoints", start: "99", end: "99", category: CategoryClassroom, want: []string{"99"}},
		{name: "wrong category", start: "A1", end: "A3", category: CategoryClassroom, want: []string{"A1", "A3"}},
		{name: "reversed unknown endpoint", start: "99", end: "7", category: CategoryClassroom, want: []string{"7", "99"}},
		{name: "reversed unknown endpoints", start: "X9", end: "X1", category: CategoryClassroom, want: []string{"X1", "X9"}},
		{name: "administrative blocks", start: "A3", end: "A1", category: CategoryAdministrative, want: []string{"A1", "A2", "A3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.ExpandRange(tt.start, tt.end, tt.category)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewCatalogOrdersByOrderThenID(t *testing.T) {
	catalog, err := NewCatalog([]TimeSlot{
		{ID: "c", Category: CategoryClassroom, Order: 2},
		{ID: "b", Category: CategoryClassroom, Order: 1},
		{ID: "a", Category: CategoryClassroom, Order: 2},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, slot := range catalog.Ordered(CategoryClassroom) {
		ids = append(ids, slot.ID)
	}
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected order %v, got %v", want, ids)
	}
	if label := catalog.Label("a"); label != "a" {
		t.Fatalf("expected label to default to id, got %q", label)
	}
}

func TestNewCatalogRejectsInvalidInput(t *testing.T) {
	if _, err := NewCatalog(nil, nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}

	_, err := NewCatalog([]TimeSlot{
		{ID: "7", Category: CategoryClassroom},
		{ID: "7", Category: CategoryClassroom},
	}, nil)
	if !errors.Is(err, ErrDuplicateSlot) {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}

	_, err = NewCatalog([]TimeSlot{{ID: "x", Category: "lab"}}, nil)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	catalog := DefaultCatalog()

	tests := map[string]string{
		"7":           "7",
		" 7 ":         "7",
		"07":          "7",
		"7:00":        "7",
		"07:00-08:00": "7",
		"P7":          "7",
		"p07":         "7",
		"08:00-10:00": "A1",
		"10:00-12:00": "A2",
		"13:00-15:00": "A3",
		"a2":          "A2",
		"unknown":     "unknown",
		"":            "",
	}
	for input, want := range tests {
		if got := catalog.Normalize(input); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func adminCatalog(t *testing.T) *Catalog {
	t.Helper()
	base := DefaultCatalog()
	list := append(base.Ordered(CategoryClassroom), base.Ordered(CategoryAdministrative)...)
	catalog, err := NewCatalog(list, []string{"A101"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return catalog
}

func TestNormalizeIn(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		input    string
		category Category
		want     string
	}{
		{input: "08:00", category: CategoryAdministrative, want: "A1"},
		{input: "8", category: CategoryAdministrative, want: "8"},
		{input: "08", category: CategoryAdministrative, want: "A1"},
		{input: "15:00", category: CategoryAdministrative, want: "A4"},
		{input: "08:00", category: CategoryClassroom, want: "8"},
		{input: "08:00-10:00", category: CategoryClassroom, want: "A1"},
		{input: "A1", category: CategoryClassroom, want: "A1"},
		{input: "12:00", category: CategoryAdministrative, want: "12"},
		{input: "08:00", category: "", want: "8"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category)+" "+tt.input, func(t *testing.T) {
			if got := catalog.NormalizeIn(tt.input, tt.category); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeForRoom(t *testing.T) {
	catalog := adminCatalog(t)

	if got := catalog.NormalizeForRoom("A101", "08:00"); got != "A1" {
		t.Fatalf("expected administrative room hour to resolve to A1, got %q", got)
	}
	if got := catalog.NormalizeForRoom("301", "08:00"); got != "8" {
		t.Fatalf("expected classroom hour to resolve to 8, got %q", got)
	}
	if got := catalog.NormalizeForRoom("A101", "10:00-12:00"); got != "A2" {
		t.Fatalf("expected label to resolve to A2, got %q", got)
	}
}

func TestLess(t *testing.T) {
	catalog := DefaultCatalog()

	if !catalog.Less(CategoryClassroom, "9", "10") {
		t.Fatalf("expected catalog order, not lexical order")
	}
	if !catalog.Less(CategoryClassroom, "21", "99") {
		t.Fatalf("expected known slots before unknown identifiers")
	}
	if catalog.Less(CategoryClassroom, "Z", "Y") {
		t.Fatalf("expected unknown identifiers to sort lexically")
	}
}

func TestRoomCategory(t *testing.T) {
	catalog, err := NewCatalog([]TimeSlot{{ID: "7", Category: CategoryClassroom}}, []string{"A101"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := catalog.RoomCategory("A101"); got != CategoryAdministrative {
		t.Fatalf("expected administrative, got %s", got)
	}
	if got := catalog.RoomCategory("301"); got != CategoryClassroom {
		t.Fatalf("expected classroom, got %s", got)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slots.yaml")
	doc := `administrative_rooms: [A101]
slots:
  - id: "8"
    label: "08:00"
    category: classroom
    order: 8
  - id: "9"
    category: classroom
    order: 9
  - id: "M"
    label: "Morning"
    category: administrative
    order: 1
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if cat, ok := catalog.Category("M"); !ok || cat != CategoryAdministrative {
		t.Fatalf("expected M to be administrative, got %q (%v)", cat, ok)
	}
	if got := catalog.ExpandRange("8", "9", CategoryClassroom); !reflect.DeepEqual(got, []string{"8", "9"}) {
		t.Fatalf("unexpected range %v", got)
	}
	if catalog.RoomCategory("A101") != CategoryAdministrative {
		t.Fatalf("expected A101 to be administrative")
	}
}

func TestParseCatalogRejectsUnknownFields(t *testing.T) {
	_, err := ParseCatalog([]byte("slots:\n  - id: \"7\"\n    category: classroom\n    colour: red\n"))
	if err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}
