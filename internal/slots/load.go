package slots

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a slot catalog.
//
//	administrative_rooms: [A101, A102]
//	slots:
//	  - id: "7"
//	    label: "07:00-08:00"
//	    category: classroom
//	    order: 7
type catalogFile struct {
	AdministrativeRooms []string   `yaml:"administrative_rooms"`
	Slots               []TimeSlot `yaml:"slots"`
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("slots: read catalog %s: %w", path, err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("slots: parse catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes a YAML catalog document. Unknown keys are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, err
	}
	return NewCatalog(file.Slots, file.AdministrativeRooms)
}

// DefaultCatalog returns the building's standard slot set: hourly classroom
// slots "7" through "21" and four administrative blocks "A1" through "A4".
func DefaultCatalog() *Catalog {
	list := make([]TimeSlot, 0, 19)
	for hour := 7; hour <= 21; hour++ {
		list = append(list, TimeSlot{
			ID:       strconv.Itoa(hour),
			Label:    fmt.Sprintf("%02d:00-%02d:00", hour, hour+1),
			Category: CategoryClassroom,
			Order:    hour,
		})
	}

	blocks := []struct{ id, label string }{
		{"A1", "08:00-10:00"},
		{"A2", "10:00-12:00"},
		{"A3", "13:00-15:00"},
		{"A4", "15:00-17:00"},
	}
	for i, block := range blocks {
		list = append(list, TimeSlot{
			ID:       block.id,
			Label:    block.label,
			Category: CategoryAdministrative,
			Order:    i + 1,
		})
	}

	catalog, err := NewCatalog(list, nil)
	if err != nil {
		panic(fmt.Sprintf("slots: default catalog: %v", err))
	}
	return catalog
}
