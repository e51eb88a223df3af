// Package feature holds the event feature catalog and the logic that merges
// remote enablement rows with it into per-feature view models.
package feature

// Category groups features by the phase of the event they apply to.
type Category string

// Known categories, in display order.
const (
	BeforeEvent Category = "before_event"
	DuringEvent Category = "during_event"
	AfterEvent  Category = "after_event"
)

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{BeforeEvent, DuringEvent, AfterEvent}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case BeforeEvent, DuringEvent, AfterEvent:
		return true
	default:
		return false
	}
}

// Title returns the section heading shown for the category.
func (c Category) Title() string {
	switch c {
	case BeforeEvent:
		return "Etkinlik Öncesi Özellikler"
	case DuringEvent:
		return "Etkinlik Sırası Özellikler"
	case AfterEvent:
		return "Etkinlik Sonrası Özellikler"
	default:
		return string(c)
	}
}

// Definition describes a feature an organizer can configure.
type Definition struct {
	Key         string   `koanf:"key" json:"key"`
	Name        string   `koanf:"name" json:"name"`
	Description string   `koanf:"description" json:"description"`
	Category    Category `koanf:"category" json:"category"`
}

// Record is one row of the remote event features table.
type Record struct {
	RecordID   string
	EventID    int64
	FeatureKey string
	Enabled    bool
}

// RemoteFeature is the per-key value returned by a feature store fetch.
type RemoteFeature struct {
	RecordID string `json:"record_id"`
	Enabled  bool   `json:"enabled"`
}

// ViewModel is the derived enablement state of one catalog feature.
type ViewModel struct {
	FeatureKey string `json:"feature_key"`
	Enabled    bool   `json:"enabled"`
	Configured bool   `json:"configured"`
}
