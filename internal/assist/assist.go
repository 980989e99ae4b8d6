package assist

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common errors
var (
	ErrDisabled       = errors.New("assistance is disabled")
	ErrComputeFailed  = errors.New("suggestion computation failed")
	ErrWaitTimeout    = errors.New("timed out waiting for suggestion")
	ErrQueueFull      = errors.New("scheduler queue is full")
	ErrInvalidKey     = errors.New("invalid suggestion key")
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Widget identifies the annotation widget type of a field. The widget
// determines which assistant kinds are available for the field.
type Widget string

const (
	WidgetChoices         Widget = "choices"
	WidgetLabels          Widget = "labels"
	WidgetRectangleLabels Widget = "rectanglelabels"
	WidgetTextArea        Widget = "textarea"
)

// Assistant kinds. Hints explain the item, keywords highlight spans,
// prelabels propose a full annotation.
const (
	AssistantHint     = "hint"
	AssistantKeywords = "keywords"
	AssistantPrelabel = "prelabel"
)

var assistantsByWidget = map[Widget][]string{
	WidgetChoices:         {AssistantHint, AssistantPrelabel},
	WidgetLabels:          {AssistantHint, AssistantKeywords, AssistantPrelabel},
	WidgetRectangleLabels: {AssistantHint, AssistantPrelabel},
	WidgetTextArea:        {AssistantHint},
}

// AssistantsFor returns the assistant names known for a widget type.
// Unknown widgets have no assistants.
func AssistantsFor(w Widget) []string {
	return assistantsByWidget[w]
}

// Key uniquely identifies one cacheable unit of assistance work.
type Key struct {
	Item      int
	Field     int
	Assistant string
}

// String returns the canonical serialized form used by the backing store.
func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%s", k.Item, k.Field, k.Assistant)
}

// ParseKey parses the canonical "item:field:assistant" form. The assistant
// segment is the remainder after the second separator, so assistant names may
// themselves contain colons.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	item, err := strconv.Atoi(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("%w: bad item index in %q", ErrInvalidKey, s)
	}
	field, err := strconv.Atoi(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("%w: bad field index in %q", ErrInvalidKey, s)
	}
	return Key{Item: item, Field: field, Assistant: parts[2]}, nil
}

// ComputeFunc produces the suggestion value for one key. It may perform
// network I/O and is invoked at most once concurrently per key.
type ComputeFunc func(ctx context.Context) (string, error)

// FieldSpec describes one annotatable field of an item.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Widget Widget `yaml:"widget"`
}

// Project describes the labeling task: how many items exist and which fields
// each item carries. The field schema is uniform across items.
type Project struct {
	ItemCount int
	Fields    []FieldSpec
}

// ClampItem restricts an item index to the valid range [0, ItemCount].
func (p *Project) ClampItem(i int) int {
	if i < 0 {
		return 0
	}
	if i > p.ItemCount {
		return p.ItemCount
	}
	return i
}

// Store is durable key/value persistence for suggestion values. Keys are the
// canonical string form of a suggestion Key. Implementations carry no
// internal locking; callers serialize access.
type Store interface {
	// Load reads every persisted entry. A missing backing store yields an
	// empty map, not an error.
	Load() (map[string]string, error)

	// Put merges one entry into the store.
	Put(key, value string) error

	// Clear removes the backing store entirely.
	Clear() error
}

// Stats is the read-only view of cache state exposed to the UI layer.
type Stats struct {
	DiskCacheEnabled bool `json:"disk_cache_enabled"`
	CachedItemCount  int  `json:"cached_item_count"`
	InProgressCount  int  `json:"in_progress_count"`
}
