package vda5050

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifies the semantic type of a VDA5050 message. It is always
// the final segment of the MQTT topic.
type Category string

const (
	CategoryConnection     Category = "connection"
	CategoryInstantActions Category = "instantActions"
	CategoryOrder          Category = "order"
	CategoryState          Category = "state"
	CategoryVisualization  Category = "visualization"
)

// Categories returns all message categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryConnection,
		CategoryInstantActions,
		CategoryOrder,
		CategoryState,
		CategoryVisualization,
	}
}

// Valid reports whether c is one of the five VDA5050 categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryConnection, CategoryInstantActions, CategoryOrder, CategoryState, CategoryVisualization:
		return true
	}
	return false
}

// Wildcard is the MQTT single-level wildcard. Subscription patterns use one
// wildcard per topic segment; multi-level "#" is never issued so that segment
// counts stay predictable for routing.
const Wildcard = "+"

// AgvId identifies one vehicle. Two ids are equal iff both fields match
// exactly; routing never uses substring comparison.
type AgvId struct {
	Manufacturer string `json:"manufacturer"`
	SerialNumber string `json:"serialNumber"`
}

// Key returns the canonical map key "manufacturer/serialNumber".
func (id AgvId) Key() string {
	return id.Manufacturer + "/" + id.SerialNumber
}

func (id AgvId) String() string {
	return id.Key()
}

// IsZero reports whether the id is empty.
func (id AgvId) IsZero() bool {
	return id.Manufacturer == "" && id.SerialNumber == ""
}

var (
	// ErrTopicTooShort is returned for topics with fewer than the four
	// mandatory segments.
	ErrTopicTooShort = errors.New("vda5050: topic has too few segments")

	// ErrUnknownCategory is returned when the final topic segment is not a
	// VDA5050 category.
	ErrUnknownCategory = errors.New("vda5050: unknown topic category")

	// ErrEmptySegment is returned when a mandatory identity segment is empty.
	ErrEmptySegment = errors.New("vda5050: empty topic segment")
)

// ParsedTopic is the result of splitting a wire topic.
type ParsedTopic struct {
	InterfaceName string
	// Version is the optional "v<major>" segment, empty when absent.
	Version  string
	AgvId    AgvId
	Category Category
}

// ParseTopic splits a wire topic of the shape
//
//	{interfaceName}/{manufacturer}/{serialNumber}/{category}
//	{interfaceName}/v{major}/{manufacturer}/{serialNumber}/{category}
//
// The category, serial number and manufacturer are anchored from the end of
// the path, which resolves both layouts without guessing at fixed offsets.
func ParseTopic(topic string) (ParsedTopic, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return ParsedTopic{}, fmt.Errorf("%w: %q", ErrTopicTooShort, topic)
	}

	category := Category(parts[len(parts)-1])
	if !category.Valid() {
		return ParsedTopic{}, fmt.Errorf("%w: %q", ErrUnknownCategory, topic)
	}

	parsed := ParsedTopic{
		InterfaceName: parts[0],
		Category:      category,
		AgvId: AgvId{
			Manufacturer: parts[len(parts)-3],
			SerialNumber: parts[len(parts)-2],
		},
	}
	if len(parts) == 5 {
		parsed.Version = parts[1]
	}

	if parsed.AgvId.Manufacturer == "" || parsed.AgvId.SerialNumber == "" {
		return ParsedTopic{}, fmt.Errorf("%w: %q", ErrEmptySegment, topic)
	}

	return parsed, nil
}

// TopicBuilder constructs topic strings for one VDA5050 interface namespace.
// It is the single place where topic layout is decided, keeping publishers
// and subscribers compatible with each other.
type TopicBuilder struct {
	interfaceName string
	// majorVersion <= 0 omits the version segment.
	majorVersion int
}

// NewTopicBuilder creates a TopicBuilder for the given interface name and
// VDA5050 major version.
func NewTopicBuilder(interfaceName string, majorVersion int) *TopicBuilder {
	return &TopicBuilder{interfaceName: interfaceName, majorVersion: majorVersion}
}

// Topic returns the concrete topic for one vehicle and category.
func (b *TopicBuilder) Topic(id AgvId, category Category) string {
	segs := b.prefix()
	segs = append(segs, id.Manufacturer, id.SerialNumber, string(category))
	return strings.Join(segs, "/")
}

// SubscriptionPattern returns the broad per-category pattern with a
// single-level wildcard for every identity segment, e.g. "uagv/+/+/+/order".
// An empty interface name wildcards the first segment as well.
func (b *TopicBuilder) SubscriptionPattern(category Category) string {
	iface := b.interfaceName
	if iface == "" {
		iface = Wildcard
	}
	// Five-segment form: the second wildcard covers the version segment.
	return strings.Join([]string{iface, Wildcard, Wildcard, Wildcard, string(category)}, "/")
}

// SubscriptionPatterns returns one pattern per category, in stable order.
func (b *TopicBuilder) SubscriptionPatterns() []string {
	patterns := make([]string, 0, len(Categories()))
	for _, c := range Categories() {
		patterns = append(patterns, b.SubscriptionPattern(c))
	}
	return patterns
}

func (b *TopicBuilder) prefix() []string {
	segs := []string{b.interfaceName}
	if b.majorVersion > 0 {
		segs = append(segs, fmt.Sprintf("v%d", b.majorVersion))
	}
	return segs
}
