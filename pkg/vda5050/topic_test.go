package vda5050

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		want    ParsedTopic
		wantErr error
	}{
		{
			name:  "four segments",
			topic: "uagv/acme/A1/order",
			want: ParsedTopic{
				InterfaceName: "uagv",
				AgvId:         AgvId{Manufacturer: "acme", SerialNumber: "A1"},
				Category:      CategoryOrder,
			},
		},
		{
			name:  "five segments with version",
			topic: "uagv/v2/acme/A1/state",
			want: ParsedTopic{
				InterfaceName: "uagv",
				Version:       "v2",
				AgvId:         AgvId{Manufacturer: "acme", SerialNumber: "A1"},
				Category:      CategoryState,
			},
		},
		{
			name:  "instantActions category",
			topic: "iface/v1/megacorp/robot-7/instantActions",
			want: ParsedTopic{
				InterfaceName: "iface",
				Version:       "v1",
				AgvId:         AgvId{Manufacturer: "megacorp", SerialNumber: "robot-7"},
				Category:      CategoryInstantActions,
			},
		},
		{
			name:    "too short",
			topic:   "acme/A1/order",
			wantErr: ErrTopicTooShort,
		},
		{
			name:    "unknown category",
			topic:   "uagv/v2/acme/A1/telemetry",
			wantErr: ErrUnknownCategory,
		},
		{
			name:    "empty serial",
			topic:   "uagv/v2/acme//order",
			wantErr: ErrEmptySegment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTopic(tt.topic)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAgvIdKey(t *testing.T) {
	id := AgvId{Manufacturer: "acme", SerialNumber: "AGV-1"}
	assert.Equal(t, "acme/AGV-1", id.Key())
	assert.False(t, id.IsZero())
	assert.True(t, AgvId{}.IsZero())
}

func TestTopicBuilderTopic(t *testing.T) {
	b := NewTopicBuilder("uagv", 2)
	id := AgvId{Manufacturer: "acme", SerialNumber: "A1"}

	assert.Equal(t, "uagv/v2/acme/A1/order", b.Topic(id, CategoryOrder))

	// Version segment omitted for major version 0.
	legacy := NewTopicBuilder("uagv", 0)
	assert.Equal(t, "uagv/acme/A1/connection", legacy.Topic(id, CategoryConnection))
}

func TestTopicBuilderSubscriptionPatterns(t *testing.T) {
	b := NewTopicBuilder("", 2)
	patterns := b.SubscriptionPatterns()

	assert.Equal(t, []string{
		"+/+/+/+/connection",
		"+/+/+/+/instantActions",
		"+/+/+/+/order",
		"+/+/+/+/state",
		"+/+/+/+/visualization",
	}, patterns)

	named := NewTopicBuilder("uagv", 2)
	assert.Equal(t, "uagv/+/+/+/order", named.SubscriptionPattern(CategoryOrder))
}

func TestBuilderRoundTripsThroughParse(t *testing.T) {
	b := NewTopicBuilder("uagv", 2)
	id := AgvId{Manufacturer: "acme", SerialNumber: "A1"}

	for _, c := range Categories() {
		parsed, err := ParseTopic(b.Topic(id, c))
		require.NoError(t, err)
		assert.Equal(t, id, parsed.AgvId)
		assert.Equal(t, c, parsed.Category)
		assert.Equal(t, "v2", parsed.Version)
	}
}
