package vda5050

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrder(t *testing.T) {
	payload := []byte(`{
		"headerId": 7,
		"orderId": "ord-1",
		"orderUpdateId": 0,
		"nodes": [
			{"nodeId": "1", "sequenceId": 0, "released": true, "actions": [],
			 "nodePosition": {"x": 1.5, "y": 2.5, "mapId": "warehouse"}}
		],
		"edges": [
			{"edgeId": "1", "sequenceId": 1, "released": true,
			 "startNodeId": "1", "endNodeId": "2", "actions": []}
		]
	}`)

	msg, err := Decode(CategoryOrder, payload)
	require.NoError(t, err)

	order, ok := msg.(*Order)
	require.True(t, ok)
	assert.Equal(t, "ord-1", order.OrderId)
	require.Len(t, order.Nodes, 1)
	require.NotNil(t, order.Nodes[0].NodePosition)
	assert.Equal(t, 2.5, order.Nodes[0].NodePosition.Y)
	require.Len(t, order.Edges, 1)
	assert.Equal(t, "2", order.Edges[0].EndNodeId)
}

func TestDecodeOrderMissingArrays(t *testing.T) {
	// A malformed order without nodes/edges still decodes; the arrays are nil
	// and downstream treats them as empty.
	msg, err := Decode(CategoryOrder, []byte(`{"orderId": "ord-2"}`))
	require.NoError(t, err)

	order := msg.(*Order)
	assert.Nil(t, order.Nodes)
	assert.Nil(t, order.Edges)
}

func TestDecodeStatePosition(t *testing.T) {
	msg, err := Decode(CategoryState, []byte(`{"agvPosition": {"x": 5, "y": 3, "theta": 0.5, "mapId": "m"}}`))
	require.NoError(t, err)

	st := msg.(*State)
	require.NotNil(t, st.AgvPosition)
	require.NotNil(t, st.AgvPosition.X)
	assert.Equal(t, 5.0, *st.AgvPosition.X)
	assert.Equal(t, 3.0, *st.AgvPosition.Y)
}

func TestDecodeStateNullCoordinates(t *testing.T) {
	msg, err := Decode(CategoryState, []byte(`{"agvPosition": {"x": null, "y": 3}}`))
	require.NoError(t, err)

	st := msg.(*State)
	require.NotNil(t, st.AgvPosition)
	assert.Nil(t, st.AgvPosition.X)
	require.NotNil(t, st.AgvPosition.Y)
}

func TestDecodeConnection(t *testing.T) {
	msg, err := Decode(CategoryConnection, []byte(`{"connectionState": "ONLINE", "serialNumber": "A1"}`))
	require.NoError(t, err)

	conn := msg.(*Connection)
	assert.Equal(t, ConnectionOnline, conn.ConnectionState)
	assert.Equal(t, "A1", conn.SerialNumber)
}

func TestDecodeInstantActionsFieldNames(t *testing.T) {
	modern, err := Decode(CategoryInstantActions, []byte(`{"actions": [{"actionType": "pick", "actionId": "a1", "blockingType": "HARD"}]}`))
	require.NoError(t, err)
	require.Len(t, modern.(*InstantActions).Actions, 1)

	legacy, err := Decode(CategoryInstantActions, []byte(`{"instantActions": [{"actionType": "drop", "actionId": "a2", "blockingType": "NONE"}]}`))
	require.NoError(t, err)
	require.Len(t, legacy.(*InstantActions).Actions, 1)
	assert.Equal(t, "drop", legacy.(*InstantActions).Actions[0].ActionType)
}

func TestDecodeMalformedPayloadKeepsRaw(t *testing.T) {
	raw := []byte(`{"this is": not json`)

	msg, err := Decode(CategoryState, raw)
	require.Error(t, err)
	require.NotNil(t, msg, "undecodable payloads are delivered, not dropped")

	unparsed, ok := msg.(*Unparsed)
	require.True(t, ok)
	assert.Equal(t, CategoryState, unparsed.Category())
	assert.Equal(t, string(raw), unparsed.Raw)
}

func TestDecodeUnknownCategory(t *testing.T) {
	msg, err := Decode(Category("factsheet"), []byte(`{}`))
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
