package vda5050

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals a raw payload into the typed message for its category.
//
// Decode never returns a nil Message for a valid category: when the JSON is
// malformed the returned message is an *Unparsed carrying the raw text, along
// with the decode error. Callers log the error and keep delivering the
// message; a bad payload must never stall the ingestion path.
func Decode(category Category, payload []byte) (Message, error) {
	var msg Message
	switch category {
	case CategoryConnection:
		msg = &Connection{}
	case CategoryInstantActions:
		msg = &InstantActions{}
	case CategoryOrder:
		msg = &Order{}
	case CategoryState:
		msg = &State{}
	case CategoryVisualization:
		msg = &Visualization{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	if err := json.Unmarshal(payload, msg); err != nil {
		return &Unparsed{Cat: category, Raw: string(payload)}, fmt.Errorf("decode %s payload: %w", category, err)
	}
	return msg, nil
}
