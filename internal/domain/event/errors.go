package event

import "errors"

var (
	// ErrUnknownEventType is returned for event types absent from the rule table
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrMissingEntity is returned when a per-entity rule gets no entity_id
	ErrMissingEntity = errors.New("entity_id required for this event type")

	ErrInternal = errors.New("internal error")
)
