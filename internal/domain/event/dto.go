package event

// DispatchRequest is the payload for POST /events/dispatch.
type DispatchRequest struct {
	EventType  string                 `json:"event_type" validate:"required,min=1,max=64"`
	EntityType string                 `json:"entity_type" validate:"max=64"`
	EntityID   string                 `json:"entity_id" validate:"max=128"`
	Context    map[string]interface{} `json:"context"`
	Source     string                 `json:"source" validate:"event_source"`
}
