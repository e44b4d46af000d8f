package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "recommendation_served").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

const (
	TypeRecommendationServed = "recommendation_served"
	TypeCatalogUpdated       = "catalog_updated"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// RecommendationServed describes one completed turn.
type RecommendationServed struct {
	SessionID  string
	Language   string
	Intent     string
	Action     string
	Stage      string
	ItemIDs    []int64
	IsFallback bool
	OccurredAt time.Time
}

func (e RecommendationServed) EventType() string {
	return TypeRecommendationServed
}

func (e RecommendationServed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"language":    e.Language,
		"intent":      e.Intent,
		"action":      e.Action,
		"stage":       e.Stage,
		"item_ids":    e.ItemIDs,
		"is_fallback": e.IsFallback,
		"occurred_at": e.OccurredAt.Format(time.RFC3339),
	}
}

func (e RecommendationServed) Timestamp() time.Time {
	return e.OccurredAt
}
