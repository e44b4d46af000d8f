package dto

import "time"

type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=1000"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
	Language  string `json:"language,omitempty" validate:"omitempty,oneof=en es"`
}

type StrainDTO struct {
	Id          int64    `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	ThcLevel    *float64 `json:"thc_level"`
	CbdLevel    *float64 `json:"cbd_level"`
	Effects     []string `json:"effects"`
	HelpsWith   []string `json:"helps_with"`
	Negatives   []string `json:"negatives"`
	Flavors     []string `json:"flavors"`
	Terpenes    []string `json:"terpenes,omitempty"`
	Description string   `json:"description,omitempty"`
}

type FilterDTO struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Priority int         `json:"priority"`
}

type QuickActionDTO struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

// RecommendResponse is the result of one conversational turn.
type RecommendResponse struct {
	ResponseText     string           `json:"response_text"`
	RecommendedItems []StrainDTO      `json:"recommended_items"`
	DetectedIntent   string           `json:"detected_intent"`
	FiltersApplied   []FilterDTO      `json:"filters_applied"`
	SessionID        string           `json:"session_id"`
	QueryType        string           `json:"query_type"`
	Language         string           `json:"language"`
	Confidence       float64          `json:"confidence"`
	QuickActions     []QuickActionDTO `json:"quick_actions"`
	IsRestored       bool             `json:"is_restored"`
	IsFallback       bool             `json:"is_fallback"`
	Warnings         []string         `json:"warnings"`
}

type TurnDTO struct {
	Query    string    `json:"query"`
	Response string    `json:"response"`
	Topic    string    `json:"topic,omitempty"`
	At       time.Time `json:"at"`
}

type SessionResponse struct {
	SessionID     string              `json:"session_id"`
	Language      string              `json:"language"`
	CreatedAt     time.Time           `json:"created_at"`
	LastActivity  time.Time           `json:"last_activity"`
	CurrentTopic  string              `json:"current_topic,omitempty"`
	LastShown     []int64             `json:"last_shown"`
	HistoryGroups int                 `json:"history_groups"`
	Preferences   map[string][]string `json:"preferences"`
	RecentTurns   []TurnDTO           `json:"recent_turns"`
}

type TaxonomyRefreshResponse struct {
	Terms    map[string]int `json:"terms"`
	Strains  int64          `json:"strains"`
	LoadedAt time.Time      `json:"loaded_at"`
}
