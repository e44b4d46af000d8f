package store

import "time"

// Bounds applied by the append helpers. Oldest entries are dropped first.
const (
	MaxRecommendationGroups = 20
	MaxConversationTurns    = 50
	MaxTopicDepth           = 10
)

// Preference keys persisted across sessions.
const (
	PrefDesiredEffect = "desired_effect"
	PrefAvoidEffect   = "avoid_effect"
	PrefMedical       = "medical"
	PrefFlavor        = "flavor"
)

// Turn is one exchange of the conversation log.
type Turn struct {
	Query    string    `json:"query"`
	Response string    `json:"response"`
	Topic    string    `json:"topic"`
	At       time.Time `json:"at"`
}

// ConversationSession is the per-user conversational state kept in the session cache.
type ConversationSession struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Language     string    `json:"language"`

	// Each group is the ordered list of item ids shown in one turn.
	RecommendationHistory [][]int64 `json:"recommendation_history"`
	ConversationLog       []Turn    `json:"conversation_log"`

	CurrentTopic string   `json:"current_topic"`
	TopicStack   []string `json:"topic_stack"`

	Preferences map[string][]string `json:"preferences"`

	// Set when the session was rebuilt from a preference backup.
	IsRestored bool `json:"is_restored"`
}

// PreferenceBackup is the long-lived reduced snapshot of a session.
type PreferenceBackup struct {
	ID          string              `json:"id"`
	Language    string              `json:"language"`
	Preferences map[string][]string `json:"preferences"`
	SavedAt     time.Time           `json:"saved_at"`
}

func NewConversationSession(id string, now time.Time) *ConversationSession {
	return &ConversationSession{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Preferences:  make(map[string][]string),
	}
}

func (s *ConversationSession) Touch(now time.Time) {
	s.LastActivity = now
}

// AppendRecommendation records a shown group. Empty groups are ignored.
func (s *ConversationSession) AppendRecommendation(ids []int64) {
	if len(ids) == 0 {
		return
	}
	group := make([]int64, len(ids))
	copy(group, ids)
	s.RecommendationHistory = append(s.RecommendationHistory, group)
	if over := len(s.RecommendationHistory) - MaxRecommendationGroups; over > 0 {
		s.RecommendationHistory = s.RecommendationHistory[over:]
	}
}

// LastGroup returns the most recently shown group, or nil.
func (s *ConversationSession) LastGroup() []int64 {
	if len(s.RecommendationHistory) == 0 {
		return nil
	}
	return s.RecommendationHistory[len(s.RecommendationHistory)-1]
}

func (s *ConversationSession) AppendTurn(t Turn) {
	s.ConversationLog = append(s.ConversationLog, t)
	if over := len(s.ConversationLog) - MaxConversationTurns; over > 0 {
		s.ConversationLog = s.ConversationLog[over:]
	}
}

// PushTopic makes topic current and remembers the previous one.
func (s *ConversationSession) PushTopic(topic string) {
	if topic == "" || topic == s.CurrentTopic {
		return
	}
	if s.CurrentTopic != "" {
		s.TopicStack = append(s.TopicStack, s.CurrentTopic)
		if over := len(s.TopicStack) - MaxTopicDepth; over > 0 {
			s.TopicStack = s.TopicStack[over:]
		}
	}
	s.CurrentTopic = topic
}

// RememberPreference merges values into the preference list under key, deduplicated case-insensitively.
func (s *ConversationSession) RememberPreference(key string, values ...string) {
	if s.Preferences == nil {
		s.Preferences = make(map[string][]string)
	}
	existing := s.Preferences[key]
	for _, v := range values {
		if v == "" || containsFold(existing, v) {
			continue
		}
		existing = append(existing, v)
	}
	if len(existing) > 0 {
		s.Preferences[key] = existing
	}
}

// ForgetPreference removes value from key.
func (s *ConversationSession) ForgetPreference(key, value string) {
	list := s.Preferences[key]
	kept := list[:0]
	for _, v := range list {
		if !equalFold(v, value) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(s.Preferences, key)
		return
	}
	s.Preferences[key] = kept
}

func (s *ConversationSession) HasPreferences() bool {
	for _, v := range s.Preferences {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

func (s *ConversationSession) Backup(now time.Time) PreferenceBackup {
	prefs := make(map[string][]string, len(s.Preferences))
	for k, v := range s.Preferences {
		prefs[k] = append([]string(nil), v...)
	}
	return PreferenceBackup{
		ID:          s.ID,
		Language:    s.Language,
		Preferences: prefs,
		SavedAt:     now,
	}
}
