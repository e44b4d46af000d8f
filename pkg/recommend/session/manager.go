// Package session loads, restores and persists conversation sessions in the session cache.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/cache"
	"ai-budtender-be/pkg/store"

	"github.com/google/uuid"
)

const module = "SESSION_STORE"

const (
	activePrefix = "session:active:"
	backupPrefix = "session:prefs:"
)

type Config struct {
	ActiveTTL        time.Duration
	PreferenceTTL    time.Duration
	OperationTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ActiveTTL:        2 * time.Hour,
		PreferenceTTL:    30 * 24 * time.Hour,
		OperationTimeout: 500 * time.Millisecond,
	}
}

// Manager never fails a turn: cache errors are logged and degrade to an ephemeral session.
type Manager struct {
	cache cache.Client
	cfg   Config
	log   logger.ILogger
	now   func() time.Time
}

func NewManager(client cache.Client, cfg Config, log logger.ILogger) *Manager {
	return &Manager{cache: client, cfg: cfg, log: log, now: time.Now}
}

// GetOrRestore returns the active session for id, a session rebuilt from its preference backup,
// or a fresh one. An empty id gets a new uuid.
func (m *Manager) GetOrRestore(ctx context.Context, id string) *store.ConversationSession {
	now := m.now()
	if id == "" {
		return store.NewConversationSession(uuid.NewString(), now)
	}

	var sess store.ConversationSession
	err := m.get(ctx, activePrefix+id, &sess)
	switch {
	case err == nil:
		sess.IsRestored = false
		sess.Touch(now)
		return &sess
	case !errors.Is(err, cache.ErrCacheMiss):
		m.log.Warn(module, "Active session read failed, using ephemeral session", map[string]interface{}{
			"session_id": id, "error": err.Error(),
		})
		return store.NewConversationSession(id, now)
	}

	fresh := store.NewConversationSession(id, now)
	var backup store.PreferenceBackup
	if err := m.get(ctx, backupPrefix+id, &backup); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			m.log.Warn(module, "Preference backup read failed", map[string]interface{}{
				"session_id": id, "error": err.Error(),
			})
		}
		return fresh
	}

	fresh.Language = backup.Language
	for k, v := range backup.Preferences {
		fresh.RememberPreference(k, v...)
	}
	fresh.IsRestored = true
	m.log.Info(module, "Session restored from preferences", map[string]interface{}{"session_id": id})
	return fresh
}

// Save writes the session and, when it has preferences, its backup. It reports whether the active
// record was stored.
func (m *Manager) Save(ctx context.Context, sess *store.ConversationSession) bool {
	now := m.now()
	sess.Touch(now)

	if err := m.set(ctx, activePrefix+sess.ID, sess, m.cfg.ActiveTTL); err != nil {
		m.log.Warn(module, "Session not saved", map[string]interface{}{"session_id": sess.ID, "error": err.Error()})
		return false
	}
	if sess.HasPreferences() {
		if err := m.set(ctx, backupPrefix+sess.ID, sess.Backup(now), m.cfg.PreferenceTTL); err != nil {
			m.log.Warn(module, "Preference backup not saved", map[string]interface{}{"session_id": sess.ID, "error": err.Error()})
		}
	}
	return true
}

// Get returns the active session without restoring or creating one.
func (m *Manager) Get(ctx context.Context, id string) (*store.ConversationSession, error) {
	var sess store.ConversationSession
	if err := m.get(ctx, activePrefix+id, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the active session. The preference backup is kept.
func (m *Manager) Delete(ctx context.Context, id string) error {
	cctx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	defer cancel()
	return m.cache.Delete(cctx, activePrefix+id)
}

func (m *Manager) get(ctx context.Context, key string, v interface{}) error {
	cctx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	defer cancel()
	data, err := m.cache.Get(cctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *Manager) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, m.cfg.OperationTimeout)
	defer cancel()
	return m.cache.Set(cctx, key, data, ttl)
}
