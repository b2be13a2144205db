package board

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// PreferencesKey is the storage key of the presentation preferences.
const PreferencesKey = "kanbanPreferences"

// Preferences persists the presentation options next to the board state.
type Preferences struct {
	mu      sync.Mutex
	backend Backend
	logger  *log.Logger
}

func NewPreferences(backend Backend, logger *log.Logger) *Preferences {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Preferences{backend: backend, logger: logger}
}

// Get returns the stored preferences, or the defaults when none are stored
// or the stored value cannot be used.
func (p *Preferences) Get(ctx context.Context) (domain.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok, err := p.backend.Load(ctx, PreferencesKey)
	if err != nil {
		return domain.Preferences{}, err
	}
	if !ok {
		return domain.DefaultPreferences(), nil
	}
	var prefs domain.Preferences
	if err := sonic.Unmarshal(data, &prefs); err != nil {
		p.logger.WithError(err).Warn("stored preferences are malformed, using defaults")
		return domain.DefaultPreferences(), nil
	}
	if err := prefs.Validate(); err != nil {
		p.logger.WithError(err).Warn("stored preferences are invalid, using defaults")
		return domain.DefaultPreferences(), nil
	}
	return prefs, nil
}

// Set validates and replaces the stored preferences.
func (p *Preferences) Set(ctx context.Context, prefs domain.Preferences) (domain.Preferences, error) {
	if err := prefs.Validate(); err != nil {
		return domain.Preferences{}, err
	}
	data, err := sonic.Marshal(prefs)
	if err != nil {
		return domain.Preferences{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.backend.Save(ctx, PreferencesKey, data); err != nil {
		return domain.Preferences{}, &PersistError{Key: PreferencesKey, Err: err}
	}
	return prefs, nil
}
