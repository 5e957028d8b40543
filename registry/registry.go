package registry

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/jinzhu/gorm"

	"github.com/wisehuang/geodine-ai/config"
	"github.com/wisehuang/geodine-ai/db"
	"github.com/wisehuang/geodine-ai/handlers"
	"github.com/wisehuang/geodine-ai/models"
	"github.com/wisehuang/geodine-ai/tools"
)

// Handle is one registered bot: its config, its API client and its
// conversation handler with a per-bot dedup guard.
type Handle struct {
	Config  *config.BotConfig
	Client  *tools.LineClient
	Handler handlers.Handler
	Dedup   *handlers.Dedup
}

type snapshot struct {
	byID   map[string]*Handle
	byPath map[string]*Handle
}

// Registry resolves inbound webhooks to bots. Reads go through an
// atomic snapshot so the hot path never takes the writer lock.
type Registry struct {
	mu      sync.Mutex
	current atomic.Value // snapshot

	db     *gorm.DB
	images *tools.ImageGenerator
}

func New(database *gorm.DB, images *tools.ImageGenerator) *Registry {
	r := &Registry{db: database, images: images}
	r.current.Store(snapshot{byID: map[string]*Handle{}, byPath: map[string]*Handle{}})
	return r
}

// Load replaces the whole registry with the given configs. Bots that
// fail validation are skipped with a log line; one bad file never takes
// the others down.
func (r *Registry) Load(configs []config.BotConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := snapshot{byID: map[string]*Handle{}, byPath: map[string]*Handle{}}
	for i := range configs {
		cfg := &configs[i]
		handle, err := r.buildHandle(cfg)
		if err != nil {
			log.Printf("registry: skipping bot %s: %v", cfg.BotID, err)
			continue
		}
		next.byID[cfg.BotID] = handle
		next.byPath[cfg.WebhookPath] = handle
	}
	r.current.Store(next)
	log.Printf("registry: %d bot(s) registered", len(next.byID))
}

// Reload atomically swaps the whole registry for a new config set.
// Readers in flight see the old table or the new one, never a partial mix.
func (r *Registry) Reload(configs []config.BotConfig) {
	r.Load(configs)
}

// Register adds or replaces a single bot without touching the others.
func (r *Registry) Register(cfg *config.BotConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, err := r.buildHandle(cfg)
	if err != nil {
		return err
	}

	next := r.copySnapshot()
	if old, ok := next.byID[cfg.BotID]; ok {
		delete(next.byPath, old.Config.WebhookPath)
	}
	next.byID[cfg.BotID] = handle
	next.byPath[cfg.WebhookPath] = handle
	r.current.Store(next)
	return nil
}

// Unregister removes a bot. Unknown ids are a no-op.
func (r *Registry) Unregister(botID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.copySnapshot()
	handle, ok := next.byID[botID]
	if !ok {
		return
	}
	delete(next.byID, botID)
	delete(next.byPath, handle.Config.WebhookPath)
	r.current.Store(next)
}

// Get returns the bot by its id, or nil.
func (r *Registry) Get(botID string) *Handle {
	return r.current.Load().(snapshot).byID[botID]
}

// GetByWebhookPath resolves an inbound request path, or nil.
func (r *Registry) GetByWebhookPath(path string) *Handle {
	return r.current.Load().(snapshot).byPath[path]
}

// All returns every registered bot.
func (r *Registry) All() []*Handle {
	snap := r.current.Load().(snapshot)
	handles := make([]*Handle, 0, len(snap.byID))
	for _, h := range snap.byID {
		handles = append(handles, h)
	}
	return handles
}

func (r *Registry) buildHandle(cfg *config.BotConfig) (*Handle, error) {
	if cfg.BotID == "" {
		return nil, fmt.Errorf("bot id is empty")
	}
	if cfg.ChannelAccessToken == "" || cfg.ChannelSecret == "" {
		return nil, fmt.Errorf("missing channel credentials")
	}
	if cfg.WebhookPath == "" {
		return nil, fmt.Errorf("missing webhook path")
	}

	client := &tools.LineClient{AccessToken: cfg.ChannelAccessToken}
	dedup := handlers.NewDedup()

	var handler handlers.Handler
	switch cfg.BotType {
	case models.BOT_TYPE_WEATHER:
		handler = handlers.NewWeatherHandler(cfg, client, dedup, r.db, r.images)
	case models.BOT_TYPE_RESTAURANT:
		handler = handlers.NewRestaurantHandler(cfg, client, dedup, r.db)
	default:
		return nil, fmt.Errorf("unknown bot type %q", cfg.BotType)
	}

	// espelha o bot no banco para que usuarios possam ser associados
	if r.db != nil {
		if _, err := db.GetOrCreateBot(r.db, cfg.BotID, cfg.Name); err != nil {
			log.Printf("registry: bot mirror failed for %s: %v", cfg.BotID, err)
		}
	}

	return &Handle{Config: cfg, Client: client, Handler: handler, Dedup: dedup}, nil
}

func (r *Registry) copySnapshot() snapshot {
	old := r.current.Load().(snapshot)
	next := snapshot{
		byID:   make(map[string]*Handle, len(old.byID)),
		byPath: make(map[string]*Handle, len(old.byPath)),
	}
	for k, v := range old.byID {
		next.byID[k] = v
	}
	for k, v := range old.byPath {
		next.byPath[k] = v
	}
	return next
}
