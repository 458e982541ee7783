package store

import (
	"sync"
	"time"

	"github.com/confbuddy/companion-api/internal/cache"
	"github.com/confbuddy/companion-api/internal/database"
	"github.com/confbuddy/companion-api/internal/models"
)

// Store is the local source of truth the UI renders from. Reads are
// concurrent; every multi-statement mutation takes the single-writer
// mutex and runs in one transaction.
type Store struct {
	db          *database.DB
	mu          sync.Mutex
	hub         *Hub
	channelTagC *cache.Tags
	episodeTagC *cache.Tags
}

func New(db *database.DB) *Store {
	return &Store{
		db:          db,
		hub:         NewHub(),
		channelTagC: cache.NewTags(0),
		episodeTagC: cache.NewTags(0),
	}
}

// Migrate creates or upgrades the schema for all models.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(models.AllModels()...)
}

// Close shuts down the reactive hub. The database handle is owned by the
// caller and closed separately.
func (s *Store) Close() {
	s.hub.Close()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
