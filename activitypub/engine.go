package activitypub

import (
	"net/http"
	"time"

	"github.com/benkert/gutwerk/db"
	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/jsonld"
	"github.com/benkert/gutwerk/util"
)

// actorCacheTTL is how long a fetched remote actor stays fresh before a
// sync triggers a re-fetch.
const actorCacheTTL = 24 * time.Hour

// Adopter turns a received remote event into a local domain project.
type Adopter interface {
	Adopt(ev *domain.Event) (*domain.Project, error)
}

// Engine is the sync/adapter engine: it performs outbound signed
// GET/POST, fetch-or-create deduplication by IRI, and inbound protocol
// handling. One Engine serves the whole process.
type Engine struct {
	db      *db.DB
	conf    *util.AppConfig
	proc    *jsonld.Processor
	client  *http.Client
	adopter Adopter
}

func NewEngine(database *db.DB, conf *util.AppConfig, proc *jsonld.Processor) *Engine {
	return &Engine{
		db:     database,
		conf:   conf,
		proc:   proc,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetAdopter installs the handler for automatic adoption of events
// received under a Follow with automatic adoption mode.
func (e *Engine) SetAdopter(a Adopter) {
	e.adopter = a
}

// DB exposes the engine's store for handlers that read objects directly.
func (e *Engine) DB() *db.DB {
	return e.db
}

func (e *Engine) userAgent() string {
	return util.Name + "/" + util.GetVersion() + " ActivityPub"
}
