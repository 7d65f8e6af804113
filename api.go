package ashstorage

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/Borislavv/go-ash-storage/scheduler"
)

// decomposer is the type-erased view of a Decomposer[T] kept by the registry.
type decomposer interface {
	decomposeAny(v any) (*Decomposed, error)
	recomposeAny(ctx context.Context, c *Container, template string) *Future[any]
	canRecompose() bool
}

// API owns the decomposer registry and the scheduler shared by its containers.
type API struct {
	sched  scheduler.Scheduler
	logger *slog.Logger

	mu          sync.RWMutex
	decomposers map[reflect.Type]decomposer
}

// NewAPI returns an API running background work on sched.
// A nil logger discards logs.
func NewAPI(sched scheduler.Scheduler, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &API{
		sched:       sched,
		logger:      logger,
		decomposers: make(map[reflect.Type]decomposer),
	}
}

// Scheduler returns the scheduler background work runs on.
func (a *API) Scheduler() scheduler.Scheduler { return a.sched }

// Logger returns the API logger.
func (a *API) Logger() *slog.Logger { return a.logger }

// Register makes T storable by containers of api. Registering T again replaces the decomposer.
// T must be the concrete dynamic type of stored values (Point and *Point are distinct).
func Register[T any](api *API, d *Decomposer[T]) {
	typ := reflect.TypeFor[T]()

	api.mu.Lock()
	api.decomposers[typ] = d
	api.mu.Unlock()

	api.logger.Debug("decomposer registered", "type", typ.String())
}

// IsRegistered reports whether T has a decomposer.
func IsRegistered[T any](api *API) bool {
	return api.decomposer(reflect.TypeFor[T]()) != nil
}

func (a *API) decomposer(typ reflect.Type) decomposer {
	if typ == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.decomposers[typ]
}

// isPrimitive reports whether values of typ are stored as-is.
func isPrimitive(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
