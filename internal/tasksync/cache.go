// Package tasksync keeps a process-local copy of the aggregated task list in
// step with the store. Mutations patch the copy optimistically and roll it
// back when the store rejects them. Writes seen on the change feed, or
// announced by sibling caches, invalidate the copy.
package tasksync

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/services"
)

// Invalidation reasons
const (
	ReasonManual       = "manual"
	ReasonCreate       = "create"
	ReasonUpdate       = "update"
	ReasonDelete       = "delete"
	ReasonDelegation   = "delegation"
	ReasonChange       = "change"
	ReasonBroadcast    = "broadcast"
	ReasonResubscribed = "resubscribed"
)

// Loader produces the authoritative task list
type Loader interface {
	ListTasks(ctx context.Context) ([]services.TaskView, error)
}

// ChangeFeed reports committed writes to watched tables
type ChangeFeed interface {
	Subscribe(fn func(database.Change)) func()
}

// Commit performs the store write behind a mutation
type Commit func(ctx context.Context) error

// Option configures a Cache
type Option func(*Cache)

// WithChangeFeed invalidates the cache on every change reported by feed
func WithChangeFeed(feed ChangeFeed) Option {
	return func(c *Cache) {
		c.feed = feed
	}
}

// WithBroadcaster announces successful mutations to sibling caches and
// invalidates on their announcements
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Cache) {
		c.broadcaster = b
	}
}

// Cache holds the aggregated task list between reads.
type Cache struct {
	origin      string
	loader      Loader
	feed        ChangeFeed
	broadcaster Broadcaster

	mu     sync.Mutex
	tasks  []services.TaskView
	loaded bool
	// generation advances on every patch and invalidation; a load or rollback
	// only lands if nothing happened in between
	generation uint64

	listeners    map[int]func(reason string)
	nextListener int

	unsubscribe []func()
	closeOnce   sync.Once
}

// New creates a Cache and subscribes it to the configured feed and broadcaster.
func New(loader Loader, opts ...Option) (*Cache, error) {
	c := &Cache{
		origin:    uuid.NewString(),
		loader:    loader,
		listeners: make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.feed != nil {
		c.unsubscribe = append(c.unsubscribe, c.feed.Subscribe(func(ch database.Change) {
			c.invalidate(ReasonChange + ":" + ch.Table)
		}))
	}

	if c.broadcaster != nil {
		unsubscribe, err := c.broadcaster.Subscribe(c.onSignal)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("subscribe to broadcaster: %w", err)
		}
		c.unsubscribe = append(c.unsubscribe, unsubscribe)
	}

	return c, nil
}

// Origin identifies this cache in broadcast signals
func (c *Cache) Origin() string {
	return c.origin
}

// List returns the cached task list, loading it first when invalid. The
// result is a copy the caller may modify.
func (c *Cache) List(ctx context.Context) ([]services.TaskView, error) {
	c.mu.Lock()
	if c.loaded {
		views := cloneViews(c.tasks)
		c.mu.Unlock()
		return views, nil
	}
	generation := c.generation
	c.mu.Unlock()

	views, err := c.loader.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation == generation {
		c.tasks = views
		c.loaded = true
	}
	c.mu.Unlock()

	return cloneViews(views), nil
}

// Snapshot returns a copy of the cached list without loading. It is nil when
// the cache is invalid.
func (c *Cache) Snapshot() []services.TaskView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil
	}
	return cloneViews(c.tasks)
}

// Invalidate drops the cached list
func (c *Cache) Invalidate() {
	c.invalidate(ReasonManual)
}

// OnInvalidate registers fn to run after every invalidation and returns a
// function that removes it
func (c *Cache) OnInvalidate(fn func(reason string)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Create shows placeholders at the head of the list while commit runs
func (c *Cache) Create(ctx context.Context, placeholders []services.TaskView, commit Commit) error {
	return c.mutate(ctx, ReasonCreate, func(views []services.TaskView) []services.TaskView {
		added := cloneViews(placeholders)
		return append(added, views...)
	}, commit)
}

// Update applies patch to the cached view of taskID while commit runs
func (c *Cache) Update(ctx context.Context, taskID uuid.UUID, patch func(*services.TaskView), commit Commit) error {
	return c.mutate(ctx, ReasonUpdate, func(views []services.TaskView) []services.TaskView {
		for i := range views {
			if views[i].ID == taskID {
				patch(&views[i])
			}
		}
		return views
	}, commit)
}

// Delete hides the cached views of taskIDs while commit runs
func (c *Cache) Delete(ctx context.Context, taskIDs []uuid.UUID, commit Commit) error {
	return c.mutate(ctx, ReasonDelete, func(views []services.TaskView) []services.TaskView {
		return slices.DeleteFunc(views, func(v services.TaskView) bool {
			return slices.Contains(taskIDs, v.ID)
		})
	}, commit)
}

// Commit runs a mutation that has no local patch, such as a delegation
// transition whose task is only known to the store
func (c *Cache) Commit(ctx context.Context, reason string, commit Commit) error {
	return c.mutate(ctx, reason, func(views []services.TaskView) []services.TaskView {
		return views
	}, commit)
}

// Close detaches the cache from its feed and broadcaster
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		for _, unsubscribe := range c.unsubscribe {
			unsubscribe()
		}
	})
}

func (c *Cache) mutate(ctx context.Context, reason string, patch func([]services.TaskView) []services.TaskView, commit Commit) error {
	c.mu.Lock()
	previous, previousLoaded := c.tasks, c.loaded
	if c.loaded {
		c.tasks = patch(cloneViews(previous))
	}
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	if err := commit(ctx); err != nil {
		c.mu.Lock()
		// An invalidation during commit already discarded the patch
		if c.generation == generation {
			c.tasks = previous
			c.loaded = previousLoaded
		}
		c.mu.Unlock()
		return err
	}

	c.invalidate(reason)
	c.broadcast(ctx, reason)
	return nil
}

func (c *Cache) invalidate(reason string) {
	c.mu.Lock()
	c.tasks = nil
	c.loaded = false
	c.generation++
	listeners := make([]func(string), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	log.Debug().Str("origin", c.origin).Str("reason", reason).Msg("task cache invalidated")
	for _, fn := range listeners {
		fn(reason)
	}
}

func (c *Cache) broadcast(ctx context.Context, reason string) {
	if c.broadcaster == nil {
		return
	}
	if err := c.broadcaster.Publish(ctx, Signal{Origin: c.origin, Reason: reason}); err != nil {
		log.Warn().Err(err).Str("reason", reason).Msg("failed to broadcast task cache invalidation")
	}
}

func (c *Cache) onSignal(sig Signal) {
	if sig.Origin == c.origin {
		return
	}
	c.invalidate(ReasonBroadcast + ":" + sig.Reason)
}

func cloneViews(views []services.TaskView) []services.TaskView {
	if views == nil {
		return nil
	}
	out := make([]services.TaskView, len(views))
	for i, v := range views {
		out[i] = v.Clone()
	}
	return out
}
