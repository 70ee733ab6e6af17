package database

import (
	"sync"

	"gorm.io/gorm"
)

// Operation names carried by a Change.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// WatchedTables are the tables whose writes invalidate aggregated task views.
var WatchedTables = []string{
	"tasks",
	"task_assignments",
	"task_team_assignments",
	"task_delegations",
	"team_members",
	"task_reschedules",
}

// Change describes a committed write against a watched table.
type Change struct {
	Table string
	Op    string
}

// ChangeFeed fans out row-change events raised by GORM callbacks to subscribers.
type ChangeFeed struct {
	mu      sync.RWMutex
	subs    map[int]func(Change)
	nextID  int
	watched map[string]struct{}
}

func NewChangeFeed() *ChangeFeed {
	watched := make(map[string]struct{}, len(WatchedTables))
	for _, t := range WatchedTables {
		watched[t] = struct{}{}
	}
	return &ChangeFeed{
		subs:    make(map[int]func(Change)),
		watched: watched,
	}
}

// Register hooks the feed into the create, update and delete callback chains of db.
func (f *ChangeFeed) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().After("gorm:create").Register("changefeed:create", f.hook(OpInsert)); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("changefeed:update", f.hook(OpUpdate)); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("changefeed:delete", f.hook(OpDelete))
}

func (f *ChangeFeed) hook(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil {
			return
		}
		// Soft deletes run through the delete chain as UPDATE statements.
		f.Publish(Change{Table: tx.Statement.Table, Op: op})
	}
}

// Publish delivers c to every subscriber if its table is watched.
func (f *ChangeFeed) Publish(c Change) {
	if _, ok := f.watched[c.Table]; !ok {
		return
	}

	f.mu.RLock()
	subs := make([]func(Change), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (f *ChangeFeed) Subscribe(fn func(Change)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}
