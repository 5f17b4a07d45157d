package badger

import (
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds how often a write transaction is replayed after
// badger reports a conflict with a concurrent transaction.
const maxConflictRetries = 8

// DB is an open BadgerDB database shared by the stage, history and
// notification stores.
type DB struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
	closeOnce sync.Once
}

// Open opens a BadgerDB database with the given configuration.
func Open(cfg Config, opts ...Option) (*DB, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	d := &DB{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		d.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return d, nil
}

// Stages returns the stage store backed by this database.
func (d *DB) Stages() *StageStore {
	return &StageStore{db: d.db, prefix: d.keyPrefix + "stage:"}
}

// History returns the history store backed by this database.
func (d *DB) History() *HistoryStore {
	return &HistoryStore{log: newSeqLog(d.db, d.keyPrefix+"history:")}
}

// Notifications returns the notification store backed by this database.
func (d *DB) Notifications() *NotificationStore {
	return &NotificationStore{log: newSeqLog(d.db, d.keyPrefix+"notification:")}
}

// Close stops GC and closes the database.
func (d *DB) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.gcStop)
		d.gcWg.Wait()
		err = d.db.Close()
	})
	return err
}

// startGC runs value log GC on every tick until Close.
func (d *DB) startGC(interval time.Duration, discardRatio float64) {
	d.gcWg.Add(1)
	go func() {
		defer d.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.gcStop:
				return
			case <-ticker.C:
				for {
					if err := d.db.RunValueLogGC(discardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

// update runs fn in a read-write transaction, replaying it on conflict.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
