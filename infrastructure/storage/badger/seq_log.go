package badger

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// errDuplicateID is returned when a record ID is already indexed.
var errDuplicateID = errors.New("badger: duplicate record id")

// seqLog stores records in append order under big-endian sequence keys,
// with a secondary index from record ID to sequence key.
//
// Key layout, relative to prefix:
//
//	seq          last assigned sequence number (8 bytes)
//	rec:<seq>    JSON record
//	id:<id>      record key
type seqLog struct {
	db     *badger.DB
	prefix string
}

func newSeqLog(db *badger.DB, prefix string) seqLog {
	return seqLog{db: db, prefix: prefix}
}

func (l seqLog) seqKey() []byte {
	return []byte(l.prefix + "seq")
}

func (l seqLog) recordPrefix() []byte {
	return []byte(l.prefix + "rec:")
}

func (l seqLog) recordKey(seq uint64) []byte {
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, seq)
	return append(l.recordPrefix(), seqBytes...)
}

func (l seqLog) indexKey(id string) []byte {
	return []byte(l.prefix + "id:" + id)
}

// append writes the records in order within txn.
func (l seqLog) append(txn *badger.Txn, ids []string, values [][]byte) error {
	var seq uint64
	item, err := txn.Get(l.seqKey())
	switch {
	case err == nil:
		err = item.Value(func(val []byte) error {
			if len(val) == 8 {
				seq = binary.BigEndian.Uint64(val)
			}
			return nil
		})
		if err != nil {
			return err
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}

	for i, id := range ids {
		if _, err := txn.Get(l.indexKey(id)); err == nil {
			return errDuplicateID
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		seq++
		key := l.recordKey(seq)
		if err := txn.Set(key, values[i]); err != nil {
			return err
		}
		if err := txn.Set(l.indexKey(id), key); err != nil {
			return err
		}
	}

	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, seq)
	return txn.Set(l.seqKey(), seqBytes)
}

// lookup returns the record key for an ID.
func (l seqLog) lookup(txn *badger.Txn, id string) ([]byte, error) {
	item, err := txn.Get(l.indexKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// get returns the record stored for an ID.
func (l seqLog) get(txn *badger.Txn, id string) ([]byte, error) {
	key, err := l.lookup(txn, id)
	if err != nil {
		return nil, err
	}
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// each calls fn with every record in append order until fn returns false.
func (l seqLog) each(txn *badger.Txn, fn func(val []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = l.recordPrefix()

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var more bool
		err := it.Item().Value(func(val []byte) error {
			var err error
			more, err = fn(val)
			return err
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// discard removes records by ID, ignoring unknown IDs.
func (l seqLog) discard(txn *badger.Txn, ids []string) error {
	for _, id := range ids {
		key, err := l.lookup(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		if err := txn.Delete(l.indexKey(id)); err != nil {
			return err
		}
	}
	return nil
}
