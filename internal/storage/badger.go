package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/san-kum/resodyn/internal/sim"
)

const runPrefix = "run/"

type samples struct {
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// BadgerStore keeps every run under run/<id>/meta and run/<id>/states.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// NewBadgerStore opens the database at path, or an in-memory one when path
// is empty.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

func metaKey(runID string) []byte   { return []byte(runPrefix + runID + "/meta") }
func statesKey(runID string) []byte { return []byte(runPrefix + runID + "/states") }

func (b *BadgerStore) Save(info RunInfo, result *sim.Result) (string, error) {
	meta, err := newMetadata(info, result, b.now())
	if err != nil {
		return "", err
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	rows := samples{Times: result.Times, States: make([][]float64, len(result.States))}
	for i, x := range result.States {
		rows.States[i] = x
	}
	stateData, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(meta.ID), metaData); err != nil {
			return err
		}
		return txn.Set(statesKey(meta.ID), stateData)
	})
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (b *BadgerStore) List() ([]RunMetadata, error) {
	runs := make([]RunMetadata, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), "/meta") {
				continue
			}
			var meta RunMetadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			runs = append(runs, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (b *BadgerStore) get(key []byte, v any) error {
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrRunNotFound
	}
	return err
}

func (b *BadgerStore) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := b.get(metaKey(runID), &meta); err != nil {
		return nil, fmt.Errorf("%w: %s", err, runID)
	}
	return &meta, nil
}

func (b *BadgerStore) LoadStates(runID string) ([][]float64, []float64, error) {
	var rows samples
	if err := b.get(statesKey(runID), &rows); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, runID)
	}
	return rows.States, rows.Times, nil
}

// Delete removes both records of a run.
func (b *BadgerStore) Delete(runID string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(runID)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		} else if err != nil {
			return err
		}
		if err := txn.Delete(metaKey(runID)); err != nil {
			return err
		}
		return txn.Delete(statesKey(runID))
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
