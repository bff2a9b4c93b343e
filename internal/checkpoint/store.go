// Package checkpoint keeps snapshots of an agent taken during training in an
// embedded BadgerDB, keyed by run id and episode.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/CodeStranger-Fred/slither/mdp"
)

var ErrNotFound = errors.New("checkpoint not found")

const keyPrefix = "ckpt/"

type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's own messages; nil silences them.
	Logger *slog.Logger
}

// Checkpoint is one snapshot. Model holds the agent exactly as Encode wrote it.
type Checkpoint struct {
	RunID     string          `json:"run_id"`
	Episode   int             `json:"episode"`
	Time      time.Time       `json:"time"`
	Epsilon   float64         `json:"epsilon"`
	States    int             `json:"states"`
	Reward    float64         `json:"reward"`
	MaxLength int             `json:"max_length"`
	Model     json.RawMessage `json:"model,omitempty"`
}

// Restore loads the snapshot into a.
func (c Checkpoint) Restore(a *mdp.Agent) (mdp.Metadata, error) {
	if len(c.Model) == 0 {
		return nil, fmt.Errorf("checkpoint %s/%d has no model", c.RunID, c.Episode)
	}
	return a.Decode(c.Model)
}

type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("checkpoint path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create checkpoint directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory is meant for tests.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

func (s *Store) Close() error { return s.db.Close() }

func runPrefix(runID string) []byte {
	return []byte(keyPrefix + runID + "/")
}

// episodes are zero padded so keys sort in episode order
func key(runID string, episode int) []byte {
	return []byte(fmt.Sprintf("%s%s/%010d", keyPrefix, runID, episode))
}

func (s *Store) Put(c Checkpoint) error {
	if c.RunID == "" || strings.Contains(c.RunID, "/") {
		return fmt.Errorf("invalid run id %q", c.RunID)
	}
	if c.Episode < 0 {
		return fmt.Errorf("invalid episode %d", c.Episode)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(c.RunID, c.Episode), data)
	})
	if err != nil {
		return fmt.Errorf("write checkpoint %s/%d: %w", c.RunID, c.Episode, err)
	}
	return nil
}

func (s *Store) Get(runID string, episode int) (Checkpoint, error) {
	var c Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(runID, episode))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint %s/%d: %w", runID, episode, err)
	}
	return c, nil
}

// Latest returns the checkpoint with the highest episode of the run.
func (s *Store) Latest(runID string) (Checkpoint, error) {
	prefix := runPrefix(runID)
	var c Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return ErrNotFound
		}
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		return Checkpoint{}, fmt.Errorf("latest checkpoint of %s: %w", runID, err)
	}
	return c, nil
}

// List returns the checkpoints of a run in episode order, without models.
func (s *Store) List(runID string) ([]Checkpoint, error) {
	prefix := runPrefix(runID)
	var out []Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var c Checkpoint
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			c.Model = nil
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list checkpoints of %s: %w", runID, err)
	}
	return out, nil
}

// Runs returns every run id with at least one checkpoint, sorted.
func (s *Store) Runs() ([]string, error) {
	var runs []string
	seen := map[string]bool{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			run, _, _ := strings.Cut(rest, "/")
			seen[run] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for run := range seen {
		runs = append(runs, run)
	}
	sort.Strings(runs)
	return runs, nil
}
