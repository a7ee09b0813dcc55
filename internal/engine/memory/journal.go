package memory

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"vectorhub/internal/engine"
	"vectorhub/internal/wal"
	"vectorhub/pkg/logger"
)

// JournalFile is the log name inside Options.Dir.
const JournalFile = "memory.wal"

// Journal record keys
const (
	opCreate = "create"
	opDrop   = "drop"
	opIndex  = "index"
	opInsert = "insert"
)

type journalEntry struct {
	Collection string            `json:"collection"`
	Schema     *engine.Schema    `json:"schema,omitempty"`
	Index      *engine.IndexSpec `json:"index,omitempty"`
	Records    []engine.Record   `json:"records,omitempty"`
}

// replayLocked rebuilds the collections from the journal in dir and opens
// it for appending. Caller holds mu.
func (e *Engine) replayLocked(dir string) error {
	path := filepath.Join(dir, JournalFile)
	e.collections = make(map[string]*collection)

	n, err := wal.Replay(path, func(key, value []byte) error {
		var entry journalEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return err
		}
		return e.applyLocked(string(key), entry)
	})
	if err != nil {
		return err
	}

	w, err := wal.NewWriter(path, e.opts.Sync)
	if err != nil {
		return err
	}
	e.journal = w
	logger.Debug("memory engine journal replayed", "path", path, "records", n, "collections", len(e.collections))
	return nil
}

// record appends a mutation to the journal; a no-op without one.
func (e *Engine) record(op string, entry journalEntry) error {
	if e.journal == nil {
		return nil
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return e.journal.Write([]byte(op), value)
}

func (e *Engine) applyLocked(op string, entry journalEntry) error {
	switch op {
	case opCreate:
		if entry.Schema == nil {
			return fmt.Errorf("create %s: missing schema", entry.Collection)
		}
		c, err := newCollection(*entry.Schema)
		if err != nil {
			return err
		}
		e.collections[entry.Collection] = c
	case opDrop:
		delete(e.collections, entry.Collection)
	case opIndex:
		c, ok := e.collections[entry.Collection]
		if !ok || entry.Index == nil {
			return fmt.Errorf("index %s: unknown collection", entry.Collection)
		}
		return c.buildIndex(*entry.Index, e.opts.NProbe)
	case opInsert:
		c, ok := e.collections[entry.Collection]
		if !ok {
			return fmt.Errorf("insert %s: unknown collection", entry.Collection)
		}
		return c.insert(entry.Records)
	default:
		return fmt.Errorf("unknown journal op %q", op)
	}
	return nil
}
