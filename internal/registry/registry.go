/*
Package registry persists handler records in a single JSON file.

The file holds an ordered list of records under an "agents" key:

  {
    "agents": [
      {"id": "...", "name": "...", "description": "...", ...}
    ]
  }

Writes are whole-file overwrites done atomically (write to a temp file in
the same directory, then rename) so a crash mid-write never leaves a
half-written file that parses as valid data. Mutations are serialized with
an in-process mutex plus an advisory flock on a sibling .lock file.

A malformed or structurally invalid file is the one auto-recovered failure:
the bad content is quarantined to <path>.corrupt, the registry reinitializes
empty, and the repaired empty collection is persisted immediately. All other
I/O failures surface as *StorageError.
*/
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"agentforge/internal/agent"
)

// fileDocument is the on-disk schema. Unknown extra fields on records are
// tolerated on read; required fields are enforced via Record.Validate.
type fileDocument struct {
	Agents []agent.Record `json:"agents"`
}

// Stats aggregates registry contents for observability.
type Stats struct {
	Total      int                    `json:"total"`
	ByCategory map[agent.Category]int `json:"by_category"`
	Path       string                 `json:"path"`
}

// Registry is the durable handler store.
type Registry struct {
	path    string
	logger  *zap.Logger
	records []agent.Record
	now     func() time.Time
}

// Open loads the registry from path, creating an empty collection when the
// file is missing and recovering (with a quarantine) when it is corrupt.
func Open(path string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// load reads the persisted collection, applying the corruption-recovery
// policy. Only genuine I/O errors propagate.
func (r *Registry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.records = nil
			return nil
		}
		return &StorageError{Op: "load", Path: r.path, Err: err}
	}

	records, err := decodeRecords(data)
	if err != nil {
		r.logger.Warn("registry file corrupted, reinitializing",
			zap.String("path", r.path),
			zap.Error(err))
		if qerr := r.quarantine(); qerr != nil {
			r.logger.Warn("failed to quarantine corrupted registry file", zap.Error(qerr))
		}
		r.records = nil
		// Repair the on-disk state so the next load is clean.
		if serr := r.save(); serr != nil {
			return serr
		}
		return nil
	}

	r.records = records
	return nil
}

func decodeRecords(data []byte) ([]agent.Record, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed registry file: %w", err)
	}
	for _, rec := range doc.Agents {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record: %w", err)
		}
	}
	return doc.Agents, nil
}

// quarantine moves the unreadable file aside for forensic recovery instead
// of discarding it.
func (r *Registry) quarantine() error {
	return os.Rename(r.path, r.path+".corrupt")
}

// save writes the full collection back atomically.
func (r *Registry) save() error {
	doc := fileDocument{Agents: r.records}
	if doc.Agents == nil {
		doc.Agents = []agent.Record{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}
	return nil
}

// Add assigns the record's place in the collection and persists immediately.
// The record should come from agent.New with a fresh id.
func (r *Registry) Add(rec agent.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to add invalid record: %w", err)
	}
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	r.records = append(r.records, rec)
	if err := r.save(); err != nil {
		// Roll back the in-memory append so memory matches disk.
		r.records = r.records[:len(r.records)-1]
		return err
	}
	r.logger.Info("handler record created",
		zap.String("id", rec.ID),
		zap.String("name", rec.Name),
		zap.String("category", string(rec.Category)))
	return nil
}

// Touch refreshes last_used_at and increments use_count for the record with
// the given id, persisting immediately. Returns ErrNotFound for unknown ids.
func (r *Registry) Touch(id string) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for i := range r.records {
		if r.records[i].ID != id {
			continue
		}
		prev := r.records[i]
		r.records[i].UseCount++
		r.records[i].LastUsedAt = r.now()
		if err := r.save(); err != nil {
			r.records[i] = prev
			return err
		}
		r.logger.Debug("handler record touched",
			zap.String("id", id),
			zap.Int("use_count", r.records[i].UseCount))
		return nil
	}
	return fmt.Errorf("touch %s: %w", id, ErrNotFound)
}

// All returns the full ordered collection as a defensive copy.
func (r *Registry) All() []agent.Record {
	out := make([]agent.Record, len(r.records))
	copy(out, r.records)
	return out
}

// Get returns the record with the given id.
func (r *Registry) Get(id string) (agent.Record, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return agent.Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
}

// Stats returns aggregate counts for observability.
func (r *Registry) Stats() Stats {
	stats := Stats{
		Total:      len(r.records),
		ByCategory: make(map[agent.Category]int),
		Path:       r.path,
	}
	for _, rec := range r.records {
		stats.ByCategory[rec.Category]++
	}
	return stats
}

// lock serializes the read-modify-write cycle. The registry format is a
// whole-file overwrite, not an append log, so concurrent writers would race
// and lose updates without this. The advisory flock also guards against a
// second process mutating the same file.
func (r *Registry) lock() (func(), error) {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	lockFile, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, &StorageError{Op: "lock", Path: r.path, Err: err}
	}
	return func() {
		if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_UN); err != nil && !errors.Is(err, os.ErrClosed) {
			r.logger.Warn("failed to release registry lock", zap.Error(err))
		}
		lockFile.Close()
	}, nil
}
