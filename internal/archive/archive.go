// Package archive persists snapshots of deleted amendments to an append-only
// JSON array on disk. The file is the audit trail for everything removed from
// the amendments table, so appends must never lose earlier entries.
package archive

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"
)

// Entry is one archived amendment snapshot.
type Entry struct {
	ID            int64     `json:"id"`
	AmendmentText string    `json:"amendment_text"`
	Country       string    `json:"country"`
	Committee     string    `json:"committee"`
	Timestamp     time.Time `json:"timestamp"`
}

// Log appends entries to a JSON array file. The file format is a plain array
// so it stays readable by hand and by the original tooling; since appending
// therefore requires a read-modify-write cycle, all writes are serialized by
// a mutex. Log is safe for concurrent use within one process.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog returns a Log backed by the file at path. The file is created on
// first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path.
func (l *Log) Path() string { return l.path }

// Append adds entries to the archive file, preserving everything already
// there. The write goes through a temp file and rename so a crash mid-write
// cannot truncate the archive.
func (l *Log) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.readLocked()
	if err != nil {
		return err
	}
	existing = append(existing, entries...)

	data, err := json.MarshalIndent(existing, "", "    ")
	if err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// Read returns every archived entry, oldest first. A missing file reads as an
// empty archive.
func (l *Log) Read() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked()
}

func (l *Log) readLocked() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []Entry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
