package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newLog(t *testing.T) *Log {
	t.Helper()
	return NewLog(filepath.Join(t.TempDir(), "archived_amendments.json"))
}

func entry(id int64) Entry {
	return Entry{
		ID:            id,
		AmendmentText: fmt.Sprintf("amendment %d", id),
		Country:       "Testland",
		Committee:     "junior",
		Timestamp:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLog_MissingFileReadsEmpty(t *testing.T) {
	l := newLog(t)
	entries, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty archive, got %d entries", len(entries))
	}
}

func TestLog_AppendPreservesEarlierEntries(t *testing.T) {
	l := newLog(t)

	if err := l.Append(entry(1), entry(2)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := l.Append(entry(3)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	entries, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ID != int64(i+1) {
			t.Fatalf("entry %d out of order: %+v", i, e)
		}
	}
	if entries[0].AmendmentText != "amendment 1" || entries[0].Country != "Testland" {
		t.Fatalf("fields lost on round trip: %+v", entries[0])
	}
}

func TestLog_AppendNothingIsANoOp(t *testing.T) {
	l := newLog(t)
	if err := l.Append(); err != nil {
		t.Fatalf("empty append: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Fatalf("empty append must not create the file")
	}
}

func TestLog_FileIsAPlainJSONArray(t *testing.T) {
	l := newLog(t)
	if err := l.Append(entry(1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("archive file must be a JSON array: %v", err)
	}
	if len(raw) != 1 || raw[0]["amendment_text"] != "amendment 1" {
		t.Fatalf("unexpected file shape: %s", data)
	}
}

func TestLog_ConcurrentAppendsLoseNothing(t *testing.T) {
	l := newLog(t)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := l.Append(entry(id)); err != nil {
				t.Errorf("append %d: %v", id, err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	entries, err := l.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(entries))
	}
	seen := make(map[int64]bool, writers)
	for _, e := range entries {
		seen[e.ID] = true
	}
	if len(seen) != writers {
		t.Fatalf("duplicate or missing entries: %+v", entries)
	}
}
