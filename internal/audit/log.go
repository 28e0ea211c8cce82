package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/drivewatch/internal/model"
)

// GenesisHash is the prev_hash for the first entry in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Outcome is the gate's decision for one selected action.
type Outcome struct {
	Action   model.Action
	Decision string
	Reason   string
}

// Run is one arbitration pass. Outcomes are in selection order and are
// written with seq 0..n-1.
type Run struct {
	ID         string
	Event      string
	ConfigHash string
	At         time.Time
	Outcomes   []Outcome
}

// Log appends arbitration decisions to a JSONL file. Each line's
// prev_hash is the SHA-256 of the line before it, and seq only grows
// within a run.
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File

	prevHash string
	lastRun  string
	lastSeq  int
}

// Open opens path for appending, creating it and its directory when
// missing. An existing log's last line seeds the chain tail and the
// current run's seq.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	l := &Log{path: path, prevHash: GenesisHash}
	last, err := lastLine(path)
	if err != nil {
		return nil, err
	}
	if len(last) > 0 {
		l.prevHash = HashLine(last)
		var tail AuditEntry
		if json.Unmarshal(last, &tail) == nil {
			l.lastRun, l.lastSeq = tail.RunID, tail.Seq
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	l.file = file
	return l, nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var last []byte
	scanner := newScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			last = append(last[:0], scanner.Bytes()...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}

// RecordRun writes one entry per outcome and syncs once. Nothing is
// written when any outcome fails Check.
func (l *Log) RecordRun(r Run) error {
	if len(r.Outcomes) == 0 {
		return nil
	}
	ts := r.At
	if ts.IsZero() {
		ts = time.Now()
	}
	entries := make([]AuditEntry, len(r.Outcomes))
	for i, o := range r.Outcomes {
		entries[i] = AuditEntry{
			Timestamp:  ts.UTC().Format(TimestampFormat),
			RunID:      r.ID,
			Event:      r.Event,
			Seq:        i,
			Action:     o.Action,
			Decision:   o.Decision,
			Reason:     o.Reason,
			ConfigHash: r.ConfigHash,
		}
		if err := entries[i].Check(); err != nil {
			return fmt.Errorf("audit: run %s seq %d: %w", r.ID, i, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if r.ID == l.lastRun {
		return fmt.Errorf("audit: run %s already recorded", r.ID)
	}
	for _, e := range entries {
		if err := l.append(e); err != nil {
			return err
		}
	}
	return l.sync()
}

// Record appends a single entry. Its seq must exceed the previous seq
// when it continues the same run.
func (l *Log) Record(entry AuditEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	if err := entry.Check(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.RunID == l.lastRun && entry.Seq <= l.lastSeq {
		return fmt.Errorf("audit: run %s seq %d after seq %d", entry.RunID, entry.Seq, l.lastSeq)
	}
	if err := l.append(entry); err != nil {
		return err
	}
	return l.sync()
}

// append chains and writes e. Callers hold mu.
func (l *Log) append(e AuditEntry) error {
	e.PrevHash = l.prevHash
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	l.prevHash = HashLine(line)
	l.lastRun, l.lastSeq = e.RunID, e.Seq
	return nil
}

func (l *Log) sync() error {
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	return nil
}

// Path returns the file the log appends to.
func (l *Log) Path() string { return l.path }

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of line.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

func newScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return scanner
}
