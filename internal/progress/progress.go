// Package progress persists extracted records to an append-only JSONL file.
// The file is both the durable output and the resume checkpoint: on open the
// store replays every line to rebuild the set of already-saved business
// names, so an interrupted run continues without duplicating prior output.
package progress

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/registry-extract/internal/model"
)

// Store is an append-only JSONL record store with in-memory dedup keys.
// It is not safe for concurrent use; the extraction engine is the only
// writer within a run.
type Store struct {
	path string
	out  *os.File
	seen map[string]struct{}
}

// Open replays the output file at path (if it exists) and opens it for
// appending. Malformed lines are logged and skipped; they never abort a
// resume.
func Open(path string) (*Store, error) {
	log := zap.L().With(zap.String("component", "progress"), zap.String("path", path))

	seen := make(map[string]struct{})
	skipped := 0

	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		// Fresh start.
	case err != nil:
		return nil, eris.Wrapf(err, "progress: open %s", path)
	default:
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var rec model.Record
			if err := json.Unmarshal(line, &rec); err != nil || rec.BusinessName == "" {
				skipped++
				log.Warn("skipping malformed output line", zap.Int("line", lineNo))
				continue
			}
			seen[rec.BusinessName] = struct{}{}
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return nil, eris.Wrapf(scanErr, "progress: scan %s", path)
		}
	}

	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "progress: open %s for append", path)
	}

	log.Info("progress loaded",
		zap.Int("records", len(seen)),
		zap.Int("skipped_lines", skipped),
	)

	return &Store{path: path, out: out, seen: seen}, nil
}

// Contains reports whether a record with the given business name has
// already been saved.
func (s *Store) Contains(name string) bool {
	_, ok := s.seen[name]
	return ok
}

// Count returns the number of distinct saved records.
func (s *Store) Count() int {
	return len(s.seen)
}

// Append writes rec as one JSONL line. Duplicates are a no-op returning
// (false, nil). The dedup key is added only after the write succeeds, so a
// failed append stays retryable later in the run or on the next run.
func (s *Store) Append(rec *model.Record) (bool, error) {
	if _, ok := s.seen[rec.BusinessName]; ok {
		return false, nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return false, eris.Wrapf(err, "progress: marshal %s", rec.BusinessName)
	}

	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return false, eris.Wrapf(err, "progress: append %s", rec.BusinessName)
	}
	if err := s.out.Sync(); err != nil {
		return false, eris.Wrapf(err, "progress: sync %s", rec.BusinessName)
	}

	s.seen[rec.BusinessName] = struct{}{}
	return true, nil
}

// Close closes the append handle.
func (s *Store) Close() error {
	return s.out.Close()
}
