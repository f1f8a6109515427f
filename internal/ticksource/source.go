package ticksource

import (
	"container/heap"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// Options bound and shape one replay pass.
type Options struct {
	Start  time.Time     // Logical start; zero means from the first tick
	End    time.Time     // Inclusive end; zero means to the last tick
	Warmup time.Duration // Ticks in [Start-Warmup, Start) are emitted with Warmup=true
}

// Stats counts what the source consumed and what it had to skip.
type Stats struct {
	RowsRead  int64
	Emitted   int64
	Malformed map[string]int64 // source tag -> skipped row count
}

// TotalMalformed sums skipped rows across all inputs.
func (s Stats) TotalMalformed() int64 {
	var n int64
	for _, c := range s.Malformed {
		n += c
	}
	return n
}

// Source is a finite, lazily merged tick stream. It is not restartable
// within a pass; construct a new Source for a fresh pass.
type Source struct {
	opts    Options
	readers []*logReader
	pending mergeHeap
	stats   Stats
	err     error
	closed  bool
}

// Open opens all input logs and primes the merge. A missing input file is
// a fatal error.
func Open(paths []string, opts Options) (*Source, error) {
	if len(paths) == 0 {
		return nil, errors.New("ticksource: no input logs")
	}

	s := &Source{
		opts:  opts,
		stats: Stats{Malformed: make(map[string]int64)},
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open quote log: %w", err)
		}
		s.readers = append(s.readers, newLogReader(f, sourceTag(path)))
	}

	// Prime the heap with each reader's first in-range tick.
	for i, r := range s.readers {
		if tick, ok := s.advance(r); ok {
			heap.Push(&s.pending, mergeItem{tick: tick, reader: i})
		}
	}

	return s, nil
}

// Next returns the next tick in global order. The second result is false
// when the stream is exhausted or a read error occurred; check Err.
func (s *Source) Next() (model.Tick, bool) {
	if s.err != nil || len(s.pending) == 0 {
		return model.Tick{}, false
	}

	item := heap.Pop(&s.pending).(mergeItem)
	if tick, ok := s.advance(s.readers[item.reader]); ok {
		heap.Push(&s.pending, mergeItem{tick: tick, reader: item.reader})
	}
	if s.err != nil {
		return model.Tick{}, false
	}

	s.stats.Emitted++
	return item.tick, true
}

// Err returns the first non-recoverable read error, if any.
func (s *Source) Err() error { return s.err }

// Stats returns skip and volume counters for the pass so far.
func (s *Source) Stats() Stats { return s.stats }

// Close releases all input files.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var first error
	for _, r := range s.readers {
		if err := r.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// advance pulls the reader's next row that parses and falls inside the
// replay window. Malformed rows are counted and skipped. Because input
// files are append-ordered, the reader is exhausted at the first row past
// the end bound.
func (s *Source) advance(r *logReader) (model.Tick, bool) {
	warmupStart := s.opts.Start.Add(-s.opts.Warmup)
	for {
		tick, err := r.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return model.Tick{}, false
			}
			var malformed *malformedRowError
			if errors.As(err, &malformed) {
				s.stats.RowsRead++
				s.stats.Malformed[r.tag]++
				continue
			}
			s.err = fmt.Errorf("read %s: %w", r.tag, err)
			return model.Tick{}, false
		}
		s.stats.RowsRead++

		if !s.opts.Start.IsZero() && tick.Time.Before(warmupStart) {
			continue
		}
		if !s.opts.End.IsZero() && tick.Time.After(s.opts.End) {
			return model.Tick{}, false
		}
		if !s.opts.Start.IsZero() && tick.Time.Before(s.opts.Start) {
			tick.Warmup = true
		}
		return tick, true
	}
}

// sourceTag derives the tag recorded on every tick from its file name.
func sourceTag(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// logReader wraps one CSV quote log.
type logReader struct {
	f      *os.File
	csv    *csv.Reader
	tag    string
	rowNum int64 // assigned sequence for rows without an explicit one
	first  bool
}

func newLogReader(f *os.File, tag string) *logReader {
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // rows are variable width
	cr.TrimLeadingSpace = true
	return &logReader{f: f, csv: cr, tag: tag, first: true}
}

func (r *logReader) next() (model.Tick, error) {
	for {
		record, err := r.csv.Read()
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return model.Tick{}, &malformedRowError{reason: err.Error()}
			}
			return model.Tick{}, err
		}

		// A header row is legal on the first line only and is not an error.
		if r.first {
			r.first = false
			if isHeader(record) {
				continue
			}
		}

		r.rowNum++
		tick, err := parseRow(record, r.tag, r.rowNum)
		if err != nil {
			return model.Tick{}, err
		}
		return tick, nil
	}
}

func (r *logReader) close() error { return r.f.Close() }
