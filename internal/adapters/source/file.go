package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/jetrates/internal/domain/model"

	"github.com/parquet-go/parquet-go"
)

// FileSource streams events from a list of ntuple files, one file open at a
// time. It is not safe for concurrent use.
type FileSource struct {
	files      []string
	formats    []string
	format     string
	batchSize  int
	maxLineLen int

	total  int64
	pos    int64
	next   int
	cur    recordReader
	closed bool
}

var _ EventSource = (*FileSource)(nil)

// recordReader decodes the records of a single file.
type recordReader interface {
	read() (Record, error)
	close() error
}

// Open prepares a FileSource over files. Each file's format is resolved and
// its entries counted up front so TotalEntries is known before the scan.
// An empty list yields a source with zero entries.
func Open(ctx context.Context, files []string, opts ...Option) (*FileSource, error) {
	s := &FileSource{
		files:      append([]string(nil), files...),
		format:     FormatAuto,
		batchSize:  defaultBatchSize,
		maxLineLen: defaultMaxLineLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	switch s.format {
	case FormatAuto, FormatParquet, FormatNDJSON:
	default:
		return nil, &FormatError{Format: s.format, Path: "*"}
	}

	s.formats = make([]string, len(s.files))
	for i, path := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		format := s.format
		if format == FormatAuto {
			detected, err := DetectFormat(path)
			if err != nil {
				return nil, err
			}
			format = detected
		}
		s.formats[i] = format

		n, err := s.count(path, format)
		if err != nil {
			return nil, err
		}
		s.total += n
	}
	return s, nil
}

// TotalEntries implements EventSource.
func (s *FileSource) TotalEntries() int64 { return s.total }

// Files returns the files the source reads, in order.
func (s *FileSource) Files() []string { return append([]string(nil), s.files...) }

// Next implements EventSource.
func (s *FileSource) Next(ctx context.Context) (model.Event, error) {
	for {
		if s.closed {
			return model.Event{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return model.Event{}, err
		}
		if s.cur == nil {
			if s.next >= len(s.files) {
				return model.Event{}, io.EOF
			}
			r, err := s.open(s.files[s.next], s.formats[s.next])
			if err != nil {
				return model.Event{}, err
			}
			s.next++
			s.cur = r
		}

		rec, err := s.cur.read()
		if errors.Is(err, io.EOF) {
			closeErr := s.cur.close()
			s.cur = nil
			if closeErr != nil {
				return model.Event{}, closeErr
			}
			continue
		}
		if err != nil {
			return model.Event{}, err
		}

		ev := model.Event{Position: s.pos, JetEt: append([]float64(nil), rec.JetEt...)}
		s.pos++
		return ev, nil
	}
}

// Close implements EventSource. It is safe to call more than once.
func (s *FileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cur == nil {
		return nil
	}
	err := s.cur.close()
	s.cur = nil
	return err
}

func (s *FileSource) open(path, format string) (recordReader, error) {
	switch format {
	case FormatParquet:
		return openParquet(path, s.batchSize)
	case FormatNDJSON:
		return openNDJSON(path, s.maxLineLen)
	default:
		return nil, &FormatError{Path: path, Format: format}
	}
}

func (s *FileSource) count(path, format string) (int64, error) {
	switch format {
	case FormatParquet:
		f, pf, err := openParquetFile(path)
		if err != nil {
			return 0, err
		}
		n := pf.NumRows()
		_ = f.Close()
		return n, nil
	case FormatNDJSON:
		r, err := openNDJSON(path, s.maxLineLen)
		if err != nil {
			return 0, err
		}
		defer func() { _ = r.close() }()
		var n int64
		for r.scan() {
			n++
		}
		return n, r.err()
	default:
		return 0, &FormatError{Path: path, Format: format}
	}
}

func openParquetFile(path string) (*os.File, *parquet.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}
	return f, pf, nil
}

type parquetReader struct {
	path string
	f    *os.File
	r    *parquet.GenericReader[Record]
	buf  []Record
	n    int
	i    int
	eof  bool
}

func openParquet(path string, batchSize int) (*parquetReader, error) {
	f, pf, err := openParquetFile(path)
	if err != nil {
		return nil, err
	}
	return &parquetReader{
		path: path,
		f:    f,
		r:    parquet.NewGenericReader[Record](pf),
		buf:  make([]Record, batchSize),
	}, nil
}

func (p *parquetReader) read() (Record, error) {
	for p.i >= p.n {
		if p.eof {
			return Record{}, io.EOF
		}
		n, err := p.r.Read(p.buf)
		p.n, p.i = n, 0
		if errors.Is(err, io.EOF) {
			p.eof = true
		} else if err != nil {
			return Record{}, fmt.Errorf("error reading parquet rows from %s: %w", p.path, err)
		}
	}
	rec := p.buf[p.i]
	p.i++
	return rec, nil
}

func (p *parquetReader) close() error {
	rerr := p.r.Close()
	ferr := p.f.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}

type ndjsonReader struct {
	path string
	f    *os.File
	sc   *bufio.Scanner
	line int
}

func openNDJSON(path string, maxLineLen int) (*ndjsonReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	return &ndjsonReader{path: path, f: f, sc: sc}, nil
}

// scan advances to the next non-blank line.
func (r *ndjsonReader) scan() bool {
	for r.sc.Scan() {
		r.line++
		if len(bytes.TrimSpace(r.sc.Bytes())) > 0 {
			return true
		}
	}
	return false
}

func (r *ndjsonReader) err() error {
	if err := r.sc.Err(); err != nil {
		return fmt.Errorf("error reading %s: %w", r.path, err)
	}
	return nil
}

func (r *ndjsonReader) read() (Record, error) {
	if !r.scan() {
		if err := r.err(); err != nil {
			return Record{}, err
		}
		return Record{}, io.EOF
	}
	var rec Record
	if err := json.Unmarshal(r.sc.Bytes(), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %s:%d: %w", ErrMalformedRecord, r.path, r.line, err)
	}
	return rec, nil
}

func (r *ndjsonReader) close() error {
	return r.f.Close()
}
