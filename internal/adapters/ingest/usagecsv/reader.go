package usagecsv

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"tally/internal/core/cleaning"
	perr "tally/internal/platform/errors"
)

// DefaultChunkSize is the number of data rows per chunk
const DefaultChunkSize = 500000

// ReasonMalformed prefixes the rejection reason of a line encoding/csv could not parse
const ReasonMalformed = "malformed line"

// StageRead is the rejection stage of malformed lines
const StageRead = "read"

// Options configures a Reader
type Options struct {
	// Delimiter separates fields; zero means ','
	Delimiter rune
	// Header skips the first line and takes the column names from it
	Header bool
	// Columns names the fields when Header is false
	Columns []string
	// ChunkSize is the number of rows per chunk; <=0 means DefaultChunkSize
	ChunkSize int
}

// Chunk is one slice of the file
type Chunk struct {
	// Index is 1-based
	Index int
	Batch cleaning.Batch
	// Malformed holds lines that could not be split into fields
	Malformed []cleaning.Rejected
}

// Reader yields chunks from a delimited file
type Reader struct {
	r       io.ReadCloser
	gz      *gzip.Reader
	cr      *csv.Reader
	opt     Options
	columns []string
	err     error

	// headerLines is subtracted from physical line numbers
	headerLines int

	line   int
	chunks int
	rows   int
	bad    int
}

// Open opens path and reads the header when configured. A .gz suffix selects gzip
func Open(path string, opt Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.IOf(err, "usagecsv: open %s", path)
	}
	return NewReader(f, strings.HasSuffix(strings.ToLower(path), ".gz"), opt)
}

// NewReader wraps r; the Reader owns r and closes it
func NewReader(r io.ReadCloser, gzipped bool, opt Options) (*Reader, error) {
	if opt.ChunkSize <= 0 {
		opt.ChunkSize = DefaultChunkSize
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	rd := &Reader{r: r, opt: opt}

	var src io.Reader = r
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = r.Close()
			return nil, perr.IOf(err, "usagecsv: gzip header")
		}
		rd.gz = gz
		src = gz
	}

	cr := csv.NewReader(src)
	cr.Comma = opt.Delimiter
	// width is the cleaner's concern, short rows fail the missing rule
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	rd.cr = cr

	if !opt.Header {
		if len(opt.Columns) == 0 {
			_ = rd.Close()
			return nil, perr.InvalidArgf("usagecsv: columns are required when the file has no header")
		}
		rd.columns = append([]string(nil), opt.Columns...)
		return rd, nil
	}

	h, err := cr.Read()
	if err != nil {
		_ = rd.Close()
		if errors.Is(err, io.EOF) {
			return nil, perr.InvalidArgf("usagecsv: empty file, no header")
		}
		return nil, perr.IOf(err, "usagecsv: read header")
	}
	rd.headerLines, _ = cr.FieldPos(len(h) - 1)
	rd.columns = make([]string, len(h))
	for i, c := range h {
		rd.columns[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	return rd, nil
}

// Columns returns the column names of every batch
func (rd *Reader) Columns() []string { return rd.columns }

// Next reads up to ChunkSize rows; it returns io.EOF once the file is drained.
// ctx is checked between rows so a signal stops a large chunk early
func (rd *Reader) Next(ctx context.Context) (Chunk, error) {
	if rd.err != nil {
		return Chunk{}, rd.err
	}
	ch := Chunk{Batch: cleaning.Batch{Columns: rd.columns}}
	for ch.Batch.Len()+len(ch.Malformed) < rd.opt.ChunkSize {
		if err := ctx.Err(); err != nil {
			rd.err = err
			return Chunk{}, err
		}
		rec, err := rd.cr.Read()
		if errors.Is(err, io.EOF) {
			rd.err = io.EOF
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				rd.err = perr.IOf(err, "usagecsv: read after line %d", rd.line)
				return Chunk{}, rd.err
			}
			rd.line = pe.StartLine - rd.headerLines
			rd.bad++
			ch.Malformed = append(ch.Malformed, cleaning.Rejected{
				Line:   rd.line,
				Raw:    toAny(rec),
				Reason: ReasonMalformed + ": " + pe.Err.Error(),
				Stage:  StageRead,
			})
			continue
		}
		// a quoted field may span lines, so count from where the record starts
		start, _ := rd.cr.FieldPos(0)
		rd.line = start - rd.headerLines
		rd.rows++
		ch.Batch.Rows = append(ch.Batch.Rows, cleaning.NewRow(rd.line, toAny(rec)))
	}
	if ch.Batch.Len() == 0 && len(ch.Malformed) == 0 {
		return Chunk{}, io.EOF
	}
	rd.chunks++
	ch.Index = rd.chunks
	return ch, nil
}

func toAny(rec []string) []any {
	out := make([]any, len(rec))
	for i, s := range rec {
		out[i] = s
	}
	return out
}

// Close closes the gzip stream then the underlying reader
func (rd *Reader) Close() error {
	var first error
	if rd.gz != nil {
		if err := rd.gz.Close(); err != nil {
			first = err
		}
	}
	if rd.r != nil {
		if err := rd.r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Stats returns chunks emitted, rows read and malformed lines so far
func (rd *Reader) Stats() (chunks, rows, malformed int) {
	return rd.chunks, rd.rows, rd.bad
}
