package usagecsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"tally/internal/core/cleaning"
	perr "tally/internal/platform/errors"
)

// RejectsWriter exports rejected rows, one file per chunk
type RejectsWriter struct {
	Dir     string
	Stamp   string
	Columns []string
	// Delimiter of the export; zero means ','
	Delimiter rune
}

// Path returns the export path of chunk
func (w RejectsWriter) Path(chunk int) string {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("df_errors_%s_%d.csv", w.Stamp, chunk))
}

// Write exports rejected as line, the input columns, reason. It returns the file
// path, or "" when there is nothing to write
func (w RejectsWriter) Write(chunk int, rejected []cleaning.Rejected) (string, error) {
	if len(rejected) == 0 {
		return "", nil
	}
	path := w.Path(chunk)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", perr.IOf(err, "usagecsv: create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", perr.IOf(err, "usagecsv: create %s", path)
	}

	cw := csv.NewWriter(f)
	if w.Delimiter != 0 {
		cw.Comma = w.Delimiter
	}
	header := make([]string, 0, len(w.Columns)+2)
	header = append(header, "line")
	header = append(header, w.Columns...)
	header = append(header, "reason")
	_ = cw.Write(header)

	rec := make([]string, len(header))
	for _, r := range rejected {
		rec[0] = strconv.Itoa(r.Line)
		for i := range w.Columns {
			rec[i+1] = ""
			if i < len(r.Raw) {
				rec[i+1] = cell(r.Raw[i])
			}
		}
		rec[len(rec)-1] = r.Reason
		_ = cw.Write(rec)
	}
	cw.Flush()
	werr := cw.Error()
	cerr := f.Close()
	if werr != nil {
		return "", perr.IOf(werr, "usagecsv: write %s", path)
	}
	if cerr != nil {
		return "", perr.IOf(cerr, "usagecsv: close %s", path)
	}
	return path, nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
