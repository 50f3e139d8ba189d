package pg

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"tally/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent is one traced statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives an event per statement executed through the store adapter
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// maxLoggedArgs caps how many bind args are logged; unnest batches carry whole chunks
const maxLoggedArgs = 16

// Tracer returns a tracer that always prints SQL when SERVICE_PGSQL_LOG_SQL is on,
// independent of the process-wide root level
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	evt := z.log.Debug()
	switch {
	case ev.Err != nil:
		evt = z.log.Error()
	case ev.Slow:
		evt = z.log.Warn()
	}
	if id := logger.RunID(ctx); id != "" {
		evt = evt.Str("run_id", id)
	}

	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", clipArgs(ev.Args)).
		Err(ev.Err).
		Msg("pg query")
}

// compact folds every whitespace run to a single space
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clipArgs keeps array binds from flooding the log: slices are replaced by their length
func clipArgs(v any) any {
	args, ok := v.([]any)
	if !ok {
		return v
	}
	n := min(len(args), maxLoggedArgs)
	out := make([]any, 0, n)
	for _, a := range args[:n] {
		if rv := reflect.ValueOf(a); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			out = append(out, fmt.Sprintf("[%d items]", rv.Len()))
			continue
		}
		out = append(out, a)
	}
	return out
}
