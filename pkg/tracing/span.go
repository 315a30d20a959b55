// Package tracing times the stages of a request as a tree of spans carried
// in the context. A finished tree is logged as a single record.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/logger"
)

type contextKey struct{}

// Span is one timed stage. Children are appended by Start calls made with a
// context that carries the span.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []any
	children []*Span
}

// Start opens a span under the span held by ctx. Without a parent the span
// is a root and takes the request id of ctx as its trace id.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	} else {
		s.TraceID = logger.RequestID(ctx)
	}
	return context.WithValue(ctx, contextKey{}, s), s
}

// FromContext returns the innermost open span, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(contextKey{}).(*Span)
	return s
}

// End fixes the duration. Calling it again has no effect.
func (s *Span) End() {
	s.mu.Lock()
	if s.Duration == 0 {
		s.Duration = time.Since(s.Start)
	}
	s.mu.Unlock()
}

// SetAttr attaches a key/value pair. It is safe on a nil span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Children returns the direct child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log ends s and writes the tree at debug level as nested groups, one per
// span, each with its duration and attributes.
func (s *Span) Log(log *slog.Logger) {
	s.End()
	log.LogAttrs(context.Background(), slog.LevelDebug, "trace",
		slog.String("trace_id", s.TraceID),
		s.group(),
	)
}

func (s *Span) group() slog.Attr {
	s.mu.Lock()
	defer s.mu.Unlock()
	args := []any{slog.Float64("ms", float64(s.Duration.Microseconds())/1000)}
	args = append(args, s.attrs...)
	for _, c := range s.children {
		args = append(args, c.group())
	}
	return slog.Group(s.Name, args...)
}
