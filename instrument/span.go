package instrument

import (
	"sync"

	"github.com/go-sif/incbench"
)

// Span is a started stage which records its end exactly once
type Span struct {
	r    *Recorder
	tok  Token
	once sync.Once
	sink Sink
}

// Span records the start of a stage and returns a Span whose End records its end.
// Callers should defer End immediately.
func (r *Recorder) Span(stage incbench.StageName, subject string) *Span {
	return &Span{r: r, tok: r.RecordStart(stage, subject)}
}

// Token returns the token of the started stage
func (s *Span) Token() Token {
	return s.tok
}

// End records the end of the span. Subsequent calls do nothing and return the first result.
func (s *Span) End() Sink {
	s.once.Do(func() {
		s.sink = s.r.RecordEnd(s.tok)
	})
	return s.sink
}

// Time runs fn bracketed by start and end events for stage. The end event is recorded on
// every exit path, including a panic in fn.
func (r *Recorder) Time(stage incbench.StageName, subject string, fn func() error) error {
	span := r.Span(stage, subject)
	defer span.End()
	return fn()
}
