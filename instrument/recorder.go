package instrument

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
	"github.com/go-sif/incbench/logging"
	"go.uber.org/zap"
)

// Sink describes where an event ended up
type Sink int

const (
	// SinkLog means the event was appended to the benchmark log
	SinkLog Sink = iota
	// SinkConsole means the event was printed to the console fallback
	SinkConsole
)

// String returns a textual representation of this Sink
func (s Sink) String() string {
	if s == SinkConsole {
		return "console"
	}
	return "log"
}

// Config configures a Recorder
type Config struct {
	Path    string      // benchmark log path. Empty means console only.
	Console io.Writer   // console fallback, defaults to os.Stdout
	Logger  *zap.Logger // for reporting fallbacks, defaults to a no-op logger
}

// Token identifies a started stage. It is passed back to RecordEnd.
type Token struct {
	Stage   incbench.StageName
	Subject string
	Started time.Time
	Sink    Sink // where the start event was written
}

// Recorder appends timing events to a benchmark log
type Recorder struct {
	path      string
	console   io.Writer
	logger    *zap.Logger
	pid       int
	now       func() time.Time
	writeLock sync.Mutex // serialises appends and console writes within this process
	fallback  sync.Once
	observers []func(TimingEvent)
	obsLock   sync.RWMutex
}

// SetupLog truncates the benchmark log and writes its header, returning a Recorder which appends
// to it. If the log cannot be created, a console header is printed instead and the Recorder runs in
// console fallback mode. SetupLog never fails.
func SetupLog(conf *Config) *Recorder {
	if conf == nil {
		conf = &Config{}
	}
	r := &Recorder{
		path:    conf.Path,
		console: conf.Console,
		logger:  logging.OrNop(conf.Logger),
		pid:     os.Getpid(),
		now:     time.Now,
	}
	if r.console == nil {
		r.console = os.Stdout
	}
	if r.path == "" {
		r.printConsoleHeader()
		return r
	}
	if err := os.WriteFile(r.path, []byte(Header+"\n"), 0644); err != nil {
		r.logger.Warn("unable to create benchmark log, falling back to console",
			zap.String("path", r.path), zap.Error(err))
		r.path = ""
		r.printConsoleHeader()
	}
	return r
}

func (r *Recorder) printConsoleHeader() {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	fmt.Fprintf(r.console, "Action\t\tSubject\t\t\t\tTimestamp\t\tPID\t\tDuration\n%s\n", strings.Repeat("-", 100))
}

// Path returns the benchmark log path, or "" in console fallback mode
func (r *Recorder) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Observe registers fn to receive every recorded event, whichever sink it reached.
// fn may be called concurrently.
func (r *Recorder) Observe(fn func(TimingEvent)) {
	r.obsLock.Lock()
	defer r.obsLock.Unlock()
	r.observers = append(r.observers, fn)
}

// RecordStart records the start of a stage for a subject path
func (r *Recorder) RecordStart(stage incbench.StageName, subject string) Token {
	if r == nil {
		return Token{Stage: stage, Subject: subject, Started: time.Now()}
	}
	started := r.now()
	tok := Token{
		Stage:   stage,
		Subject: subject,
		Started: started,
	}
	tok.Sink = r.emit(TimingEvent{
		Stage:     stage,
		Subject:   subject,
		Timestamp: started.UnixNano(),
		PID:       r.pid,
	})
	return tok
}

// RecordEnd records the end of the stage identified by tok. The duration is always non-negative.
func (r *Recorder) RecordEnd(tok Token) Sink {
	if r == nil {
		return SinkConsole
	}
	ended := r.now()
	duration := ended.Sub(tok.Started)
	if duration < 0 {
		duration = 0
	}
	return r.emit(TimingEvent{
		Stage:     tok.Stage,
		End:       true,
		Subject:   tok.Subject,
		Timestamp: ended.UnixNano(),
		PID:       r.pid,
		Duration:  duration,
	})
}

// emit writes ev to the log, falling back to the console if the append fails
func (r *Recorder) emit(ev TimingEvent) Sink {
	sink := SinkLog
	if err := r.appendEvent(ev); err != nil {
		r.fallback.Do(func() {
			r.logger.Warn("benchmark log unwritable, printing events to console", zap.Error(err))
		})
		r.printEvent(ev)
		sink = SinkConsole
	}
	r.obsLock.RLock()
	defer r.obsLock.RUnlock()
	for _, fn := range r.observers {
		fn(ev)
	}
	return sink
}

// appendEvent appends one line with a single write on an O_APPEND descriptor
func (r *Recorder) appendEvent(ev TimingEvent) error {
	if r.path == "" {
		return errors.InstrumentationError{Path: r.path, Err: fmt.Errorf("no benchmark log configured")}
	}
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.InstrumentationError{Path: r.path, Err: err}
	}
	if _, err = f.Write([]byte(ev.CSV())); err != nil {
		f.Close()
		return errors.InstrumentationError{Path: r.path, Err: err}
	}
	if err = f.Close(); err != nil {
		return errors.InstrumentationError{Path: r.path, Err: err}
	}
	return nil
}

// printEvent writes ev to the console. Console errors are ignored.
func (r *Recorder) printEvent(ev TimingEvent) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()
	_, _ = io.WriteString(r.console, ev.Console())
}
