package instrument

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-sif/incbench"
)

// Header is the first row of every benchmark log
const Header = "action,subjectPath,timestamp,processId,duration"

const (
	startSuffix = "_start"
	endSuffix   = "_end"
)

// TimingEvent is one instrumented stage boundary
type TimingEvent struct {
	Stage     incbench.StageName
	End       bool   // false for start events
	Subject   string // path of the iteration's input
	Timestamp int64  // unix nanoseconds
	PID       int
	Duration  time.Duration // zero, and not written, on start events
}

// Action returns the log action for this event, e.g. "read_start"
func (e TimingEvent) Action() string {
	if e.End {
		return string(e.Stage) + endSuffix
	}
	return string(e.Stage) + startSuffix
}

// CSV formats this event as a single log line, including the trailing newline
func (e TimingEvent) CSV() string {
	duration := ""
	if e.End {
		duration = formatSeconds(e.Duration)
	}
	return fmt.Sprintf("%s,%s,%d,%d,%s\n", e.Action(), e.Subject, e.Timestamp, e.PID, duration)
}

// Console formats this event for the tabular console fallback
func (e TimingEvent) Console() string {
	if e.End {
		return fmt.Sprintf("%s\t%s\t%d\t%d\t%s\n", e.Action(), e.Subject, e.Timestamp, e.PID, formatSeconds(e.Duration))
	}
	return fmt.Sprintf("%s\t%s\t%d\t%d\n", e.Action(), e.Subject, e.Timestamp, e.PID)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// ParseEvent parses a single log line. Subjects may contain commas; the action is the first
// field and the last three fields are always timestamp, pid and duration.
func ParseEvent(line string) (TimingEvent, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) < 5 {
		return TimingEvent{}, fmt.Errorf("malformed benchmark log line %q", line)
	}
	n := len(fields)
	action := fields[0]
	ev := TimingEvent{Subject: strings.Join(fields[1:n-3], ",")}
	switch {
	case strings.HasSuffix(action, endSuffix):
		ev.End = true
		ev.Stage = incbench.StageName(strings.TrimSuffix(action, endSuffix))
	case strings.HasSuffix(action, startSuffix):
		ev.Stage = incbench.StageName(strings.TrimSuffix(action, startSuffix))
	default:
		return TimingEvent{}, fmt.Errorf("unknown action %q", action)
	}
	ts, err := strconv.ParseInt(fields[n-3], 10, 64)
	if err != nil {
		return TimingEvent{}, fmt.Errorf("timestamp of %q: %w", line, err)
	}
	ev.Timestamp = ts
	pid, err := strconv.Atoi(fields[n-2])
	if err != nil {
		return TimingEvent{}, fmt.Errorf("pid of %q: %w", line, err)
	}
	ev.PID = pid
	if ev.End {
		secs, err := strconv.ParseFloat(fields[n-1], 64)
		if err != nil {
			return TimingEvent{}, fmt.Errorf("duration of %q: %w", line, err)
		}
		ev.Duration = time.Duration(secs * float64(time.Second))
	} else if fields[n-1] != "" {
		return TimingEvent{}, fmt.Errorf("start event %q carries a duration", line)
	}
	return ev, nil
}

// ReadLog parses a benchmark log, skipping its header
func ReadLog(r io.Reader) ([]TimingEvent, error) {
	var events []TimingEvent
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line == Header {
			continue
		}
		ev, err := ParseEvent(line)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}
