// Package instrument records stage timings for a benchmark run. Every event is appended to a
// CSV log with a single O_APPEND write, so concurrent writers in one or many processes never
// truncate each other. When the log cannot be written, events are printed to the console instead;
// instrumentation never aborts a benchmark.
package instrument
