// Package experiment drives benchmark campaigns: it expands a condition file into a matrix of
// runs, launches them in random order with cold caches, and measures raw gzip costs.
package experiment

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sif/incbench/errors"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// Item is one group of conditions sharing an input pattern
type Item struct {
	InPattern  string
	Iterations []int
	NFiles     []int
	Cache      []bool
	Deferred   []bool
	Anonymous  bool
}

// Conditions is a parsed condition file
type Conditions struct {
	Name      string // used to name the results folder
	OutBucket string
	Items     []Item
}

// Experiment is a single benchmark run
type Experiment struct {
	Input      string
	Output     string
	Iterations int
	NFiles     int
	Cache      bool
	Deferred   bool
	Anonymous  bool
	BenchFile  string
}

// LoadConditions reads and parses a condition file. The file name without its extension
// becomes the Conditions name.
func LoadConditions(fs afero.Fs, path string) (*Conditions, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseConditions(name, data)
}

// ParseConditions parses a condition document of the form
// {"out_bucket": "...", "items": [{"in_bucket_rgx": "...", "iterations": [..], "n_files": [..],
// "cache": [..], "dask": [..], "anon": bool}]}. "cache" and "dask" default to [false].
func ParseConditions(name string, data []byte) (*Conditions, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.ConfigError{Option: "conditions", Reason: "not valid JSON"}
	}
	doc := gjson.ParseBytes(data)
	c := &Conditions{Name: name, OutBucket: doc.Get("out_bucket").String()}
	if c.OutBucket == "" {
		return nil, errors.ConfigError{Option: "out_bucket", Reason: "must not be empty"}
	}
	items := doc.Get("items")
	if !items.IsArray() || len(items.Array()) == 0 {
		return nil, errors.ConfigError{Option: "items", Reason: "must be a non-empty list"}
	}
	for i, raw := range items.Array() {
		item := Item{
			InPattern:  raw.Get("in_bucket_rgx").String(),
			Iterations: ints(raw.Get("iterations")),
			NFiles:     ints(raw.Get("n_files")),
			Cache:      bools(raw.Get("cache")),
			Deferred:   bools(raw.Get("dask")),
			Anonymous:  raw.Get("anon").Bool(),
		}
		if item.InPattern == "" {
			return nil, errors.ConfigError{Option: fmt.Sprintf("items[%d].in_bucket_rgx", i), Reason: "must not be empty"}
		}
		if len(item.Iterations) == 0 || len(item.NFiles) == 0 {
			return nil, errors.ConfigError{Option: fmt.Sprintf("items[%d]", i), Reason: "iterations and n_files must be non-empty lists"}
		}
		c.Items = append(c.Items, item)
	}
	return c, nil
}

func ints(r gjson.Result) []int {
	var out []int
	for _, v := range r.Array() {
		out = append(out, int(v.Int()))
	}
	return out
}

// bools reads a list of booleans, defaulting to [false] when the key is missing
func bools(r gjson.Result) []bool {
	if !r.Exists() {
		return []bool{false}
	}
	var out []bool
	for _, v := range r.Array() {
		out = append(out, v.Bool())
	}
	return out
}

// BenchFileName names the benchmark log of one run
func BenchFileName(pattern string, iterations, files int, cache, deferred bool) string {
	cacheName := "nocache"
	if cache {
		cacheName = "cache"
	}
	strategyName := "sequential"
	if deferred {
		strategyName = "dask"
	}
	return fmt.Sprintf("benchmark_%di_%df_%s_%s_%s.csv", iterations, files, cacheName, patternSegment(pattern), strategyName)
}

// patternSegment returns the second path segment of pattern, which is the bucket name for
// "s3://bucket/..." patterns
func patternSegment(pattern string) string {
	var parts []string
	for _, p := range strings.Split(pattern, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[1]
}

// Expand builds the experiment matrix: for every item, every combination of iterations,
// file count, cache and strategy
func (c *Conditions) Expand() []Experiment {
	var exps []Experiment
	for _, item := range c.Items {
		for _, it := range item.Iterations {
			for _, f := range item.NFiles {
				for _, cache := range item.Cache {
					for _, deferred := range item.Deferred {
						exps = append(exps, Experiment{
							Input:      item.InPattern,
							Output:     c.OutBucket,
							Iterations: it,
							NFiles:     f,
							Cache:      cache,
							Deferred:   deferred,
							Anonymous:  item.Anonymous,
							BenchFile:  BenchFileName(item.InPattern, it, f, cache, deferred),
						})
					}
				}
			}
		}
	}
	return exps
}

// UsesCache reports whether any experiment of c runs with the cache enabled
func (c *Conditions) UsesCache() bool {
	for _, item := range c.Items {
		for _, enabled := range item.Cache {
			if enabled {
				return true
			}
		}
	}
	return false
}

// Args returns the "run" subcommand arguments for e
func (e Experiment) Args() []string {
	args := []string{
		"run", e.Input, e.Output,
		"--it", strconv.Itoa(e.Iterations),
		"--n-files", strconv.Itoa(e.NFiles),
		"--bench-file", e.BenchFile,
	}
	if e.Cache {
		args = append(args, "--cache")
	}
	if e.Deferred {
		args = append(args, "--strategy", "deferred")
	}
	if e.Anonymous {
		args = append(args, "--anon")
	}
	return args
}
