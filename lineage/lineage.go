// Package lineage derives deterministic artifact names for chained iterations.
//
// Iteration 0 of a chain prefixes the source basename with "inc_0_". Every later iteration
// replaces the previous "inc_<j>_" prefix with its own, so names record their position in the
// chain without growing.
package lineage

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/errors"
)

const (
	prefix    = "inc"
	separator = "_"
)

// NextName returns the output path for iteration index of a chain whose current input is
// baseSource, placed in bucket. bucket keeps its scheme prefix.
func NextName(bucket string, baseSource string, index int) (string, error) {
	if index < 0 {
		return "", errors.ConfigError{Option: "iteration index", Reason: fmt.Sprintf("%d is negative", index)}
	}
	base := path.Base(incbench.TrimScheme(baseSource))
	rest := base
	if index > 0 {
		var err error
		if rest, err = stripLineage(base); err != nil {
			return "", err
		}
	}
	return join(bucket, fmt.Sprintf("%s%s%d%s%s", prefix, separator, index, separator, rest)), nil
}

// stripLineage removes the first two "_"-delimited tokens of base
func stripLineage(base string) (string, error) {
	tokens := strings.SplitN(base, separator, 3)
	if len(tokens) < 3 || tokens[2] == "" {
		return "", errors.LineageError{Name: base}
	}
	return tokens[2], nil
}

// join places name inside bucket without disturbing a scheme prefix
func join(bucket string, name string) string {
	scheme := incbench.SchemePrefix(bucket)
	dir := strings.TrimRight(incbench.TrimScheme(bucket), "/")
	if dir == "" {
		return scheme + name
	}
	return scheme + dir + "/" + name
}
