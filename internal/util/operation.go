package util

import (
	"fmt"

	"github.com/go-sif/incbench"
)

// SafeTransform wraps a Transform such that panics are recovered and nice error messages are constructed
func SafeTransform(t incbench.Transform) incbench.Transform {
	return incbench.TransformFunc(func(data []byte) (out []byte, err error) {
		defer func() {
			if r := recover(); r != nil {
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Transform Panic: %w\nPayload: %d bytes\n%s", anErr, len(data), GetTrace())
				} else {
					err = fmt.Errorf("Transform Panic: %v\nPayload: %d bytes\n%s", r, len(data), GetTrace())
				}
			}
		}()
		out, err = t.Apply(data)
		return
	})
}

// SafeRun calls fn, converting a panic into an error
func SafeRun(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("%s Panic: %w\n%s", name, anErr, GetTrace())
			} else {
				err = fmt.Errorf("%s Panic: %v\n%s", name, r, GetTrace())
			}
		}
	}()
	return fn()
}
