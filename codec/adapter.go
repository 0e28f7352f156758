package codec

import (
	"github.com/go-sif/incbench"
)

// Adapter applies a Codec only to compressed-suffix names. It holds no state between calls.
type Adapter struct {
	codec incbench.Codec
}

// NewAdapter wraps c. A nil c selects Gzip.
func NewAdapter(c incbench.Codec) *Adapter {
	if c == nil {
		c = Gzip{}
	}
	return &Adapter{codec: c}
}

// MaybeDecompress decompresses data iff name ends in the compressed suffix
func (a *Adapter) MaybeDecompress(data []byte, name string) ([]byte, error) {
	if !incbench.IsCompressedName(name) {
		return data, nil
	}
	return a.codec.Decompress(data)
}

// MaybeCompress compresses data at level iff name ends in the compressed suffix.
// The level is validated regardless of the name.
func (a *Adapter) MaybeCompress(data []byte, name string, level int) ([]byte, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	if !incbench.IsCompressedName(name) {
		return data, nil
	}
	return a.codec.Compress(data, level)
}

// Decompress decompresses data iff ref is tagged compressed
func (a *Adapter) Decompress(data []byte, ref incbench.ObjectRef) ([]byte, error) {
	if !ref.Compressed {
		return data, nil
	}
	return a.codec.Decompress(data)
}

// Compress compresses data at level iff ref is tagged compressed
func (a *Adapter) Compress(data []byte, ref incbench.ObjectRef, level int) ([]byte, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	if !ref.Compressed {
		return data, nil
	}
	return a.codec.Compress(data, level)
}
