package incbench

// Transform is the opaque payload transformation applied once per iteration of a chain
type Transform interface {
	Apply(data []byte) ([]byte, error)
}

// TransformFunc adapts an ordinary function to a Transform
type TransformFunc func(data []byte) ([]byte, error)

// Apply calls fn(data)
func (fn TransformFunc) Apply(data []byte) ([]byte, error) {
	return fn(data)
}

// Codec is an opaque compression capability
type Codec interface {
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
