package model

import (
	_ "embed"
	"sync"
)

//go:embed aismm.yaml
var defaultYAML []byte

var loadDefault = sync.OnceValues(func() (*Model, error) {
	return Parse(defaultYAML)
})

// Default returns the embedded AISMM definition. It is parsed once and
// shared; callers must not mutate it.
func Default() (*Model, error) {
	return loadDefault()
}

// DefaultYAML returns the raw embedded model document.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}
