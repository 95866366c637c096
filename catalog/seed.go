package catalog

import (
	"bytes"
	_ "embed"

	"github.com/jacentio/syllabus/memstore"
	"github.com/jacentio/syllabus/schema"
)

//go:embed seed.yaml
var defaultSeed []byte

// DefaultSeed returns the built-in fallback dataset in memstore.SeedFile form.
func DefaultSeed() []byte {
	return append([]byte(nil), defaultSeed...)
}

// NewFallback returns a repository over reg seeded with the built-in dataset.
func NewFallback(reg *schema.Registry) (*memstore.Repository, error) {
	repo := memstore.New(reg)
	if err := repo.SeedYAML(bytes.NewReader(defaultSeed)); err != nil {
		return nil, err
	}
	return repo, nil
}
