package memstore

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jacentio/syllabus/schema"
)

// SeedFile is the on-disk form of a fallback dataset. Entities and records
// are seeded in file order.
//
//	seeds:
//	  - entity: Customer
//	    records:
//	      - {id: cu-1, name: Acme, region: emea}
type SeedFile struct {
	Seeds []EntitySeed `yaml:"seeds"`
}

// EntitySeed holds the records of one entity.
type EntitySeed struct {
	Entity  string           `yaml:"entity"`
	Records []yaml.Node `yaml:"records"`
}

// SeedYAML decodes a SeedFile from in and seeds every record.
func (r *Repository) SeedYAML(in io.Reader) error {
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)

	var f SeedFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, s := range f.Seeds {
		records := make([]any, len(s.Records))
		for i := range s.Records {
			rec, err := schema.NodeValue(&s.Records[i])
			if err != nil {
				return fmt.Errorf("decode seed %s: %w", s.Entity, err)
			}
			records[i] = rec
		}
		if err := r.SeedRecords(s.Entity, records...); err != nil {
			return err
		}
	}
	return nil
}
