package models

// NameNotFound is stored in SpeciesName when a profile page has no name heading.
const NameNotFound = "species name not found"

// SpeciesRecord holds the scraped data for a single species profile.
type SpeciesRecord struct {
	SpeciesName         string   `json:"species_name" yaml:"species_name"`
	SpeciesID           int      `json:"species_id" yaml:"species_id"`
	ProductsAndServices []string `json:"products_and_services" yaml:"products_and_services"`
	Nativity            string   `json:"nativity" yaml:"nativity"`
	NativeRange         []string `json:"native_range" yaml:"native_range"`
}

// NewSpeciesRecord returns a record with the list fields initialised so they
// serialise as empty lists rather than null.
func NewSpeciesRecord(id int) SpeciesRecord {
	return SpeciesRecord{
		SpeciesID:           id,
		ProductsAndServices: []string{},
		NativeRange:         []string{},
	}
}
