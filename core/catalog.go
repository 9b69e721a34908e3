package core

import (
	"fmt"
	"strings"
)

// Catalog is the read-only resource table. It is safe for concurrent use
// because nothing mutates it after NewCatalog returns.
type Catalog struct {
	records map[string]ResourceRecord
}

func NewCatalog(records []ResourceRecord) (*Catalog, error) {
	m := make(map[string]ResourceRecord, len(records))
	for _, r := range records {
		if r.ResourceID == "" {
			return nil, fmt.Errorf("catalog: resource with empty id")
		}
		if r.DeliveryTarget == "" {
			return nil, fmt.Errorf("catalog: resource %q has no target", r.ResourceID)
		}
		if r.PriceCents < 0 {
			return nil, fmt.Errorf("catalog: resource %q has a negative price", r.ResourceID)
		}
		r.Currency = strings.ToLower(r.Currency)
		if r.PriceCents > 0 && r.Currency == "" {
			return nil, fmt.Errorf("catalog: resource %q has a price but no currency", r.ResourceID)
		}
		if _, dup := m[r.ResourceID]; dup {
			return nil, fmt.Errorf("catalog: duplicate resource %q", r.ResourceID)
		}
		m[r.ResourceID] = r
	}
	return &Catalog{records: m}, nil
}

// DefaultCatalog holds the products sold before a catalog file existed.
func DefaultCatalog() []ResourceRecord {
	return []ResourceRecord{
		{
			ResourceID:     "hist_caie_s1",
			Title:          "CAIE History notes, set 1",
			DeliveryTarget: "https://mega.nz/folder/2r5glDrR#cycQCqlkTfCh6w-Ad614_w",
			PriceCents:     2499,
			Currency:       "usd",
		},
	}
}

func (c *Catalog) Lookup(id string) (ResourceRecord, bool) {
	r, ok := c.records[id]
	return r, ok
}

func (c *Catalog) Len() int {
	return len(c.records)
}
