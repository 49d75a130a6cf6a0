package catalog

import (
	"context"
	"slices"
)

// Snapshot is an immutable view of the catalog at the moment an order is
// being composed. Records keep their source order.
type Snapshot struct {
	products []Product
	combos   []Combo

	productIdx map[int64]int
	comboIdx   map[int64]int
}

// NewSnapshot copies the given records into a Snapshot. Identifiers must be
// unique per kind.
func NewSnapshot(products []Product, combos []Combo) (*Snapshot, error) {
	s := &Snapshot{
		products:   make([]Product, len(products)),
		combos:     make([]Combo, len(combos)),
		productIdx: make(map[int64]int, len(products)),
		comboIdx:   make(map[int64]int, len(combos)),
	}

	copy(s.products, products)
	for i, p := range s.products {
		if _, ok := s.productIdx[p.ID]; ok {
			return nil, &DuplicateIDError{Kind: "product", ID: p.ID}
		}
		s.productIdx[p.ID] = i
	}

	for i, c := range combos {
		if _, ok := s.comboIdx[c.ID]; ok {
			return nil, &DuplicateIDError{Kind: "combo", ID: c.ID}
		}
		c.Constituents = slices.Clone(c.Constituents)
		s.combos[i] = c
		s.comboIdx[c.ID] = i
	}

	return s, nil
}

// Product returns the active product with the given id. Inactive and unknown
// products are both reported as not found.
func (s *Snapshot) Product(id int64) (Product, bool) {
	i, ok := s.productIdx[id]
	if !ok || !s.products[i].Active {
		return Product{}, false
	}
	return s.products[i], true
}

// Combo returns the active combo with the given id.
func (s *Snapshot) Combo(id int64) (Combo, bool) {
	i, ok := s.comboIdx[id]
	if !ok || !s.combos[i].Active {
		return Combo{}, false
	}
	c := s.combos[i]
	c.Constituents = slices.Clone(c.Constituents)
	return c, true
}

// Products returns the active products in catalog order.
func (s *Snapshot) Products() []Product {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// Combos returns the active combos in catalog order.
func (s *Snapshot) Combos() []Combo {
	out := make([]Combo, 0, len(s.combos))
	for _, c := range s.combos {
		if c.Active {
			c.Constituents = slices.Clone(c.Constituents)
			out = append(out, c)
		}
	}
	return out
}

// StaticSource serves a fixed snapshot.
type StaticSource struct {
	snap *Snapshot
}

// NewStaticSource returns a Source that always yields snap.
func NewStaticSource(snap *Snapshot) *StaticSource {
	return &StaticSource{snap: snap}
}

// Snapshot implements Source.
func (s *StaticSource) Snapshot(_ context.Context) (*Snapshot, error) {
	return s.snap, nil
}
