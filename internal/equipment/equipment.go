// Package equipment resolves panel and inverter ids against the user's saved
// equipment first and the built-in catalog second.
package equipment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/engine"
	"github.com/awaistahir/pvsizer/internal/store"
)

// ErrNotFound is returned when neither source knows an id
var ErrNotFound = errors.New("equipment not found")

// Source names where a piece of equipment came from
type Source string

const (
	SourceUser    Source = "user"
	SourceCatalog Source = "catalog"
)

// Panel is a resolved panel with its id and origin
type Panel struct {
	ID     string           `json:"id"`
	Source Source           `json:"source"`
	Spec   engine.PanelSpec `json:"spec"`
}

// Inverter is a resolved inverter with its id and origin
type Inverter struct {
	ID     string              `json:"id"`
	Source Source              `json:"source"`
	Spec   engine.InverterSpec `json:"spec"`
}

// Resolver looks equipment up in a store and a catalog. Either may be nil.
type Resolver struct {
	Store   *store.Store
	Catalog *catalog.Catalog
}

// Panel resolves a panel id. User entries shadow catalog entries with the same id.
func (r Resolver) Panel(id string) (engine.PanelSpec, error) {
	if r.Store != nil {
		p, err := r.Store.GetPanel(id)
		if err == nil {
			return p.Spec, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return engine.PanelSpec{}, err
		}
	}
	if r.Catalog != nil {
		p, err := r.Catalog.Panel(id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return engine.PanelSpec{}, err
		}
	}
	return engine.PanelSpec{}, fmt.Errorf("panel %q: %w", id, ErrNotFound)
}

// Inverter resolves an inverter id. User entries shadow catalog entries with the same id.
func (r Resolver) Inverter(id string) (engine.InverterSpec, error) {
	if r.Store != nil {
		inv, err := r.Store.GetInverter(id)
		if err == nil {
			return inv.Spec, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return engine.InverterSpec{}, err
		}
	}
	if r.Catalog != nil {
		inv, err := r.Catalog.Inverter(id)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			return engine.InverterSpec{}, err
		}
	}
	return engine.InverterSpec{}, fmt.Errorf("inverter %q: %w", id, ErrNotFound)
}

// Panels lists every known panel sorted by id
func (r Resolver) Panels() ([]Panel, error) {
	byID := make(map[string]Panel)
	if r.Catalog != nil {
		for _, id := range r.Catalog.PanelIDs() {
			spec, _ := r.Catalog.Panel(id)
			byID[id] = Panel{ID: id, Source: SourceCatalog, Spec: spec}
		}
	}
	if r.Store != nil {
		entries, err := r.Store.GetPanels()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			byID[e.ID] = Panel{ID: e.ID, Source: SourceUser, Spec: e.Spec}
		}
	}

	out := make([]Panel, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Inverters lists every known inverter sorted by id
func (r Resolver) Inverters() ([]Inverter, error) {
	byID := make(map[string]Inverter)
	if r.Catalog != nil {
		for _, id := range r.Catalog.InverterIDs() {
			spec, _ := r.Catalog.Inverter(id)
			byID[id] = Inverter{ID: id, Source: SourceCatalog, Spec: spec}
		}
	}
	if r.Store != nil {
		entries, err := r.Store.GetInverters()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			byID[e.ID] = Inverter{ID: e.ID, Source: SourceUser, Spec: e.Spec}
		}
	}

	out := make([]Inverter, 0, len(byID))
	for _, inv := range byID {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
