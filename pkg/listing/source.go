// Package listing fetches the server's list payloads and maps them to ordered
// entries and table rows.
package listing

import (
	"fmt"
	"sort"
	"sync"
)

// Kind selects how payload values are interpreted.
type Kind string

const (
	KindDates      Kind = "dates"
	KindQuantities Kind = "quantities"
)

// Action is the per-row validate control of a list.
type Action struct {
	Label    string `json:"label" yaml:"label"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// Confirm is the alert text shown after a successful validation; %s
	// receives the row identifier.
	Confirm string `json:"confirm,omitempty" yaml:"confirm"`
}

// ConfirmText formats the success alert for id.
func (a Action) ConfirmText(id string) string {
	if a.Confirm == "" {
		return ""
	}
	return fmt.Sprintf(a.Confirm, id)
}

// Source describes one list endpoint.
type Source struct {
	Name      string   `json:"name" yaml:"name"`
	Endpoint  string   `json:"endpoint" yaml:"endpoint"`
	Key       string   `json:"key" yaml:"key"`
	Kind      Kind     `json:"kind" yaml:"kind"`
	Title     string   `json:"title,omitempty" yaml:"title"`
	Columns   []string `json:"columns" yaml:"columns"`
	EmptyText string   `json:"empty_text" yaml:"empty_text"`
	Action    *Action  `json:"action,omitempty" yaml:"action"`
}

// Validate checks that the source can be fetched.
func (s Source) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("listing: source name required")
	case s.Endpoint == "":
		return fmt.Errorf("listing: source %q: endpoint required", s.Name)
	case s.Key == "":
		return fmt.Errorf("listing: source %q: payload key required", s.Name)
	case s.Kind != KindDates && s.Kind != KindQuantities:
		return fmt.Errorf("listing: source %q: unknown kind %q", s.Name, s.Kind)
	}
	if s.Action != nil && s.Action.Endpoint == "" {
		return fmt.Errorf("listing: source %q: action endpoint required", s.Name)
	}
	return nil
}

// Built-in source names.
const (
	Dry                = "dry"
	CalvingPreparation = "calving_preparation"
	Calving            = "calving"
	Stock              = "stock"
)

// Builtins returns the lists served by the herd application.
func Builtins() []Source {
	return []Source{
		{
			Name:      Stock,
			Endpoint:  "/get_stock",
			Key:       "stock",
			Kind:      KindQuantities,
			Title:     "Stock pharmacie",
			Columns:   []string{"Médicament", "Quantité"},
			EmptyText: "Aucun stock disponible pour l'année en cours.",
		},
		{
			Name:      Dry,
			Endpoint:  "/show_dry",
			Key:       "dry",
			Kind:      KindDates,
			Title:     "Tarissements",
			Columns:   []string{"Vache", "Tarissement", "Action"},
			EmptyText: "Aucun tarissement à prévoir.",
			Action: &Action{
				Label:    "Valider",
				Endpoint: "/validate_dry",
				Confirm:  "Tarissement validé pour la vache %s",
			},
		},
		{
			Name:      CalvingPreparation,
			Endpoint:  "/show_calving_preparation",
			Key:       "calving_preparation",
			Kind:      KindDates,
			Title:     "Préparations vêlage",
			Columns:   []string{"Vache", "Préparation", "Action"},
			EmptyText: "Aucun prepa velage à prévoir.",
			Action: &Action{
				Label:    "Valider",
				Endpoint: "/validate_calving_preparation",
				Confirm:  "Préparation vêlage validée pour la vache %s",
			},
		},
		{
			Name:      Calving,
			Endpoint:  "/show_calving_date",
			Key:       "calving",
			Kind:      KindDates,
			Title:     "Vêlages",
			Columns:   []string{"Vache", "Vêlage"},
			EmptyText: "Aucun vêlage à prévoir.",
		},
	}
}

// Registry holds sources by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry registers sources, rejecting invalid or duplicated names.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, src := range sources {
		if err := r.Register(src); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds src.
func (r *Registry) Register(src Source) error {
	if err := src.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sources == nil {
		r.sources = make(map[string]Source)
	}
	if _, exists := r.sources[src.Name]; exists {
		return fmt.Errorf("listing: source %q already registered", src.Name)
	}
	r.sources[src.Name] = src
	return nil
}

// Get returns the source called name.
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

// Names lists registered sources alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
