package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/ncrsim/internal/reimbursement"
)

// ErrUnknownPreset is returned when a preset name is not in the book.
var ErrUnknownPreset = errors.New("unknown scenario preset")

// Preset is a named bundle of site-of-care defaults applied wholesale when
// the user switches scenario.
type Preset struct {
	Name            string
	DiscountPercent decimal.Decimal
	MarkupPercent   decimal.Decimal
	Mix             reimbursement.PayerMix
	Description     string
}

// Book is an ordered, read-only collection of presets.
type Book struct {
	presets []Preset
	byName  map[string]int
}

// NewBook validates presets and returns a book that keeps their order.
func NewBook(presets []Preset) (*Book, error) {
	if len(presets) == 0 {
		return nil, errors.New("preset book is empty")
	}

	b := &Book{
		presets: make([]Preset, 0, len(presets)),
		byName:  make(map[string]int, len(presets)),
	}
	for _, p := range presets {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, errors.New("preset name is required")
		}
		if _, dup := b.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		b.byName[p.Name] = len(b.presets)
		b.presets = append(b.presets, p)
	}
	return b, nil
}

// DefaultBook returns the built-in site-of-care presets.
func DefaultBook() *Book {
	b, err := NewBook(defaultPresets())
	if err != nil {
		panic(err)
	}
	return b
}

func defaultPresets() []Preset {
	return []Preset{
		{
			Name:            "Physician Office",
			DiscountPercent: decimal.Zero,
			MarkupPercent:   decimal.NewFromInt(10),
			Mix:             mix(40, 50, 10),
			Description:     "Standard ASP+6% reimbursement. WAC-based cost.",
		},
		{
			Name:            "Hospital Outpatient (Non-340B)",
			DiscountPercent: decimal.NewFromInt(5),
			MarkupPercent:   decimal.NewFromInt(50),
			Mix:             mix(50, 35, 15),
			Description:     "Higher commercial markups. Standard Medicare.",
		},
		{
			Name:            "340B Hospital",
			DiscountPercent: decimal.NewFromInt(25),
			MarkupPercent:   decimal.NewFromInt(50),
			Mix:             mix(50, 30, 20),
			Description:     "Deep acquisition cost discounts. High commercial markup.",
		},
		{
			Name:            "ASC",
			DiscountPercent: decimal.NewFromInt(2),
			MarkupPercent:   decimal.NewFromInt(20),
			Mix:             mix(45, 45, 10),
			Description:     "Moderate markup and discounts.",
		},
	}
}

func mix(medicare, commercial, medicaid int64) reimbursement.PayerMix {
	return reimbursement.PayerMix{
		Medicare:   decimal.NewFromInt(medicare),
		Commercial: decimal.NewFromInt(commercial),
		Medicaid:   decimal.NewFromInt(medicaid),
	}
}

// Names returns preset names in display order.
func (b *Book) Names() []string {
	names := make([]string, len(b.presets))
	for i, p := range b.presets {
		names[i] = p.Name
	}
	return names
}

// All returns a copy of the presets in display order.
func (b *Book) All() []Preset {
	return append([]Preset(nil), b.presets...)
}

// Get returns the preset with the given name.
func (b *Book) Get(name string) (Preset, error) {
	i, ok := b.byName[strings.TrimSpace(name)]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return b.presets[i], nil
}

// Default returns the first preset, which seeds the initial form.
func (b *Book) Default() Preset {
	return b.presets[0]
}

type presetFile struct {
	Presets []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	Name        string  `yaml:"name"`
	Discount    float64 `yaml:"discount"`
	Markup      float64 `yaml:"markup"`
	Description string  `yaml:"description"`
	Mix         struct {
		Medicare   float64 `yaml:"medicare"`
		Commercial float64 `yaml:"commercial"`
		Medicaid   float64 `yaml:"medicaid"`
	} `yaml:"mix"`
}

// LoadFile reads a YAML preset book, replacing the built-in presets.
func LoadFile(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	return parseBook(data)
}

func parseBook(data []byte) (*Book, error) {
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse preset file: %w", err)
	}

	presets := make([]Preset, 0, len(pf.Presets))
	for _, e := range pf.Presets {
		presets = append(presets, Preset{
			Name:            e.Name,
			DiscountPercent: decimal.NewFromFloat(e.Discount),
			MarkupPercent:   decimal.NewFromFloat(e.Markup),
			Mix: reimbursement.PayerMix{
				Medicare:   decimal.NewFromFloat(e.Mix.Medicare),
				Commercial: decimal.NewFromFloat(e.Mix.Commercial),
				Medicaid:   decimal.NewFromFloat(e.Mix.Medicaid),
			},
			Description: e.Description,
		})
	}
	return NewBook(presets)
}
