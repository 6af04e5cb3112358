package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product matches a billing code.
var ErrNotFound = errors.New("product not found")

// Product is a drug record keyed by its HCPCS billing code.
type Product struct {
	Code    string          `json:"code"`
	Brand   string          `json:"brand"`
	Generic string          `json:"generic"`
	Dosage  string          `json:"dosage"`
	WAC     decimal.Decimal `json:"wac"`
}

// Resolver looks up products by billing code.
type Resolver interface {
	ResolveByCode(ctx context.Context, code string) (Product, error)
}

// NormalizeCode trims whitespace and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StaticResolver serves products from an in-memory table.
type StaticResolver struct {
	products map[string]Product
}

// NewStaticResolver builds a resolver over the given products.
func NewStaticResolver(products []Product) *StaticResolver {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		p.Code = NormalizeCode(p.Code)
		m[p.Code] = p
	}
	return &StaticResolver{products: m}
}

// DefaultProducts returns the built-in demo table.
func DefaultProducts() []Product {
	return []Product{
		{Code: "J1453", Brand: "VARUBI", Generic: "Fosaprepitant", Dosage: "150 mg", WAC: decimal.RequireFromString("285.00")},
		{Code: "J9355", Brand: "HERCEPTIN", Generic: "Trastuzumab", Dosage: "150 mg vial", WAC: decimal.RequireFromString("1500.00")},
		{Code: "J0897", Brand: "XGEVA", Generic: "Denosumab", Dosage: "120 mg", WAC: decimal.RequireFromString("2500.00")},
		{Code: "J9035", Brand: "AVASTIN", Generic: "Bevacizumab", Dosage: "10 mg", WAC: decimal.RequireFromString("800.00")},
		{Code: "J3490", Brand: "Unclassified", Generic: "N/A", Dosage: "N/A", WAC: decimal.RequireFromString("5000.00")},
	}
}

// ResolveByCode implements Resolver.
func (s *StaticResolver) ResolveByCode(_ context.Context, code string) (Product, error) {
	code = NormalizeCode(code)
	p, ok := s.products[code]
	if !ok {
		return Product{}, fmt.Errorf("resolve %q: %w", code, ErrNotFound)
	}
	return p, nil
}

// List returns all products ordered by code.
func (s *StaticResolver) List(_ context.Context) ([]Product, error) {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
