package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ruralpay/backoffice/internal/models"
	"github.com/ruralpay/backoffice/internal/money"
)

// catalogFile is the on-disk layout of the loan-type catalog. Rates are kept as
// strings so they survive the round trip without float error.
type catalogFile struct {
	LoanTypes []catalogEntry `yaml:"loan_types"`
}

type catalogEntry struct {
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	BaseInterestRate    string `yaml:"base_interest_rate"`
	SuggestedTermMonths int    `yaml:"suggested_term_months"`
}

// Catalog is the read-only loan-type reference data handed to the loan engine.
type Catalog struct {
	types map[string]models.LoanType
}

func NewCatalog(types ...models.LoanType) *Catalog {
	c := &Catalog{types: make(map[string]models.LoanType, len(types))}
	for _, t := range types {
		c.types[t.ID] = t
	}
	return c
}

func (c *Catalog) LoanType(id string) (models.LoanType, bool) {
	t, ok := c.types[id]
	return t, ok
}

// LoanTypes returns every entry ordered by ID.
func (c *Catalog) LoanTypes() []models.LoanType {
	out := make([]models.LoanType, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		models.LoanType{ID: "personal", Name: "Personal Loan", BaseInterestRate: money.MustParse("0.12"), SuggestedTermMonths: 12},
		models.LoanType{ID: "auto", Name: "Auto Loan", BaseInterestRate: money.MustParse("0.08"), SuggestedTermMonths: 48},
		models.LoanType{ID: "mortgage", Name: "Mortgage", BaseInterestRate: money.MustParse("0.05"), SuggestedTermMonths: 240},
		models.LoanType{ID: "agri", Name: "Agricultural Loan", BaseInterestRate: money.MustParse("0.07"), SuggestedTermMonths: 24},
	)
}

// LoadCatalog reads a catalog YAML file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := NewCatalog()
	for _, e := range file.LoanTypes {
		if e.ID == "" {
			return nil, fmt.Errorf("parsing catalog: loan type without id")
		}
		if _, dup := c.types[e.ID]; dup {
			return nil, fmt.Errorf("parsing catalog: duplicate loan type %q", e.ID)
		}
		rate, err := money.Parse(e.BaseInterestRate)
		if err != nil {
			return nil, fmt.Errorf("parsing catalog: loan type %q: %w", e.ID, err)
		}
		c.types[e.ID] = models.LoanType{
			ID:                  e.ID,
			Name:                e.Name,
			BaseInterestRate:    rate,
			SuggestedTermMonths: e.SuggestedTermMonths,
		}
	}
	return c, nil
}

// SaveCatalog writes c to path as YAML.
func SaveCatalog(path string, c *Catalog) error {
	var file catalogFile
	for _, t := range c.LoanTypes() {
		file.LoanTypes = append(file.LoanTypes, catalogEntry{
			ID:                  t.ID,
			Name:                t.Name,
			BaseInterestRate:    t.BaseInterestRate.String(),
			SuggestedTermMonths: t.SuggestedTermMonths,
		})
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}
