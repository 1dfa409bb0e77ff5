package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidFixture is returned when a seed file fails validation
	ErrInvalidFixture = errors.New("seed: invalid fixture")
	// ErrFixtureNotFound is returned when the seed file does not exist
	ErrFixtureNotFound = errors.New("seed: fixture file not found")
)

// Fixture is the content of a seed file
type Fixture struct {
	Admin      *AdminFixture     `yaml:"admin,omitempty"`
	Categories []CategoryFixture `yaml:"categories"`
	Products   []ProductFixture  `yaml:"products"`
}

// AdminFixture describes the bootstrap administrator account
type AdminFixture struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

// CategoryFixture describes a category and its subcategories
type CategoryFixture struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	SortOrder   int               `yaml:"sort_order,omitempty"`
	Children    []CategoryFixture `yaml:"children,omitempty"`
}

// ProductFixture describes a product. Category is the slug of a category
// from the same file or one that already exists.
type ProductFixture struct {
	Name        string `yaml:"name"`
	SKU         string `yaml:"sku"`
	Description string `yaml:"description,omitempty"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Category    string `yaml:"category,omitempty"`
	Active      *bool  `yaml:"active,omitempty"`

	price decimal.Decimal
}

// LoadFixture reads and validates a seed file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFixtureNotFound, path)
		}
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates seed YAML
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks required fields and parses prices
func (f *Fixture) Validate() error {
	var errs []error

	if f.Admin != nil {
		if strings.TrimSpace(f.Admin.Email) == "" {
			errs = append(errs, errors.New("admin.email is required"))
		}
		if f.Admin.Password == "" {
			errs = append(errs, errors.New("admin.password is required"))
		}
	}

	var walk func(prefix string, cats []CategoryFixture)
	walk = func(prefix string, cats []CategoryFixture) {
		for i, c := range cats {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			if strings.TrimSpace(c.Name) == "" {
				errs = append(errs, fmt.Errorf("%s.name is required", path))
			}
			walk(path+".children", c.Children)
		}
	}
	walk("categories", f.Categories)

	skus := make(map[string]int, len(f.Products))
	for i := range f.Products {
		p := &f.Products[i]
		path := fmt.Sprintf("products[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", path))
		}
		sku := strings.ToUpper(strings.TrimSpace(p.SKU))
		if sku == "" {
			errs = append(errs, fmt.Errorf("%s.sku is required", path))
		} else if prev, dup := skus[sku]; dup {
			errs = append(errs, fmt.Errorf("%s.sku duplicates products[%d]", path, prev))
		} else {
			skus[sku] = i
		}
		price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.price %q is not a decimal", path, p.Price))
		} else {
			p.price = price
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, errors.Join(errs...))
	}
	return nil
}
