package seed

import (
	"fmt"
	"io"
	"os"
	"strings"

	"shopagg/internal/textnorm"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written catalog: cities, categories, shoppers and sellers
// with their products. Products refer to categories by slug and to cities by name.
type Fixture struct {
	Cities     []string          `yaml:"cities"`
	Categories []CategoryFixture `yaml:"categories"`
	Shoppers   []UserFixture     `yaml:"shoppers"`
	Sellers    []SellerFixture   `yaml:"sellers"`
}

type CategoryFixture struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type UserFixture struct {
	Username      string `yaml:"username"`
	Email         string `yaml:"email"`
	PreferredCity string `yaml:"preferred_city"`
}

type SellerFixture struct {
	UserFixture `yaml:",inline"`
	StoreName   string           `yaml:"store_name"`
	Website     string           `yaml:"website"`
	Description string           `yaml:"description"`
	Verified    bool             `yaml:"verified"`
	Products    []ProductFixture `yaml:"products"`
}

type ProductFixture struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Link        string   `yaml:"link"`
	Price       string   `yaml:"price"`
	Stock       uint     `yaml:"stock"`
	Inactive    bool     `yaml:"inactive"`
	Category    string   `yaml:"category"`
	Origin      string   `yaml:"origin"`
	Delivery    []string `yaml:"delivery"`
}

// LoadFixture reads and checks the fixture file at path.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseFixture(f)
}

// ParseFixture decodes a YAML fixture. Category slugs default to the slugified
// name, and every city or category a product names must be declared.
func ParseFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	cities := make(map[string]bool, len(fx.Cities))
	for _, name := range fx.Cities {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("fixture: empty city name")
		}
		if cities[name] {
			return nil, fmt.Errorf("fixture: duplicate city %q", name)
		}
		cities[name] = true
	}

	categories := make(map[string]bool, len(fx.Categories))
	for i := range fx.Categories {
		c := &fx.Categories[i]
		if c.Slug == "" {
			c.Slug = textnorm.Slugify(c.Name)
		}
		if c.Name == "" || c.Slug == "" {
			return nil, fmt.Errorf("fixture: category %d needs a name", i+1)
		}
		categories[c.Slug] = true
	}

	checkCity := func(owner, name string) error {
		if name != "" && !cities[name] {
			return fmt.Errorf("fixture: %s refers to undeclared city %q", owner, name)
		}
		return nil
	}
	for _, u := range fx.Shoppers {
		if err := checkCity(u.Username, u.PreferredCity); err != nil {
			return nil, err
		}
	}
	for _, s := range fx.Sellers {
		if err := checkCity(s.Username, s.PreferredCity); err != nil {
			return nil, err
		}
		if !s.Verified && len(s.Products) > 0 {
			return nil, fmt.Errorf("fixture: unverified seller %q cannot list products", s.StoreName)
		}
		for _, p := range s.Products {
			if !categories[p.Category] {
				return nil, fmt.Errorf("fixture: product %q refers to undeclared category %q", p.Name, p.Category)
			}
			if p.Origin == "" {
				return nil, fmt.Errorf("fixture: product %q needs an origin city", p.Name)
			}
			for _, city := range append([]string{p.Origin}, p.Delivery...) {
				if err := checkCity(p.Name, city); err != nil {
					return nil, err
				}
			}
		}
	}
	return &fx, nil
}
