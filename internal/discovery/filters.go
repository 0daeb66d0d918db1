package discovery

import (
	"strconv"
	"strings"

	"shopagg/internal/models"

	"github.com/shopspring/decimal"
)

// Query parameter names recognized by listing endpoints.
const (
	ParamCategory = "category"
	ParamSeller   = "seller"
	ParamPriceMin = "price_min"
	ParamPriceMax = "price_max"
	ParamSearch   = "search"
	ParamPage     = "page"
)

// FilterValues echoes the raw filter inputs back to the presentation layer.
type FilterValues struct {
	Category string `json:"category,omitempty"`
	Seller   string `json:"seller,omitempty"`
	PriceMin string `json:"price_min,omitempty"`
	PriceMax string `json:"price_max,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Criteria are the parsed listing filters. Unset fields do not filter.
// Unsatisfiable is set when any provided value failed to parse; such criteria
// match nothing.
type Criteria struct {
	CategoryID    *uint
	SellerID      *uint
	PriceMin      *decimal.Decimal
	PriceMax      *decimal.Decimal
	Query         Query
	Unsatisfiable bool
	Values        FilterValues
}

// ParseCriteria reads the listing filters through get (usually a query-string
// lookup). With categoryLocked the category parameter is ignored because the
// page already fixes it.
func ParseCriteria(get func(string) string, categoryLocked bool) Criteria {
	var c Criteria

	if !categoryLocked {
		c.Values.Category = strings.TrimSpace(get(ParamCategory))
		c.CategoryID = c.parseID(c.Values.Category)
	}
	c.Values.Seller = strings.TrimSpace(get(ParamSeller))
	c.SellerID = c.parseID(c.Values.Seller)
	c.Values.PriceMin = strings.TrimSpace(get(ParamPriceMin))
	c.PriceMin = c.parsePrice(c.Values.PriceMin)
	c.Values.PriceMax = strings.TrimSpace(get(ParamPriceMax))
	c.PriceMax = c.parsePrice(c.Values.PriceMax)
	c.Values.Search = get(ParamSearch)
	c.Query = ParseQuery(c.Values.Search)

	return c
}

func (c *Criteria) parseID(raw string) *uint {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || v == 0 {
		c.Unsatisfiable = true
		return nil
	}
	id := uint(v)
	return &id
}

func (c *Criteria) parsePrice(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.Unsatisfiable = true
		return nil
	}
	return &d
}

// Accepts reports whether p passes every set filter except search.
func (c *Criteria) Accepts(p *models.Product) bool {
	if c.Unsatisfiable {
		return false
	}
	if c.CategoryID != nil && p.CategoryID != *c.CategoryID {
		return false
	}
	if c.SellerID != nil && p.SellerID != *c.SellerID {
		return false
	}
	if c.PriceMin != nil && p.Price.LessThan(*c.PriceMin) {
		return false
	}
	if c.PriceMax != nil && p.Price.GreaterThan(*c.PriceMax) {
		return false
	}
	return true
}

// Compose narrows candidates to those accepted by c. Search is left to Match,
// which must rank the post-filter set.
func Compose(candidates []models.Product, c Criteria) []models.Product {
	out := make([]models.Product, 0, len(candidates))
	for i := range candidates {
		if c.Accepts(&candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	return out
}
