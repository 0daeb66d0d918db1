package discovery

import (
	"sort"
	"strings"

	"shopagg/internal/models"
	"shopagg/internal/textnorm"
)

// Query is a parsed free-text search.
type Query struct {
	Raw    string
	Tokens []string
	exact  string
}

// ParseQuery folds raw into search tokens. Punctuation and underscores split tokens.
func ParseQuery(raw string) Query {
	return Query{
		Raw:    raw,
		Tokens: textnorm.Words(raw),
		exact:  textnorm.Fold(strings.TrimSpace(raw)),
	}
}

// Active reports whether the query filters anything.
func (q Query) Active() bool {
	return len(q.Tokens) > 0
}

// Matches reports whether every token occurs in the product name or description.
func (q Query) Matches(p *models.Product) bool {
	name := textnorm.Fold(p.Name)
	desc := textnorm.Fold(p.Description)
	for _, tok := range q.Tokens {
		if !strings.Contains(name, tok) && !strings.Contains(desc, tok) {
			return false
		}
	}
	return true
}

// ExactName reports whether the product name equals the whole query,
// ignoring case, accents and surrounding space.
func (q Query) ExactName(p *models.Product) bool {
	return q.exact != "" && textnorm.Fold(strings.TrimSpace(p.Name)) == q.exact
}

// Match filters candidates by q and orders them: exact name matches first,
// then the rest, each group by name. An inactive query returns the input as is.
func Match(candidates []models.Product, q Query) []models.Product {
	if !q.Active() {
		return candidates
	}

	type ranked struct {
		product models.Product
		tier    int
		key     string
	}
	hits := make([]ranked, 0, len(candidates))
	for i := range candidates {
		p := &candidates[i]
		if !q.Matches(p) {
			continue
		}
		tier := 2
		if q.ExactName(p) {
			tier = 1
		}
		hits = append(hits, ranked{product: *p, tier: tier, key: textnorm.Fold(p.Name)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.key != b.key {
			return a.key < b.key
		}
		if a.product.Name != b.product.Name {
			return a.product.Name < b.product.Name
		}
		return a.product.ID < b.product.ID
	})

	out := make([]models.Product, len(hits))
	for i, h := range hits {
		out[i] = h.product
	}
	return out
}
