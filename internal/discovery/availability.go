// Package discovery holds the pure product discovery pipeline: city
// availability, filter composition, search matching and ranking, and seeded
// paging. Nothing here touches storage or session state.
package discovery

import "shopagg/internal/models"

// Available reports whether p can be shown to a shopper in cityID.
// A nil cityID means no city restriction.
func Available(p *models.Product, cityID *uint) bool {
	if p.IsDeleted() || !p.IsActive || p.StockQuantity == 0 {
		return false
	}
	if cityID == nil {
		return true
	}
	return p.OriginCityID == *cityID || p.DeliversTo(*cityID)
}

// Visible returns the available candidates in first-seen order, one entry per
// product ID. The input slice is not modified.
func Visible(candidates []models.Product, cityID *uint) []models.Product {
	out := make([]models.Product, 0, len(candidates))
	seen := make(map[uint]struct{}, len(candidates))
	for i := range candidates {
		p := &candidates[i]
		if !Available(p, cityID) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, *p)
	}
	return out
}
