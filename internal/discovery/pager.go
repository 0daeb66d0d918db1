package discovery

import (
	"math/rand"
	"slices"
	"strconv"
	"strings"

	"shopagg/internal/models"
)

// Page is one slice of a listing.
type Page struct {
	Items    []models.Product `json:"items"`
	Number   int              `json:"number"`
	Size     int              `json:"size"`
	Total    int              `json:"total"`
	HasNext  bool             `json:"has_next"`
	NextPage *int             `json:"next_page"`
}

// ParsePageNumber reads a 1-based page number. Empty means page 1.
// ok is false for anything that is not a positive integer.
func ParsePageNumber(raw string) (number int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// NewSeed returns a fresh shuffle seed.
func NewSeed() int64 {
	return rand.Int63()
}

// Shuffle returns a copy of items in a permutation fully determined by seed
// and the set of product IDs. Input order does not affect the result.
func Shuffle(items []models.Product, seed int64) []models.Product {
	out := slices.Clone(items)
	slices.SortFunc(out, func(a, b models.Product) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Paginate slices page number (1-based) of the given size from items. With a
// non-nil seed the items are shuffled first; ranked results pass nil to keep
// their order. Pages outside [1, last] are empty.
//
// The whole filtered set is materialized to shuffle it, which bounds this to
// catalogs that fit comfortably in memory.
func Paginate(items []models.Product, number, size int, seed *int64) Page {
	page := Page{Number: number, Size: size, Total: len(items), Items: []models.Product{}}
	if number < 1 || size < 1 || len(items) == 0 {
		return page
	}
	// Past the last page. Checked before multiplying; number*size can overflow.
	if number-1 > (len(items)-1)/size {
		return page
	}

	ordered := items
	if seed != nil {
		ordered = Shuffle(items, *seed)
	}

	start := (number - 1) * size
	end := min(start+size, len(ordered))
	page.Items = ordered[start:end]

	if end < len(ordered) {
		next := number + 1
		page.HasNext = true
		page.NextPage = &next
	}
	return page
}
