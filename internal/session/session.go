// Package session holds per-browser state: the selected city, anonymous likes
// and listing shuffle seeds. A Session is loaded once per request and saved at
// the end of it when modified.
package session

import (
	"slices"

	"github.com/google/uuid"
)

// Session is one browser session. It is not safe for concurrent use; each
// request works on its own copy and the last save wins.
type Session struct {
	ID string

	data   payload
	dirty  bool
	stored bool
}

type payload struct {
	SelectedCityID *uint            `json:"selected_city_id,omitempty"`
	LikedProducts  []uint           `json:"liked_products,omitempty"`
	Seeds          map[string]int64 `json:"seeds,omitempty"`
}

// New returns an empty session with a random ID.
func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// Clear drops all session state.
func (s *Session) Clear() {
	s.data = payload{}
	s.dirty = true
}

// SelectedCityID returns the explicitly picked city, if any.
func (s *Session) SelectedCityID() *uint {
	if s.data.SelectedCityID == nil {
		return nil
	}
	id := *s.data.SelectedCityID
	return &id
}

// SelectCity records an explicit city pick.
func (s *Session) SelectCity(id uint) {
	if s.data.SelectedCityID != nil && *s.data.SelectedCityID == id {
		return
	}
	s.data.SelectedCityID = &id
	s.dirty = true
}

// ClearSelectedCity forgets the explicit pick, e.g. when it no longer resolves.
func (s *Session) ClearSelectedCity() {
	if s.data.SelectedCityID == nil {
		return
	}
	s.data.SelectedCityID = nil
	s.dirty = true
}

// LikedProductIDs returns a copy of the anonymous like list in insertion order.
func (s *Session) LikedProductIDs() []uint {
	return append([]uint{}, s.data.LikedProducts...)
}

// HasLike reports whether productID is in the anonymous like list.
func (s *Session) HasLike(productID uint) bool {
	return slices.Contains(s.data.LikedProducts, productID)
}

// AddLike appends productID unless already present.
func (s *Session) AddLike(productID uint) {
	if s.HasLike(productID) {
		return
	}
	s.data.LikedProducts = append(s.data.LikedProducts, productID)
	s.dirty = true
}

// RemoveLike drops productID. It reports whether it was present.
func (s *Session) RemoveLike(productID uint) bool {
	i := slices.Index(s.data.LikedProducts, productID)
	if i < 0 {
		return false
	}
	s.data.LikedProducts = slices.Delete(s.data.LikedProducts, i, i+1)
	s.dirty = true
	return true
}

// ClearLikes empties the anonymous like list.
func (s *Session) ClearLikes() {
	if len(s.data.LikedProducts) == 0 {
		return
	}
	s.data.LikedProducts = nil
	s.dirty = true
}

// Seed returns the stored shuffle seed for a listing scope.
func (s *Session) Seed(scope string) (int64, bool) {
	seed, ok := s.data.Seeds[scope]
	return seed, ok
}

// SetSeed stores the shuffle seed for a listing scope.
func (s *Session) SetSeed(scope string, seed int64) {
	if s.data.Seeds == nil {
		s.data.Seeds = make(map[string]int64)
	}
	if cur, ok := s.data.Seeds[scope]; ok && cur == seed {
		return
	}
	s.data.Seeds[scope] = seed
	s.dirty = true
}
