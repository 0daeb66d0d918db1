package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Cátegory", "category"},
		{"CATEGORY", "category"},
		{"Tegucigalpa", "tegucigalpa"},
		{"San Pedro Sula", "san pedro sula"},
		{"Niño Ñandú", "nino nandu"},
		{"Straße", "strasse"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"underscore separates", "other_seller_product", []string{"other", "seller", "product"}},
		{"punctuation collapses", "  Café, con-leche!! ", []string{"cafe", "con", "leche"}},
		{"digits kept", "iPhone 15 Pro", []string{"iphone", "15", "pro"}},
		{"only punctuation", "?!_-", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cafe-de-altura-500g", Slugify("Café de Altura (500g)"))
	assert.Equal(t, "other-seller-product", Slugify("other_seller_product"))
	assert.Equal(t, "", Slugify("!!!"))
}
