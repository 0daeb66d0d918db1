package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// linkPattern finds anything that looks like a URL or bare domain.
var linkPattern = regexp.MustCompile(`((http|https)://)?(www\.)?[a-zA-Z0-9\-.]+\.[a-zA-Z]{2,}(/\S*)?`)

var maxPrice = decimal.RequireFromString("99999999.99")

// ContainsLink reports whether s contains a URL or domain name.
func ContainsLink(s string) bool {
	return linkPattern.MatchString(s)
}

// ValidateProductName requires a non-empty, link-free name of at most 255 characters.
func ValidateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("product name is required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return errors.New("product name must not exceed 255 characters")
	}
	if ContainsLink(name) {
		return errors.New("product name cannot contain links")
	}
	return nil
}

// ValidateDescription rejects descriptions containing links.
func ValidateDescription(description string) error {
	if ContainsLink(description) {
		return errors.New("description cannot contain links")
	}
	return nil
}

// ValidatePrice requires 0 < price <= 99999999.99 with at most two decimals.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return errors.New("price must be greater than 0")
	}
	if price.GreaterThan(maxPrice) {
		return fmt.Errorf("price must not exceed %s", maxPrice.StringFixed(2))
	}
	if !price.Equal(price.Truncate(2)) {
		return errors.New("price must have at most two decimal places")
	}
	return nil
}

// ValidateWebsite requires an absolute http(s) URL with a host.
func ValidateWebsite(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}
