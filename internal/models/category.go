package models

import "fmt"

// Category is the knowledge-base section an upload is filed under.
type Category string

const (
	CategoryNotice  Category = "notice"
	CategoryFAQ     Category = "faq"
	CategoryImpData Category = "impData"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryNotice, CategoryFAQ, CategoryImpData}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryNotice, CategoryFAQ, CategoryImpData:
		return true
	}
	return false
}

// ParseCategory converts a raw value into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
