package core

import (
	"regexp"
	"strings"
)

// Category is the closed set of transaction categories.
type Category string

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Housing       Category = "housing"
	Entertainment Category = "entertainment"
	Health        Category = "health"
	Education     Category = "education"
	Shopping      Category = "shopping"
	Salary        Category = "salary"
	CatInvestment Category = "investment"
	Other         Category = "other"
)

var categories = []Category{
	Food, Transport, Housing, Entertainment, Health,
	Education, Shopping, Salary, CatInvestment, Other,
}

// defaultCategoryColors is read-only; callers get copies.
var defaultCategoryColors = map[Category]string{
	Food:          "#FF6B6B",
	Transport:     "#4ECDC4",
	Housing:       "#45B7D1",
	Entertainment: "#96CEB4",
	Health:        "#FF7F50",
	Education:     "#9B59B6",
	Shopping:      "#3498DB",
	Salary:        "#2ECC71",
	CatInvestment: "#F1C40F",
	Other:         "#95A5A6",
}

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Categories returns all categories in their canonical order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory maps a stored or submitted key onto the enumeration.
// Unknown keys are rejected rather than carried as free text.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.IsValid() {
		return c, nil
	}
	return "", &ValidationError{Field: "category", Reason: "unknown category " + strings.TrimSpace(s)}
}

func (c Category) IsValid() bool {
	_, ok := defaultCategoryColors[c]
	return ok
}

// Label capitalizes the first letter of the key, e.g. "food" -> "Food".
func (c Category) Label() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// order returns the canonical position, or len(categories) for unknown keys.
func (c Category) order() int {
	for i, v := range categories {
		if v == c {
			return i
		}
	}
	return len(categories)
}

// DefaultCategoryColors returns a copy of the built-in color table.
func DefaultCategoryColors() map[Category]string {
	out := make(map[Category]string, len(defaultCategoryColors))
	for k, v := range defaultCategoryColors {
		out[k] = v
	}
	return out
}

// ResolveCategoryColors overlays persisted colors on the defaults. An empty
// or nil persisted table yields the defaults unchanged.
func ResolveCategoryColors(persisted map[Category]string) map[Category]string {
	out := DefaultCategoryColors()
	for k, v := range persisted {
		if k.IsValid() && ValidColorHex(v) {
			out[k] = v
		}
	}
	return out
}

// ValidColorHex reports whether s is a #RRGGBB color.
func ValidColorHex(s string) bool {
	return hexColorRe.MatchString(s)
}
