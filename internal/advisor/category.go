package advisor

import (
	"errors"
	"fmt"
	"strings"
)

// Category selects the advice prompt and its required inputs. The set is
// closed: anything outside it is rejected before any outbound call.
type Category string

const (
	CategoryGeneric   Category = "generic"
	CategoryPortfolio Category = "portfolio"
	CategoryDomain    Category = "domain"
)

// ErrUnknownCategory indicates a category outside the supported set.
var ErrUnknownCategory = errors.New("unknown advice category")

// Categories returns all supported categories.
func Categories() []Category {
	return []Category{CategoryGeneric, CategoryPortfolio, CategoryDomain}
}

// ParseCategory maps a request string onto the closed category set.
func ParseCategory(value string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryGeneric:
		return CategoryGeneric, nil
	case CategoryPortfolio:
		return CategoryPortfolio, nil
	case CategoryDomain:
		return CategoryDomain, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
}

func (c Category) String() string {
	return string(c)
}
