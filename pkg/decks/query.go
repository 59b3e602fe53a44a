package decks

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Sort is the library ordering requested from the remote service.
type Sort string

const (
	SortRecentlyUpdated Sort = "recently_updated"
	SortHot             Sort = "hot"
	SortPopularity      Sort = "popularity"
)

// DefaultSort is used when no sort order is given.
const DefaultSort = SortRecentlyUpdated

// ParseSort parses a sort order; the empty string yields DefaultSort.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSort, nil
	case SortRecentlyUpdated:
		return SortRecentlyUpdated, nil
	case SortHot:
		return SortHot, nil
	case SortPopularity:
		return SortPopularity, nil
	default:
		return "", fmt.Errorf("unknown sort %q (want recently_updated, hot or popularity)", s)
	}
}

// OrDefault returns s, or DefaultSort if s is empty.
func (s Sort) OrDefault() Sort {
	if s == "" {
		return DefaultSort
	}
	return s
}

// Category is the library section requested from the remote service.
type Category string

const (
	CategoryCommunity Category = "COMMUNITY"
	CategoryBudget    Category = "BUDGET"
	CategoryFeatured  Category = "FEATURED"
)

// DefaultCategory is used when no category is given.
const DefaultCategory = CategoryCommunity

// ParseCategory parses a category case-insensitively; the empty string
// yields DefaultCategory.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case "":
		return DefaultCategory, nil
	case CategoryCommunity:
		return CategoryCommunity, nil
	case CategoryBudget:
		return CategoryBudget, nil
	case CategoryFeatured:
		return CategoryFeatured, nil
	default:
		return "", fmt.Errorf("unknown category %q (want COMMUNITY, BUDGET or FEATURED)", s)
	}
}

// OrDefault returns c, or DefaultCategory if c is empty.
func (c Category) OrDefault() Category {
	if c == "" {
		return DefaultCategory
	}
	return c
}

// Query is the parameter set of one library page request.
type Query struct {
	SortBy   Sort
	From     uint32
	Count    uint32
	Category Category
}

// Values encodes the query as sortBy, from, count and category parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("sortBy", string(q.SortBy.OrDefault()))
	v.Set("from", strconv.FormatUint(uint64(q.From), 10))
	v.Set("count", strconv.FormatUint(uint64(q.Count), 10))
	v.Set("category", string(q.Category.OrDefault()))
	return v
}
