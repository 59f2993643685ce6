package extract

import (
	"sort"
	"strings"
)

// OtherCategory is reported for items outside every category.
const OtherCategory = "other"

// Categories maps items to food categories. An item may belong to several
// categories (pancakes are both american and breakfast).
type Categories struct {
	members map[string][]string
	names   []string
}

// NewCategories builds a category index from a name -> items map.
func NewCategories(m map[string][]string) *Categories {
	c := &Categories{members: make(map[string][]string, len(m))}
	for name, items := range m {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, it := range items {
			c.members[name] = append(c.members[name], strings.ToLower(strings.TrimSpace(it)))
		}
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

// Names returns the sorted category names.
func (c *Categories) Names() []string { return c.names }

// Members returns the items of a category.
func (c *Categories) Members(name string) []string { return c.members[name] }

// Of returns the first category, in name order, containing item.
func (c *Categories) Of(item string) string {
	item = strings.ToLower(strings.TrimSpace(item))
	for _, name := range c.names {
		for _, m := range c.members[name] {
			if m == item {
				return name
			}
		}
	}
	return OtherCategory
}
