package domain

// Day is one entry of a month index. Its key is Day, unique within the parent Month.
type Day struct {
	Day int    `json:"day" bson:"day"`
	URL string `json:"url" bson:"url"`
}

// Month is a node of the catalog tree, keyed by (Year, Month).
type Month struct {
	Year  int    `json:"year" bson:"year"`
	Month int    `json:"month" bson:"month"`
	URL   string `json:"url" bson:"url"`
	Days  []Day  `json:"products" bson:"products"` // Append-only, in order of first discovery; key matches existing root.json files
}

// MonthKey identifies a Month inside a Catalog.
type MonthKey struct {
	Year  int
	Month int
}

func (m *Month) Key() MonthKey {
	return MonthKey{Year: m.Year, Month: m.Month}
}

// HasDay reports whether a child with the given day key exists.
func (m *Month) HasDay(day int) bool {
	for _, d := range m.Days {
		if d.Day == day {
			return true
		}
	}
	return false
}

// MergeDay appends day unless a child with the same key already exists.
// It reports whether the month was modified.
func (m *Month) MergeDay(day Day) bool {
	if m.HasDay(day.Day) {
		return false
	}
	m.Days = append(m.Days, day)
	return true
}

// Catalog is the persisted root of the tree: a sequence of months.
type Catalog []*Month

// Find returns the month with the given key, or nil.
func (c Catalog) Find(key MonthKey) *Month {
	for _, m := range c {
		if m.Key() == key {
			return m
		}
	}
	return nil
}

// MergeMonth appends month unless one with the same key exists. Days of an
// existing month are merged day by day.
func (c *Catalog) MergeMonth(month *Month) bool {
	existing := c.Find(month.Key())
	if existing == nil {
		*c = append(*c, month)
		return true
	}

	changed := false
	for _, d := range month.Days {
		if existing.MergeDay(d) {
			changed = true
		}
	}
	return changed
}

// Select returns the months whose year is in years, in catalog order.
// An empty years list selects every month.
func (c Catalog) Select(years []int) []*Month {
	if len(years) == 0 {
		return c
	}

	allowed := make(map[int]struct{}, len(years))
	for _, y := range years {
		allowed[y] = struct{}{}
	}

	selected := make([]*Month, 0, len(c))
	for _, m := range c {
		if _, ok := allowed[m.Year]; ok {
			selected = append(selected, m)
		}
	}
	return selected
}

// TotalDays counts the days of every month.
func (c Catalog) TotalDays() int {
	total := 0
	for _, m := range c {
		total += len(m.Days)
	}
	return total
}
