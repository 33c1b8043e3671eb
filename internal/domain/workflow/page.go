package workflow

// PageBounds is the default and maximum page size of a list operation.
type PageBounds struct {
	Default int
	Max     int
}

// ListPage bounds every engine list; transports parse against it too.
var ListPage = PageBounds{Default: 50, Max: 200}

type Page struct {
	Limit  int
	Offset int
}

// Clamp replaces a non-positive limit with the default and caps it at Max.
// Negative offsets become zero.
func (b PageBounds) Clamp(limit, offset int) Page {
	if limit <= 0 {
		limit = b.Default
	}
	if b.Max > 0 && limit > b.Max {
		limit = b.Max
	}
	return Page{Limit: limit, Offset: max(offset, 0)}
}
