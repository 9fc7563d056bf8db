package repository

// Page selects a window of a listing.  Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the SQL OFFSET for p.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Limit returns the SQL LIMIT for p, defaulting to 20.
func (p Page) Limit() int {
	if p.Size < 1 {
		return 20
	}
	return p.Size
}
