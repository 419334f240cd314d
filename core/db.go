package core

// DBOrdering is a single ORDER BY term. Repositories only ever receive
// whitelisted field names; the API layer filters user input before binding.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
