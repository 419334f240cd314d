package sqlxrepos

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// null mapping helpers shared by the repositories. Empty strings and zero
// times are stored as NULL.

func nullStr(s string) null.String   { return null.NewString(s, s != "") }
func nullTime(t time.Time) null.Time { return null.NewTime(t.UTC(), !t.IsZero()) }

// orderBy renders an ORDER BY clause, falling back to the given default
// when no ordering was requested.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
