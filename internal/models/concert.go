package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"concertlog/api/internal/validation"
)

type Concert struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Concert      string             `bson:"concert" json:"concert"`
	Venue        string             `bson:"venue" json:"venue"`
	DateAttended time.Time          `bson:"dateAttended" json:"dateAttended"`
	Owner        primitive.ObjectID `bson:"owner" json:"owner"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c Concert) Validate() validation.Result {
	var r validation.Result
	r.Check("concert", strings.TrimSpace(c.Concert), "required")
	r.Check("venue", strings.TrimSpace(c.Venue), "required")
	if c.DateAttended.IsZero() {
		r.Add("dateAttended", "required", "dateAttended is required")
	}
	if c.Owner.IsZero() {
		r.Add("owner", "required", "owner is required")
	}
	return r
}

var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate accepts the calendar formats clients send for dateAttended.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// SortableConcertFields lists the fields a concert listing may be ordered by.
var SortableConcertFields = map[string]struct{}{
	"concert":      {},
	"venue":        {},
	"dateAttended": {},
	"createdAt":    {},
	"updatedAt":    {},
}

type ConcertQuery struct {
	Venue     string
	SortField string
	SortDesc  bool
	Limit     int64
	Skip      int64
}

// ParseSort reads the "field:desc" / "field:asc" syntax. Unknown fields leave
// the query unsorted.
func (q *ConcertQuery) ParseSort(sortBy string) {
	if sortBy == "" {
		return
	}
	field, dir, _ := strings.Cut(sortBy, ":")
	if _, ok := SortableConcertFields[field]; !ok {
		return
	}
	q.SortField = field
	q.SortDesc = dir == "desc"
}
