package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is the GraphQL Date scalar. It is written as RFC 3339 and accepts RFC 3339,
// plain calendar dates, or epoch milliseconds.
type Date struct {
	time.Time
}

// ImplementsGraphQLType maps Date to the schema scalar of the same name.
func (Date) ImplementsGraphQLType(name string) bool {
	return name == "Date"
}

// UnmarshalGraphQL parses a Date argument.
func (d *Date) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				d.Time = t.UTC()
				return nil
			}
		}
		return fmt.Errorf("invalid Date %q: want RFC 3339 or YYYY-MM-DD", v)
	case int32:
		d.Time = time.UnixMilli(int64(v)).UTC()
		return nil
	case int64:
		d.Time = time.UnixMilli(v).UTC()
		return nil
	case float64:
		d.Time = time.UnixMilli(int64(v)).UTC()
		return nil
	default:
		return fmt.Errorf("wrong type for Date: %T", input)
	}
}

// MarshalJSON writes the date as an RFC 3339 string in UTC.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

func newDate(t time.Time) *Date {
	if t.IsZero() {
		return nil
	}
	return &Date{Time: t}
}

func newDatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return newDate(*t)
}

func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
