package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Filter is one equality condition of a field query, with its value already
// converted to the form the store holds for that column.
type Filter struct {
	Field  string
	Column string
	Value  any
}

type fieldSpec struct {
	column string
	coerce func(raw string) (any, error)
}

// queryFields maps every queryable attribute name to its column and text coercer.
var queryFields = map[string]fieldSpec{
	"id":           {column: "id", coerce: coerceID},
	"title":        {column: "title", coerce: coerceText},
	"description":  {column: "description", coerce: coerceText},
	"promo_code":   {column: "promo_code", coerce: coerceText},
	"promo_type":   {column: "promo_type", coerce: coercePromotionType},
	"promo_value":  {column: "promo_value", coerce: coerceDecimal},
	"start_date":   {column: "start_date", coerce: coerceDate},
	"created_date": {column: "created_date", coerce: coerceDate},
	"duration":     {column: "duration", coerce: coerceDuration},
	"active":       {column: "active", coerce: coerceBool},
}

// QueryFieldNames returns the attribute names accepted by ParseFilters, sorted.
func QueryFieldNames() []string {
	names := make([]string, 0, len(queryFields))
	for name := range queryFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFilters resolves textual query parameters into typed filters. Every
// name is checked before any value is coerced, so a single unknown field
// rejects the whole query. Filters come back ordered by field name.
func ParseFilters(params map[string]string) ([]Filter, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := queryFields[name]; !ok {
			return nil, &DataValidationError{
				Kind:    KindUnknownField,
				Field:   name,
				Message: "not an attribute of Promotion",
			}
		}
	}

	filters := make([]Filter, 0, len(names))
	for _, name := range names {
		spec := queryFields[name]
		value, err := spec.coerce(params[name])
		if err != nil {
			return nil, badType(name, "%v", err)
		}
		filters = append(filters, Filter{Field: name, Column: spec.column, Value: value})
	}
	return filters, nil
}

func coerceText(raw string) (any, error) {
	return raw, nil
}

func coerceID(raw string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func coerceBool(raw string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, errInvalidValue("boolean", raw)
}

func coercePromotionType(raw string) (any, error) {
	t, ok := ParsePromotionType(strings.TrimSpace(raw))
	if !ok {
		return nil, errInvalidValue("promotion type", raw)
	}
	return t, nil
}

func coerceDecimal(raw string) (any, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, errInvalidValue("number", raw)
	}
	// promo_value is stored in canonical decimal text
	return d.String(), nil
}

func coerceDate(raw string) (any, error) {
	t, err := ParseDate(raw)
	if err != nil {
		return nil, errInvalidValue("date (YYYY-MM-DD)", raw)
	}
	return FormatDate(t), nil
}

func coerceDuration(raw string) (any, error) {
	d, err := ParseDuration(raw)
	if err != nil {
		return nil, err
	}
	return DurationSeconds(d), nil
}

// DurationSeconds is the stored form of a duration, rounded toward negative
// infinity so that any negative span stays negative.
func DurationSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second < 0 {
		secs--
	}
	return secs
}

func errInvalidValue(want, raw string) error {
	return fmt.Errorf("invalid %s %q", want, raw)
}
