package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the text form of StartDate and CreatedDate.
const DateLayout = "2006-01-02"

var spanPattern = regexp.MustCompile(`^(?:(\d+) days?,\s*)?(\d+):([0-5]\d):([0-5]\d)$`)

// maxSeconds is the largest whole-second count a time.Duration can hold.
const maxSeconds = int64(math.MaxInt64 / int64(time.Second))

// FormatDate renders a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDuration renders d as "<D> days, HH:MM:SS", prefixed with "-" when negative.
func FormatDuration(d time.Duration) string {
	sign := ""
	secs := DurationSeconds(d)
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	days := secs / 86400
	secs %= 86400
	return fmt.Sprintf("%s%d days, %02d:%02d:%02d", sign, days, secs/3600, (secs/60)%60, secs%60)
}

// ParseDuration accepts the FormatDuration form (with or without the days part),
// a whole number of seconds, or Go duration syntax such as "36h". The result is
// truncated to whole seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	neg := false
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		neg = true
		s = strings.TrimSpace(rest)
	}

	var d time.Duration
	if m := spanPattern.FindStringSubmatch(s); m != nil {
		if m[1] == "" {
			m[1] = "0"
		}
		var total int64
		for i, unit := range []int64{86400, 3600, 60, 1} {
			n, err := strconv.ParseInt(m[i+1], 10, 64)
			if err != nil || n > (maxSeconds-total)/unit {
				return 0, fmt.Errorf("duration %q is out of range", s)
			}
			total += n * unit
		}
		d = time.Duration(total) * time.Second
	} else if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 || secs > maxSeconds {
			return 0, fmt.Errorf("duration %q is out of range", s)
		}
		d = time.Duration(secs) * time.Second
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("duration %q is out of range", s)
	} else if parsed, err := time.ParseDuration(s); err == nil {
		if parsed < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d = parsed.Truncate(time.Second)
	} else {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	if neg {
		d = -d
	}
	return d, nil
}

// Serialize converts the promotion into a plain mapping.
func (p Promotion) Serialize() map[string]any {
	var id any
	if p.ID != 0 {
		id = p.ID
	}
	return map[string]any{
		"id":           id,
		"title":        p.Title,
		"description":  p.Description,
		"promo_code":   p.PromoCode,
		"promo_type":   p.PromoType.String(),
		"promo_value":  p.PromoValue.String(),
		"start_date":   FormatDate(p.StartDate),
		"created_date": FormatDate(p.CreatedDate),
		"duration":     FormatDuration(p.Duration),
		"active":       p.Active,
	}
}

// Deserialize populates the promotion from a mapping such as a decoded JSON
// object. The id is never read from data. Nothing is modified on error.
func (p *Promotion) Deserialize(data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		return badType("", "invalid promotion: body of request contained bad or no data (%T)", data)
	}

	out := Promotion{ID: p.ID}
	var err error

	if out.Title, err = stringField(m, "title"); err != nil {
		return err
	}
	if raw, present := m["description"]; present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return badType("description", "expected text, got %T", raw)
		}
		out.Description = s
	}
	if out.PromoCode, err = stringField(m, "promo_code"); err != nil {
		return err
	}

	name, err := stringField(m, "promo_type")
	if err != nil {
		return err
	}
	t, ok := ParsePromotionType(name)
	if !ok {
		return badType("promo_type", "unknown promotion type %q", name)
	}
	out.PromoType = t

	if out.PromoValue, err = decimalField(m, "promo_value"); err != nil {
		return err
	}
	if out.StartDate, err = dateField(m, "start_date"); err != nil {
		return err
	}
	if out.CreatedDate, err = dateField(m, "created_date"); err != nil {
		return err
	}
	if out.Duration, err = durationField(m, "duration"); err != nil {
		return err
	}

	raw, present := m["active"]
	if !present {
		return missingField("active")
	}
	active, ok := raw.(bool)
	if !ok {
		return badType("active", "expected boolean, got %T", raw)
	}
	out.Active = active

	*p = out
	return nil
}

func stringField(m map[string]any, key string) (string, error) {
	raw, present := m[key]
	if !present {
		return "", missingField(key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", badType(key, "expected text, got %T", raw)
	}
	return s, nil
}

func decimalField(m map[string]any, key string) (decimal.Decimal, error) {
	raw, present := m[key]
	if !present {
		return decimal.Zero, missingField(key)
	}
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, badType(key, "not a finite number")
		}
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, badType(key, "not a number: %q", v.String())
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, badType(key, "not a number: %q", v)
		}
		return d, nil
	default:
		return decimal.Zero, badType(key, "expected number, got %T", raw)
	}
}

func dateField(m map[string]any, key string) (time.Time, error) {
	raw, present := m[key]
	if !present {
		return time.Time{}, missingField(key)
	}
	switch v := raw.(type) {
	case time.Time:
		y, mo, d := v.Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return time.Time{}, badType(key, "expected YYYY-MM-DD, got %q", v)
		}
		return t, nil
	default:
		return time.Time{}, badType(key, "expected date text, got %T", raw)
	}
}

func durationField(m map[string]any, key string) (time.Duration, error) {
	raw, present := m[key]
	if !present {
		return 0, missingField(key)
	}
	switch v := raw.(type) {
	case time.Duration:
		return v.Truncate(time.Second), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, badType(key, "expected whole seconds, got %v", v)
		}
		if math.Abs(v) > float64(maxSeconds) {
			return 0, badType(key, "duration of %v seconds is out of range", v)
		}
		return time.Duration(int64(v)) * time.Second, nil
	case int:
		return secondsField(key, int64(v))
	case int64:
		return secondsField(key, v)
	case json.Number:
		secs, err := v.Int64()
		if err != nil {
			return 0, badType(key, "expected whole seconds, got %s", v.String())
		}
		return secondsField(key, secs)
	case string:
		d, err := ParseDuration(v)
		if err != nil {
			return 0, badType(key, "%v", err)
		}
		return d, nil
	default:
		return 0, badType(key, "expected duration text, got %T", raw)
	}
}

// secondsField converts a whole-second count, failing when it does not fit
// in a time.Duration.
func secondsField(key string, secs int64) (time.Duration, error) {
	if secs > maxSeconds || secs < -maxSeconds {
		return 0, badType(key, "duration of %d seconds is out of range", secs)
	}
	return time.Duration(secs) * time.Second, nil
}
