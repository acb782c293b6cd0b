package validation

import (
	"strconv"
	"strings"
	"unicode"

	"promotions-service/internal/models"
)

// ValidatePromotion checks the rules that hold regardless of the store:
// a non-empty title and a known promotion type. Duration is left to the store.
func ValidatePromotion(p models.Promotion) error {
	if SanitizeString(p.Title) == "" {
		return models.FieldConstraintError("title", "is required")
	}

	if !p.PromoType.Valid() {
		return &models.DataValidationError{
			Kind:    models.KindBadType,
			Field:   "promo_type",
			Message: "must be one of " + strings.Join(models.PromotionTypeNames(), ", "),
		}
	}

	return nil
}

// SanitizePromotion strips control characters and surrounding space from the
// text fields of p.
func SanitizePromotion(p *models.Promotion) {
	p.Title = SanitizeString(p.Title)
	p.Description = SanitizeString(p.Description)
	p.PromoCode = SanitizeString(p.PromoCode)
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ParseID parses a promotion ID taken from a URL path.
func ParseID(raw string) (int64, error) {
	raw = SanitizeString(raw)
	if raw == "" {
		return 0, &models.DataValidationError{
			Kind:    models.KindMissingField,
			Field:   "id",
			Message: "is required",
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.DataValidationError{
			Kind:    models.KindBadType,
			Field:   "id",
			Message: "must be a positive integer",
		}
	}

	return id, nil
}

// QueryParams flattens URL query values into one text value per field, using
// the first value given for each name.
func QueryParams(values map[string][]string) map[string]string {
	params := make(map[string]string, len(values))
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		params[SanitizeString(name)] = SanitizeString(vals[0])
	}
	return params
}
