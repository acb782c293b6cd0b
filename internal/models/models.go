package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PromotionType is the closed set of discount kinds a promotion can carry.
type PromotionType int

const (
	// PromotionTypeUnknown is the zero value and never valid on a stored promotion.
	PromotionTypeUnknown PromotionType = iota
	PercentageDiscount
	AmountDiscount
)

var promotionTypeNames = map[PromotionType]string{
	PercentageDiscount: "PERCENTAGE_DISCOUNT",
	AmountDiscount:     "AMOUNT_DISCOUNT",
}

var promotionTypesByName = func() map[string]PromotionType {
	byName := make(map[string]PromotionType, len(promotionTypeNames))
	for t, name := range promotionTypeNames {
		byName[name] = t
	}
	return byName
}()

// ParsePromotionType resolves a member by its exact name.
func ParsePromotionType(name string) (PromotionType, bool) {
	t, ok := promotionTypesByName[name]
	return t, ok
}

// PromotionTypeNames lists every valid member name.
func PromotionTypeNames() []string {
	return []string{
		promotionTypeNames[PercentageDiscount],
		promotionTypeNames[AmountDiscount],
	}
}

func (t PromotionType) Valid() bool {
	_, ok := promotionTypeNames[t]
	return ok
}

func (t PromotionType) String() string {
	if name, ok := promotionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PromotionType(%d)", int(t))
}

// Value stores the member name, never the ordinal.
func (t PromotionType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid promotion type %d", int(t))
	}
	return t.String(), nil
}

// Scan implements sql.Scanner.
func (t *PromotionType) Scan(src any) error {
	var name string
	switch v := src.(type) {
	case string:
		name = v
	case []byte:
		name = string(v)
	default:
		return fmt.Errorf("cannot scan %T into PromotionType", src)
	}
	parsed, ok := ParsePromotionType(name)
	if !ok {
		return fmt.Errorf("unknown promotion type %q", name)
	}
	*t = parsed
	return nil
}

// Promotion is a discount campaign record.
type Promotion struct {
	ID          int64 // 0 until the store assigns one
	Title       string
	Description string
	PromoCode   string
	PromoType   PromotionType
	PromoValue  decimal.Decimal
	StartDate   time.Time // date only, UTC midnight
	CreatedDate time.Time // date only, UTC midnight
	Duration    time.Duration
	Active      bool
}

func (p Promotion) String() string {
	id := "None"
	if p.ID != 0 {
		id = fmt.Sprintf("%d", p.ID)
	}
	return fmt.Sprintf("<Promotion %s id=[%s]>", p.Title, id)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
