// Package factory builds randomized promotions for tests and local seeding.
package factory

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"promotions-service/internal/models"
)

var titles = []string{
	"New Customer",
	"Spring Sale",
	"Back To School",
	"Black Friday",
	"Loyalty Reward",
	"Clearance",
}

// NewPromotion returns an unsaved promotion with every field populated.
func NewPromotion() models.Promotion {
	promoType := models.PercentageDiscount
	value := decimal.NewFromInt(int64(rand.IntN(50) + 5))
	if rand.IntN(2) == 1 {
		promoType = models.AmountDiscount
		value = decimal.New(int64(rand.IntN(10000)+100), -2)
	}

	created := time.Now().UTC().AddDate(0, 0, -rand.IntN(30))
	start := created.AddDate(0, 0, rand.IntN(14))

	return models.Promotion{
		Title:       titles[rand.IntN(len(titles))],
		Description: fmt.Sprintf("Generated promotion %d", rand.IntN(100000)),
		PromoCode:   PromoCode(),
		PromoType:   promoType,
		PromoValue:  value,
		StartDate:   truncateDay(start),
		CreatedDate: truncateDay(created),
		Duration:    time.Duration(rand.IntN(30)+1)*24*time.Hour + time.Duration(rand.IntN(86400))*time.Second,
		Active:      rand.IntN(2) == 1,
	}
}

// PromoCode returns a unique upper-case code.
func PromoCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
