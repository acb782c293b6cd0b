package factory

import (
	"testing"
	"time"
)

func TestNewPromotion(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p := NewPromotion()

		if p.ID != 0 {
			t.Errorf("Expected an unsaved promotion, got id %d", p.ID)
		}
		if p.Title == "" || !p.PromoType.Valid() {
			t.Errorf("Expected title and type to be set, got %+v", p)
		}
		if p.Duration <= 0 || p.Duration%time.Second != 0 {
			t.Errorf("Expected a positive whole-second duration, got %s", p.Duration)
		}
		if p.StartDate.Hour() != 0 || p.StartDate.Location() != time.UTC {
			t.Errorf("Expected a UTC date, got %s", p.StartDate)
		}
		if len(p.PromoCode) != 12 || seen[p.PromoCode] {
			t.Errorf("Expected a fresh 12 character code, got %q", p.PromoCode)
		}
		seen[p.PromoCode] = true
	}
}
