package service

import (
	"math"
	"strings"

	"marketplace/internal/models"
)

// requireText trims value and checks it is non-blank and within limit.
func requireText(field, value string, limit int) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return value, models.Validationf("%s must not be blank", field)
	}
	if len(value) > limit {
		return value, models.Validationf("%s exceeds length limit: %d / %d", field, len(value), limit)
	}
	return value, nil
}

// requireAmount rounds value to cents and checks it is a finite amount of
// at least 0.01 that fits the stored NUMERIC(14, 2).
func requireAmount(field string, value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value, models.Validationf("%s must be a finite number, got %v", field, value)
	}
	rounded := math.Round(value*100) / 100
	if rounded < 0.01 {
		return value, models.Validationf("%s must be at least 0.01, got %v", field, value)
	}
	if rounded >= models.MaxAmount {
		return value, models.Validationf("%s must be less than %.0f, got %v", field, models.MaxAmount, value)
	}
	return rounded, nil
}
