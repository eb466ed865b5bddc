// internal/rating/aggregator.go

// Package rating derives a facility's exposed average rating and minimum
// advertised price from persisted court/booking/rating data. Both walks are
// pure functions over loaded rows so listing handlers and tests share one
// implementation.
package rating

import (
	"math"

	"github.com/courtlyhq/courtly/internal/db"
)

// Average returns the mean of qualifying star values, rounded to one
// decimal, in [0, 5]. Stars of zero mean "no rating" and are excluded, never
// treated as zero; no qualifying ratings yields 0.
func Average(stars []int64) float64 {
	var sum, count int64
	for _, value := range stars {
		if value <= 0 {
			continue
		}
		sum += value
		count++
	}
	if count == 0 {
		return 0
	}
	average := float64(sum) / float64(count)
	average = math.Round(average*10) / 10
	if average < 0 || math.IsNaN(average) {
		return 0
	}
	if average > 5 {
		return 5
	}
	return average
}

// MinAdvertisedPrice returns the minimum price-per-hour over courts with a
// set price, optionally restricted to the given category set. An empty
// filter means no restriction; no qualifying court yields 0.
func MinAdvertisedPrice(courts []db.Court, categories []string) int64 {
	allowed := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		allowed[category] = struct{}{}
	}

	var min int64
	var found bool
	for _, court := range courts {
		if !court.PricePerHour.Valid {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[court.Category]; !ok {
				continue
			}
		}
		if !found || court.PricePerHour.Int64 < min {
			min = court.PricePerHour.Int64
			found = true
		}
	}
	if !found {
		return 0
	}
	return min
}
