package pricing

import (
	"errors"
	"time"

	"rental-service/models"
)

// ErrInvalidWindow is returned when the requested rental window is empty or
// inverted. It maps to a 400 at the HTTP boundary and must not be retried.
var ErrInvalidWindow = errors.New("pricing: end time must be after start time")

// ErrUnknownRentalType rejects a quote for a rental type outside the
// HOURLY/DAILY vocabulary. The HTTP layer validates earlier; internal callers
// get the same contract.
var ErrUnknownRentalType = errors.New("pricing: unknown rental type")

// RateConfig is the per-trailer rate card, fetched from the catalog service at
// quote time. All amounts are minor currency units.
type RateConfig struct {
	MinHours      int
	MinCost       int64
	HourPrice     int64
	DayPrice      int64
	PickupPrice   int64
	DepositAmount int64
}

// Breakdown is the frozen cost snapshot stored on the booking. DepositAmount
// is itemized but never part of Total: the deposit is authorized separately
// as a hold and settled after return.
type Breakdown struct {
	BaseCost      int64
	AddOnCost     int64
	DepositAmount int64
	Total         int64
}

// Quote prices a rental window. It is a pure function: identical inputs yield
// identical output, so the result can be snapshotted at booking creation and
// later rate changes cannot alter an existing booking's price.
func Quote(start, end time.Time, rentalType models.RentalType, addOns []string, cfg RateConfig) (Breakdown, error) {
	if !end.After(start) {
		return Breakdown{}, ErrInvalidWindow
	}

	duration := end.Sub(start)
	var base int64

	switch rentalType {
	case models.RentalDaily:
		days := int64((duration + 24*time.Hour - 1) / (24 * time.Hour))
		base = days * cfg.DayPrice
	case models.RentalHourly:
		hours := int64((duration + time.Hour - 1) / time.Hour)
		base = cfg.MinCost
		if hours > int64(cfg.MinHours) {
			base += (hours - int64(cfg.MinHours)) * cfg.HourPrice
		}
	default:
		return Breakdown{}, ErrUnknownRentalType
	}

	var addOnCost int64
	for _, a := range addOns {
		if a == models.AddOnPickup {
			addOnCost += cfg.PickupPrice
		}
	}

	return Breakdown{
		BaseCost:      base,
		AddOnCost:     addOnCost,
		DepositAmount: cfg.DepositAmount,
		Total:         base + addOnCost,
	}, nil
}
