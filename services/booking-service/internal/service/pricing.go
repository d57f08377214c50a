package service

import (
	"time"

	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/domain"
)

// Price computes hourlyRate * elapsed time for the half-open slot
// [start, end). Everything stays in integer minor units: the duration is
// taken in whole minutes and scaled, so fractional hours (90 min at 50,000
// -> 75,000) come out exact with no float drift. This is the only price
// formula; any duration-picker UI must resolve to start/end before it gets
// here.
func Price(hourlyRate int64, start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, domain.Validationf("end time must be after start time")
	}
	mins := int64(end.Sub(start) / time.Minute)
	if mins <= 0 {
		return 0, domain.Validationf("booking must span at least one minute")
	}
	return hourlyRate * mins / 60, nil
}
