package schedule

import "time"

// Meal types recorded on feeding logs.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// MealTypes lists the accepted meal type values.
var MealTypes = []string{MealBreakfast, MealLunch, MealDinner, MealSnack}

// MealTypeAt infers the meal from the local hour of t.
func MealTypeAt(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	switch h := t.In(loc).Hour(); {
	case h >= 5 && h < 11:
		return MealBreakfast
	case h >= 11 && h < 15:
		return MealLunch
	case h >= 17 && h < 21:
		return MealDinner
	default:
		return MealSnack
	}
}
