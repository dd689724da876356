package search

// TimeMultipliers converts a time unit to seconds.
var TimeMultipliers = map[string]float64{
	"hours":  3600,
	"days":   86400,
	"weeks":  604800,
	"months": 2626560,
	"years":  31557600,
}

// IsTimeUnit reports whether unit is a recognised time unit.
func IsTimeUnit(unit string) bool {
	_, ok := TimeMultipliers[unit]
	return ok
}

// ConvertTime converts value between two time units. Unknown units leave the value unchanged.
func ConvertTime(value float64, from, to string) float64 {
	if from == to {
		return value
	}
	fromMultiplier, okFrom := TimeMultipliers[from]
	toMultiplier, okTo := TimeMultipliers[to]
	if !okFrom || !okTo {
		return value
	}
	return value * fromMultiplier / toMultiplier
}

// ToSeconds converts value expressed in unit to seconds.
func ToSeconds(value float64, unit string) float64 {
	if multiplier, ok := TimeMultipliers[unit]; ok {
		return value * multiplier
	}
	return value
}
