package domain

// Category is the user-facing severity tier of an AQI value.
type Category string

const (
	CategoryGood     Category = "Good"
	CategoryModerate Category = "Moderate"
	CategoryPoor     Category = "Poor"
	CategoryVeryPoor Category = "Very Poor"
)

// Tier breakpoints and flag thresholds on the US AQI scale.
const (
	goodMax        = 50
	moderateMax    = 100
	poorMax        = 200
	alertAbove     = 150
	emergencyAbove = 200
)

const (
	adviceGood     = "Air quality is good. No health risks."
	adviceModerate = "Air quality is acceptable. Sensitive individuals should be cautious."
	advicePoor     = "Unhealthy for sensitive groups. Reduce prolonged outdoor activity."
	adviceVeryPoor = "Very unhealthy air. Avoid outdoor activities and wear protection."

	// EmergencyMessage accompanies every reading above the emergency threshold.
	EmergencyMessage = "Air Quality Emergency: AQI is extremely high. " +
		"Residents are advised to wear masks and avoid outdoor activities."
)

// ClassifiedReading is the derived view of a single sample.
type ClassifiedReading struct {
	City             string   `json:"city"`
	AQI              int      `json:"aqi"`
	Category         Category `json:"category"`
	HealthAdvice     string   `json:"health_advice"`
	Alert            bool     `json:"alert"`
	EmergencyMessage string   `json:"alert_message,omitempty"`
}

// Classify maps an AQI value to its tier, advice text, and alert flags.
// Tiers are evaluated in ascending order and the first match wins.
func Classify(city string, aqi int) ClassifiedReading {
	r := ClassifiedReading{
		City:  city,
		AQI:   aqi,
		Alert: aqi > alertAbove,
	}

	switch {
	case aqi <= goodMax:
		r.Category = CategoryGood
		r.HealthAdvice = adviceGood
	case aqi <= moderateMax:
		r.Category = CategoryModerate
		r.HealthAdvice = adviceModerate
	case aqi <= poorMax:
		r.Category = CategoryPoor
		r.HealthAdvice = advicePoor
	default:
		r.Category = CategoryVeryPoor
		r.HealthAdvice = adviceVeryPoor
	}

	if aqi > emergencyAbove {
		r.EmergencyMessage = EmergencyMessage
	}
	return r
}

// ClassifySample classifies an accepted sample.
func ClassifySample(s AqiSample) ClassifiedReading {
	return Classify(s.City, s.AQI)
}

// AlertRecord returns the record to queue for notification. The boolean is
// false unless the reading carries an emergency message.
func (r ClassifiedReading) AlertRecord() (AlertRecord, bool) {
	if r.EmergencyMessage == "" {
		return AlertRecord{}, false
	}
	return AlertRecord{City: r.City, AQI: r.AQI, Message: r.EmergencyMessage}, true
}

// LatestAQI returns the most recent non-null value of an hourly series.
func LatestAQI(series []HourlyAQI) (int, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].AQI != nil {
			return *series[i].AQI, true
		}
	}
	return 0, false
}
