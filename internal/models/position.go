package models

// BodyPosition is one body's position as reported by the ephemeris, plus its sidereal longitude.
type BodyPosition struct {
	Body              Body    `json:"body"`
	TropicalLongitude float64 `json:"tropical_longitude"`
	SiderealLongitude float64 `json:"sidereal_longitude"`
	Latitude          float64 `json:"latitude"`
	// Distance is in astronomical units.
	Distance float64 `json:"distance"`
	// Speed is the daily motion in longitude, degrees per day.
	Speed      float64 `json:"speed"`
	Retrograde bool    `json:"retrograde"`
}
