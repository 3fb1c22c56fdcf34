package domain

// SensorReading is one telemetry sample from the statistics feed.
type SensorReading struct {
	Time           string   `json:"time,omitempty"`
	Day            string   `json:"day,omitempty"`
	Temperature    float64  `json:"temperature"`
	WaterQuality   float64  `json:"waterQuality"`
	BatteryLevel   float64  `json:"batteryLevel"`
	BatteryLevel2  *float64 `json:"batteryLevel2,omitempty"`
	BatteryLevel3  *float64 `json:"batteryLevel3,omitempty"`
	WasteCollected float64  `json:"wasteCollected"`
	Timestamp      int64    `json:"timestamp"`
}

// WasteType is one slice of the collected-waste breakdown.
type WasteType struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Statistics bundles the three feeds shown on the statistics page.
type Statistics struct {
	Daily      []SensorReading `json:"daily"`
	Weekly     []SensorReading `json:"weekly"`
	WasteTypes []WasteType     `json:"wasteTypes"`
}
