package types

import "encoding/json"

type Station struct {
	ID        string   `json:"station"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Elevation *float64 `json:"elevation"`
}

// Measurement is one daily reading. Precipitation and Temperature are
// nullable in the dataset.
type Measurement struct {
	StationID     string   `json:"station"`
	Date          string   `json:"date"`
	Precipitation *float64 `json:"prcp"`
	Temperature   *float64 `json:"tobs"`
}

// Precipitation is a (date, prcp) row in query order.
type Precipitation struct {
	Date  string
	Value *float64
}

// Observation is a temperature reading and its date. It encodes as the
// two-element array [tobs, "date"].
type Observation struct {
	Temperature *float64
	Date        string
}

func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{o.Temperature, o.Date})
}

func (o *Observation) UnmarshalJSON(b []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &o.Temperature); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &o.Date)
}

// TemperatureSummary holds MIN/AVG/MAX over a date range. All three are nil
// when no row matched.
type TemperatureSummary struct {
	Min *float64 `json:"Temp Min"`
	Avg *float64 `json:"Temp Avg"`
	Max *float64 `json:"Temp Max"`
}

// PrecipitationByDate folds rows into a date-keyed map. Rows sharing a date
// (one per station) collapse to the last one in query order.
func PrecipitationByDate(rows []Precipitation) map[string]*float64 {
	out := make(map[string]*float64, len(rows))
	for _, r := range rows {
		out[r.Date] = r.Value
	}
	return out
}
