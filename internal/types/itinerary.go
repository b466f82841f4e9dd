package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Pace is the per-day activity density preference.
type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PaceFast     Pace = "fast"
)

// ActivityRange returns the inclusive per-day activity count range for a
// pace. Unknown paces report ok=false.
func (p Pace) ActivityRange() (min, max int, ok bool) {
	switch p {
	case PaceRelaxed:
		return 2, 3, true
	case PaceModerate:
		return 3, 4, true
	case PaceFast:
		return 4, 5, true
	}
	return 0, 0, false
}

// TravelMode is how the user arrives at the destination.
const (
	TravelModeRoad     = "road"
	TravelModeAirplane = "airplane"
	TravelModeRailway  = "railway"
)

// Time block identifiers, in chronological order.
var TimeBlockNames = []string{"morning", "afternoon", "evening"}

// Activity is an instantiated POI inside a time block. The POI fields
// (name, location, source id, duration) mirror the underlying POI exactly.
type Activity struct {
	Activity               string    `json:"activity"`
	TimeSlot               string    `json:"time"`
	DurationMinutes        int       `json:"duration_minutes"`
	TravelTimeFromPrevious int       `json:"travel_time_from_previous"`
	Location               *Location `json:"location,omitempty"`
	Category               Category  `json:"category,omitempty"`
	SourceID               string    `json:"source_id,omitempty"`
	DataSource             string    `json:"data_source,omitempty"`
	Description            string    `json:"description,omitempty"`
	OpeningHours           string    `json:"opening_hours,omitempty"`
	Rating                 float64   `json:"rating,omitempty"`
	Indoor                 *bool     `json:"indoor,omitempty"`
	Note                   string    `json:"note,omitempty"`
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	out := a
	if a.Location != nil {
		loc := *a.Location
		out.Location = &loc
	}
	if a.Indoor != nil {
		b := *a.Indoor
		out.Indoor = &b
	}
	return out
}

// TimeBlock is an ordered list of activities inside a day segment.
type TimeBlock struct {
	Activities []Activity `json:"activities"`
}

// Clone returns a deep copy of the block.
func (tb TimeBlock) Clone() TimeBlock {
	out := TimeBlock{Activities: make([]Activity, 0, len(tb.Activities))}
	for _, a := range tb.Activities {
		out.Activities = append(out.Activities, a.Clone())
	}
	return out
}

// DayItinerary holds the three time blocks of a single day.
type DayItinerary struct {
	Morning   TimeBlock `json:"morning"`
	Afternoon TimeBlock `json:"afternoon"`
	Evening   TimeBlock `json:"evening"`
}

// Clone returns a deep copy of the day.
func (d DayItinerary) Clone() DayItinerary {
	return DayItinerary{
		Morning:   d.Morning.Clone(),
		Afternoon: d.Afternoon.Clone(),
		Evening:   d.Evening.Clone(),
	}
}

// Block returns a pointer to the named time block, or nil.
func (d *DayItinerary) Block(name string) *TimeBlock {
	switch name {
	case "morning":
		return &d.Morning
	case "afternoon":
		return &d.Afternoon
	case "evening":
		return &d.Evening
	}
	return nil
}

// Activities returns the day's activities flattened in chronological order.
func (d DayItinerary) Activities() []Activity {
	out := make([]Activity, 0, len(d.Morning.Activities)+len(d.Afternoon.Activities)+len(d.Evening.Activities))
	out = append(out, d.Morning.Activities...)
	out = append(out, d.Afternoon.Activities...)
	out = append(out, d.Evening.Activities...)
	return out
}

// DayKey formats the itinerary key for a 1-based day number.
func DayKey(n int) string {
	return fmt.Sprintf("day_%d", n)
}

// DayNumber parses a day_N key; ok is false for anything else.
func DayNumber(key string) (int, bool) {
	rest, found := strings.CutPrefix(key, "day_")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Itinerary is a complete day-blocked plan. Its JSON form keeps the day_N
// maps at the top level next to the metadata fields, matching the shape
// clients and the LLM exchange.
type Itinerary struct {
	City            string                 `json:"city"`
	DurationDays    int                    `json:"duration_days"`
	Pace            Pace                   `json:"pace"`
	Interests       []string               `json:"interests,omitempty"`
	Budget          string                 `json:"budget,omitempty"`
	TravelDates     []string               `json:"travel_dates,omitempty"`
	TravelMode      string                 `json:"travel_mode,omitempty"`
	StartingPoint   string                 `json:"starting_point,omitempty"`
	StartingLoc     *Location              `json:"starting_point_location,omitempty"`
	Weather         map[string]DayForecast `json:"weather,omitempty"`
	Days            map[string]*DayItinerary
	TotalTravelTime int `json:"total_travel_time"`
}

// Day returns the 1-based day, or nil when absent.
func (it *Itinerary) Day(n int) *DayItinerary {
	if it.Days == nil {
		return nil
	}
	return it.Days[DayKey(n)]
}

// SetDay stores the 1-based day, allocating the map as needed.
func (it *Itinerary) SetDay(n int, d *DayItinerary) {
	if it.Days == nil {
		it.Days = make(map[string]*DayItinerary)
	}
	it.Days[DayKey(n)] = d
}

// SortedDayKeys returns the present day_N keys ordered by day number.
func (it *Itinerary) SortedDayKeys() []string {
	keys := make([]string, 0, len(it.Days))
	for k := range it.Days {
		if _, ok := DayNumber(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := DayNumber(keys[i])
		b, _ := DayNumber(keys[j])
		return a < b
	})
	return keys
}

// AllActivities flattens every day's activities in chronological order.
func (it *Itinerary) AllActivities() []Activity {
	var out []Activity
	for _, key := range it.SortedDayKeys() {
		out = append(out, it.Days[key].Activities()...)
	}
	return out
}

// SumTravelTime totals travel_time_from_previous across all activities.
func (it *Itinerary) SumTravelTime() int {
	total := 0
	for _, a := range it.AllActivities() {
		total += a.TravelTimeFromPrevious
	}
	return total
}

// Clone returns a deep copy of the itinerary.
func (it *Itinerary) Clone() *Itinerary {
	if it == nil {
		return nil
	}
	out := *it
	out.Interests = append([]string(nil), it.Interests...)
	out.TravelDates = append([]string(nil), it.TravelDates...)
	if it.StartingLoc != nil {
		loc := *it.StartingLoc
		out.StartingLoc = &loc
	}
	if it.Weather != nil {
		out.Weather = make(map[string]DayForecast, len(it.Weather))
		for k, v := range it.Weather {
			out.Weather[k] = v
		}
	}
	if it.Days != nil {
		out.Days = make(map[string]*DayItinerary, len(it.Days))
		for k, d := range it.Days {
			day := d.Clone()
			out.Days[k] = &day
		}
	}
	return &out
}

// itineraryMeta mirrors the fixed fields for (un)marshalling.
type itineraryMeta struct {
	City            string                 `json:"city"`
	DurationDays    int                    `json:"duration_days"`
	Pace            Pace                   `json:"pace"`
	Interests       []string               `json:"interests,omitempty"`
	Budget          string                 `json:"budget,omitempty"`
	TravelDates     []string               `json:"travel_dates,omitempty"`
	TravelMode      string                 `json:"travel_mode,omitempty"`
	StartingPoint   string                 `json:"starting_point,omitempty"`
	StartingLoc     *Location              `json:"starting_point_location,omitempty"`
	Weather         map[string]DayForecast `json:"weather,omitempty"`
	TotalTravelTime int                    `json:"total_travel_time"`
}

func (it Itinerary) MarshalJSON() ([]byte, error) {
	meta := itineraryMeta{
		City:            it.City,
		DurationDays:    it.DurationDays,
		Pace:            it.Pace,
		Interests:       it.Interests,
		Budget:          it.Budget,
		TravelDates:     it.TravelDates,
		TravelMode:      it.TravelMode,
		StartingPoint:   it.StartingPoint,
		StartingLoc:     it.StartingLoc,
		Weather:         it.Weather,
		TotalTravelTime: it.TotalTravelTime,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for key, day := range it.Days {
		b, err := json.Marshal(day)
		if err != nil {
			return nil, err
		}
		merged[key] = b
	}
	return json.Marshal(merged)
}

func (it *Itinerary) UnmarshalJSON(data []byte) error {
	var meta itineraryMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	it.City = meta.City
	it.DurationDays = meta.DurationDays
	it.Pace = meta.Pace
	it.Interests = meta.Interests
	it.Budget = meta.Budget
	it.TravelDates = meta.TravelDates
	it.TravelMode = meta.TravelMode
	it.StartingPoint = meta.StartingPoint
	it.StartingLoc = meta.StartingLoc
	it.Weather = meta.Weather
	it.TotalTravelTime = meta.TotalTravelTime
	it.Days = nil
	for key, raw := range fields {
		if _, ok := DayNumber(key); !ok {
			continue
		}
		var day DayItinerary
		if err := json.Unmarshal(raw, &day); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		it.SetDay(mustDayNumber(key), &day)
	}
	return nil
}

func mustDayNumber(key string) int {
	n, _ := DayNumber(key)
	return n
}
