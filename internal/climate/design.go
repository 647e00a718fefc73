package climate

import (
	"fmt"
	"math"
	"sort"
)

// Temperatures are the design temperatures for a site
type Temperatures struct {
	TMinC    float64 `json:"t_min_c"`   // record minimum, feeds cold Voc
	AmbientC float64 `json:"ambient_c"` // mean of the yearly maxima, feeds conductor derating
	Years    []int   `json:"years"`
	Days     int     `json:"days"`
	From     string  `json:"from"`
	To       string  `json:"to"`
}

// Summarize reduces daily history to design temperatures: the lowest minimum seen
// and the mean over calendar years of each year's highest maximum.
func Summarize(days []Day) (Temperatures, error) {
	if len(days) == 0 {
		return Temperatures{}, ErrNoData
	}

	t := Temperatures{TMinC: math.Inf(1), Days: len(days)}
	yearMax := make(map[int]float64)
	first, last := days[0].Date, days[0].Date

	for _, d := range days {
		t.TMinC = math.Min(t.TMinC, d.MinTempC)
		y := d.Date.Year()
		if m, ok := yearMax[y]; !ok || d.MaxTempC > m {
			yearMax[y] = d.MaxTempC
		}
		if d.Date.Before(first) {
			first = d.Date
		}
		if d.Date.After(last) {
			last = d.Date
		}
	}

	sum := 0.0
	for y, m := range yearMax {
		t.Years = append(t.Years, y)
		sum += m
	}
	sort.Ints(t.Years)
	t.AmbientC = round1(sum / float64(len(yearMax)))
	t.TMinC = round1(t.TMinC)
	t.From = first.Format(dateLayout)
	t.To = last.Format(dateLayout)
	return t, nil
}

func (t Temperatures) String() string {
	return fmt.Sprintf("t_min %.1f °C, ambient %.1f °C (%d days, %s to %s)", t.TMinC, t.AmbientC, t.Days, t.From, t.To)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
