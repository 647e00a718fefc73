// Package codetables holds the static electrical code tables used by the sizing engine:
// conductor ampacity and resistance by gauge, ambient-temperature and grouping correction
// factors, and the standard overcurrent device series.
//
// The correction tables are deliberately coarse. A deployment that needs the full code
// tables can swap the data here without changing the selection algorithm.
package codetables

// Material identifies the conductor metal.
type Material string

const (
	Copper   Material = "cu"
	Aluminum Material = "al"
)

// Rating identifies the insulation temperature column of the ampacity table.
type Rating int

const (
	Rating75C Rating = 75
	Rating90C Rating = 90
)

// Gauge is one row of the conductor table.
type Gauge struct {
	Label   string
	AreaMM2 float64

	// Ampacity in amperes per material and rating column; 0 means not listed.
	Cu75 float64
	Cu90 float64
	Al75 float64
	Al90 float64

	// DC resistance at 75 °C in ohm per km; 0 means not listed.
	CuOhmKm float64
	AlOhmKm float64
}

// gauges is ordered from smallest to largest cross-section.
var gauges = []Gauge{
	{Label: "14 AWG", AreaMM2: 2.08, Cu75: 20, Cu90: 25, CuOhmKm: 10.2},
	{Label: "12 AWG", AreaMM2: 3.31, Cu75: 25, Cu90: 30, Al75: 20, Al90: 25, CuOhmKm: 6.39, AlOhmKm: 10.5},
	{Label: "10 AWG", AreaMM2: 5.26, Cu75: 35, Cu90: 40, Al75: 30, Al90: 35, CuOhmKm: 4.02, AlOhmKm: 6.64},
	{Label: "8 AWG", AreaMM2: 8.37, Cu75: 50, Cu90: 55, Al75: 40, Al90: 45, CuOhmKm: 2.53, AlOhmKm: 4.18},
	{Label: "6 AWG", AreaMM2: 13.3, Cu75: 65, Cu90: 75, Al75: 50, Al90: 55, CuOhmKm: 1.61, AlOhmKm: 2.66},
	{Label: "4 AWG", AreaMM2: 21.2, Cu75: 85, Cu90: 95, Al75: 65, Al90: 75, CuOhmKm: 1.01, AlOhmKm: 1.67},
	{Label: "3 AWG", AreaMM2: 26.7, Cu75: 100, Cu90: 115, Al75: 75, Al90: 85, CuOhmKm: 0.802, AlOhmKm: 1.32},
	{Label: "2 AWG", AreaMM2: 33.6, Cu75: 115, Cu90: 130, Al75: 90, Al90: 100, CuOhmKm: 0.634, AlOhmKm: 1.05},
	{Label: "1 AWG", AreaMM2: 42.4, Cu75: 130, Cu90: 145, Al75: 100, Al90: 115, CuOhmKm: 0.505, AlOhmKm: 0.833},
	{Label: "1/0 AWG", AreaMM2: 53.5, Cu75: 150, Cu90: 170, Al75: 120, Al90: 135, CuOhmKm: 0.399, AlOhmKm: 0.661},
	{Label: "2/0 AWG", AreaMM2: 67.4, Cu75: 175, Cu90: 195, Al75: 135, Al90: 150, CuOhmKm: 0.317, AlOhmKm: 0.524},
	{Label: "3/0 AWG", AreaMM2: 85.0, Cu75: 200, Cu90: 225, Al75: 155, Al90: 175, CuOhmKm: 0.2512, AlOhmKm: 0.415},
	{Label: "4/0 AWG", AreaMM2: 107, Cu75: 230, Cu90: 260, Al75: 180, Al90: 205, CuOhmKm: 0.1996, AlOhmKm: 0.329},
	{Label: "250 kcmil", AreaMM2: 127, Cu75: 255, Cu90: 290, Al75: 205, Al90: 230, CuOhmKm: 0.1687, AlOhmKm: 0.279},
	{Label: "300 kcmil", AreaMM2: 152, Cu75: 285, Cu90: 320, Al75: 230, Al90: 260, CuOhmKm: 0.1409, AlOhmKm: 0.233},
	{Label: "350 kcmil", AreaMM2: 177, Cu75: 310, Cu90: 350, Al75: 250, Al90: 280, CuOhmKm: 0.1205, AlOhmKm: 0.199},
	{Label: "500 kcmil", AreaMM2: 253, Cu75: 380, Cu90: 430, Al75: 310, Al90: 350, CuOhmKm: 0.0845, AlOhmKm: 0.139},
}

// breakerSizes is the standard ascending overcurrent device series in amperes.
var breakerSizes = []float64{15, 20, 25, 30, 35, 40, 45, 50, 60, 70, 80, 90, 100, 110, 125, 150, 175, 200}

// Gauges returns the conductor table for a material, smallest first. Rows with no
// ampacity or resistance listed for the material are omitted. The slice is a copy.
func Gauges(m Material) []Gauge {
	out := make([]Gauge, 0, len(gauges))
	for _, g := range gauges {
		if g.Ampacity(m, Rating75C) > 0 && g.OhmPerKm(m) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Ampacity returns the base ampacity of the gauge for a material and rating column.
func (g Gauge) Ampacity(m Material, r Rating) float64 {
	switch {
	case m == Copper && r == Rating90C:
		return g.Cu90
	case m == Copper:
		return g.Cu75
	case m == Aluminum && r == Rating90C:
		return g.Al90
	case m == Aluminum:
		return g.Al75
	}
	return 0
}

// OhmPerKm returns the conductor resistance for a material.
func (g Gauge) OhmPerKm(m Material) float64 {
	switch m {
	case Copper:
		return g.CuOhmKm
	case Aluminum:
		return g.AlOhmKm
	}
	return 0
}

// TemperatureFactor maps ambient temperature in °C to an ampacity multiplier.
func TemperatureFactor(ambientC float64) float64 {
	switch {
	case ambientC <= 30:
		return 1.00
	case ambientC <= 40:
		return 0.91
	case ambientC <= 50:
		return 0.82
	default:
		return 0.71
	}
}

// GroupingFactor maps the number of current-carrying conductors in one raceway
// to an ampacity multiplier.
func GroupingFactor(conductors int) float64 {
	switch {
	case conductors <= 3:
		return 1.00
	case conductors <= 6:
		return 0.80
	case conductors <= 9:
		return 0.70
	default:
		return 0.50
	}
}

// BreakerSizes returns a copy of the standard overcurrent device series.
func BreakerSizes() []float64 {
	out := make([]float64, len(breakerSizes))
	copy(out, breakerSizes)
	return out
}

// NextBreaker returns the smallest standard rating that is >= current. When the
// current exceeds the series, the largest rating is returned with ok=false.
func NextBreaker(current float64) (rating float64, ok bool) {
	for _, size := range breakerSizes {
		if size >= current {
			return size, true
		}
	}
	return breakerSizes[len(breakerSizes)-1], false
}

// ValidMaterial reports whether m is a known conductor material.
func ValidMaterial(m Material) bool {
	return m == Copper || m == Aluminum
}
