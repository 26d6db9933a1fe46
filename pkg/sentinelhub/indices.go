package sentinelhub

import "math"

// Reflectance holds mean surface reflectance for the bands used by the
// vegetation indices.
type Reflectance struct {
	Blue, Green, Red, NIR, SWIR float64
}

// NDVI is (NIR - Red) / (NIR + Red).
func (r Reflectance) NDVI() float64 {
	return ratio(r.NIR-r.Red, r.NIR+r.Red)
}

// EVI is the enhanced vegetation index with the MODIS coefficients.
func (r Reflectance) EVI() float64 {
	return ratio(2.5*(r.NIR-r.Red), r.NIR+6*r.Red-7.5*r.Blue+1)
}

// GNDVI is (NIR - Green) / (NIR + Green).
func (r Reflectance) GNDVI() float64 {
	return ratio(r.NIR-r.Green, r.NIR+r.Green)
}

// BSI is the bare soil index.
func (r Reflectance) BSI() float64 {
	return ratio((r.SWIR+r.Red)-(r.NIR+r.Blue), (r.SWIR+r.Red)+(r.NIR+r.Blue))
}

// MSAVI2 is the modified soil-adjusted vegetation index.
func (r Reflectance) MSAVI2() float64 {
	a := 2*r.NIR + 1
	d := a*a - 8*(r.NIR-r.Red)
	if d < 0 {
		return math.NaN()
	}
	return (a - math.Sqrt(d)) / 2
}

// Indices returns every derived index keyed by lower-case name, dropping
// values that are not finite.
func (r Reflectance) Indices() map[string]float64 {
	out := make(map[string]float64, 5)
	for name, v := range map[string]float64{
		"ndvi":   r.NDVI(),
		"evi":    r.EVI(),
		"gndvi":  r.GNDVI(),
		"bsi":    r.BSI(),
		"msavi2": r.MSAVI2(),
	} {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[name] = v
		}
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
