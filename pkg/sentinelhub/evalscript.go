package sentinelhub

// statsEvalscript emits per-pixel NDVI plus the reflectance bands needed for
// the secondary indices. Cloud, shadow and snow pixels are masked using the
// scene classification layer.
const statsEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{ bands: ["B02", "B03", "B04", "B08", "B11", "SCL", "dataMask"] }],
    output: [
      { id: "indices", bands: 1, sampleType: "FLOAT32" },
      { id: "reflectance", bands: 5, sampleType: "FLOAT32" },
      { id: "dataMask", bands: 1 }
    ]
  };
}

function isClear(scl) {
  return ![0, 1, 3, 8, 9, 10, 11].includes(scl);
}

function evaluatePixel(s) {
  var ndvi = (s.B08 - s.B04) / (s.B08 + s.B04);
  var valid = s.dataMask === 1 && isClear(s.SCL) && isFinite(ndvi) ? 1 : 0;
  return {
    indices: [ndvi],
    reflectance: [s.B02, s.B03, s.B04, s.B08, s.B11],
    dataMask: [valid]
  };
}
`

// Output and band names produced by statsEvalscript.
const (
	OutputIndices     = "indices"
	OutputReflectance = "reflectance"
)

// reflectanceOrder lists the reflectance output bands: blue (B02), green
// (B03), red (B04), near infrared (B08) and short-wave infrared (B11).
var reflectanceOrder = []string{"B0", "B1", "B2", "B3", "B4"}

// samplePercentiles are the NDVI percentiles requested per interval.
func samplePercentiles() []float64 {
	k := make([]float64, 0, 19)
	for p := 5; p <= 95; p += 5 {
		k = append(k, float64(p))
	}
	return k
}
