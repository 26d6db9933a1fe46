package model

// CellState tracks a cell through one year's analysis.
type CellState string

const (
	CellPending    CellState = "pending"
	CellSampled    CellState = "sampled"
	CellClassified CellState = "classified"
	CellAggregated CellState = "aggregated"
	CellFailed     CellState = "failed"
)

// SampleSet holds the spectral values retrieved for one cell and year. It is
// discarded once the cell has been classified.
type SampleSet struct {
	Values    []float64          `json:"-"`
	Indices   map[string]float64 `json:"indices,omitempty"`
	Source    string             `json:"source"`
	Estimated bool               `json:"estimated"`
	// DataYear is the imagery year actually sampled, which can precede the
	// requested year while its season is still open.
	DataYear int `json:"dataYear,omitempty"`
}

// CellResult is the classification outcome for one cell.
type CellResult struct {
	Cell               Cell               `json:"cell"`
	VegetationFraction float64            `json:"vegetationFraction"`
	MeanIndex          float64            `json:"meanIndex"`
	Threshold          float64            `json:"threshold"`
	SampleCount        int                `json:"sampleCount"`
	VegetatedCount     int                `json:"vegetatedCount"`
	Indices            map[string]float64 `json:"indices,omitempty"`
	Estimated          bool               `json:"estimated,omitempty"`
	DataYear           int                `json:"dataYear,omitempty"`
}

// YearResult aggregates every cell analysed for a single year.
type YearResult struct {
	Year               int          `json:"year"`
	DataYear           int          `json:"dataYear"` // latest imagery year among analysed cells
	CoveragePercentage float64      `json:"coveragePercentage"`
	VegetatedArea      float64      `json:"vegetatedArea"` // km²
	Confidence         float64      `json:"confidence"`
	GridSize           int          `json:"gridSize"`
	AnalyzedCells      int          `json:"analyzedCells"`
	FailedCells        int          `json:"failedCells"`
	EstimatedCells     int          `json:"estimatedCells"`
	TotalSamples       int          `json:"totalSamples"`
	VegetatedSamples   int          `json:"vegetatedSamples"`
	MeanIndex          float64      `json:"meanIndex"`
	CellResults        []CellResult `json:"cellResults,omitempty"`
}

// YearRange bounds the historical years sampled for a trend.
type YearRange struct {
	StartYear int `json:"startYear"`
	EndYear   int `json:"endYear"`
}

// Trend directions.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// TrendResult is the final artifact of an analysis.
type TrendResult struct {
	Score             float64      `json:"score"`
	CurrentYearResult *YearResult  `json:"currentYearResult"`
	HistoricalSeries  []YearResult `json:"historicalSeries"`
	ChangePerYear     float64      `json:"changePerYear"`
	Direction         string       `json:"direction"`
	Area              float64      `json:"area"` // km²
	City              *City        `json:"city,omitempty"`
}

// City describes the place an analysis was requested for.
type City struct {
	Name      string  `json:"name"`
	Query     string  `json:"query,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
