package region

// Tables groups every location-dependent rule list used by classification
// and estimation.
type Tables struct {
	// DefaultThreshold is the temperate index threshold.
	DefaultThreshold float64
	// Thresholds override DefaultThreshold by biome.
	Thresholds RuleList
	// UrbanCores scale the threshold by the matched rule's Value; a rule
	// without a positive Value uses UrbanFactor.
	UrbanFactor float64
	UrbanCores  RuleList

	// Bands give the latitude baseline for estimation; Baselines override it
	// for named regions.
	DefaultBaseline float64
	Bands           RuleList
	Baselines       RuleList

	Seasonal          RuleList
	DefaultImpervious float64
	Impervious        RuleList
}

// Threshold returns the effective classification threshold at a location and
// the name of the biome rule that produced it.
func (t *Tables) Threshold(lat, lon float64) (float64, string) {
	v, name := t.Thresholds.Resolve(lat, lon, t.DefaultThreshold)
	if core, ok := t.UrbanCores.Match(lat, lon); ok {
		factor := core.Value
		if factor <= 0 {
			factor = t.UrbanFactor
		}
		v *= factor
		name += "+urban"
	}
	return v, name
}

// Baseline returns the expected mean index for estimation.
func (t *Tables) Baseline(lat, lon float64) (float64, string) {
	band, bandName := t.Bands.Resolve(lat, lon, t.DefaultBaseline)
	if v, name := t.Baselines.Resolve(lat, lon, band); name != "default" {
		return v, name
	}
	return band, bandName
}

// SeasonalFactor scales the baseline for the composite season.
func (t *Tables) SeasonalFactor(lat, lon float64) float64 {
	v, _ := t.Seasonal.Resolve(lat, lon, 1)
	return v
}

// ImperviousProbability is the chance a sample falls on built surface.
func (t *Tables) ImperviousProbability(lat, lon float64) float64 {
	v, _ := t.Impervious.Resolve(lat, lon, t.DefaultImpervious)
	return v
}

// named boxes shared by several tables.
var (
	amazon          = Box{South: -15, West: -75, North: 5, East: -45}
	congo           = Box{South: -6, West: 12, North: 5, East: 30}
	southeastAsia   = Box{South: -10, West: 95, North: 8, East: 150}
	centralAmerica  = Box{South: 8, West: -92, North: 17, East: -77}
	pacificNW       = Box{South: 42, West: -130, North: 60, East: -120}
	valdivian       = Box{South: -48, West: -75, North: -37, East: -71}
	newZealandWest  = Box{South: -47, West: 166, North: -40, East: 172}
	tasmania        = Box{South: -44, West: 144, North: -40, East: 149}
	sahara          = Box{South: 16, West: -17, North: 30, East: 35}
	arabia          = Box{South: 15, West: 35, North: 32, East: 60}
	mojaveSonoran   = Box{South: 28, West: -118, North: 37, East: -108}
	atacama         = Box{South: -28, West: -71, North: -18, East: -68}
	australianArid  = Box{South: -32, West: 120, North: -20, East: 145}
	gobi            = Box{South: 38, West: 90, North: 46, East: 112}
	thar            = Box{South: 24, West: 69, North: 30, East: 75}
	kalahari        = Box{South: -28, West: 18, North: -20, East: 26}
	manhattan       = Box{South: 40.70, West: -74.02, North: 40.88, East: -73.90}
	tokyo           = Box{South: 35.60, West: 139.65, North: 35.75, East: 139.85}
	hongKong        = Box{South: 22.25, West: 114.10, North: 22.35, East: 114.25}
	singapore       = Box{South: 1.25, West: 103.80, North: 1.35, East: 103.90}
	paris           = Box{South: 48.81, West: 2.25, North: 48.90, East: 2.42}
	london          = Box{South: 51.48, West: -0.20, North: 51.54, East: -0.05}
	mumbai          = Box{South: 18.90, West: 72.80, North: 19.10, East: 72.95}
	cairo           = Box{South: 29.95, West: 31.15, North: 30.15, East: 31.35}
	mexicoCity      = Box{South: 19.30, West: -99.25, North: 19.50, East: -99.05}
	dubai           = Box{South: 25.05, West: 55.10, North: 25.30, East: 55.40}
	phoenix         = Box{South: 33.30, West: -112.30, North: 33.70, East: -111.80}
	lasVegas        = Box{South: 36.00, West: -115.35, North: 36.30, East: -115.00}
	denseUrbanCores = Boxes{manhattan, tokyo, hongKong, singapore, paris, london, mumbai, cairo, mexicoCity, dubai}
)

// Default returns the built-in tables.
func Default() *Tables {
	return &Tables{
		DefaultThreshold: 0.30,
		Thresholds: RuleList{
			{Name: "tropical-rainforest", Value: 0.35, Predicate: Boxes{amazon, congo, southeastAsia, centralAmerica}},
			{Name: "temperate-rainforest", Value: 0.33, Predicate: Boxes{pacificNW, valdivian, newZealandWest, tasmania}},
			{Name: "subtropical", Value: 0.28, Predicate: Boxes{
				{South: 25, West: -98, North: 36, East: -75},
				{South: 22, West: 105, North: 32, East: 122},
				{South: -30, West: -55, North: -20, East: -40},
				{South: -34, West: 150, North: -24, East: 154},
			}},
			{Name: "mediterranean", Value: 0.25, Predicate: Boxes{
				{South: 30, West: -10, North: 45, East: 36},
				{South: 32, West: -124, North: 40, East: -118.5},
				{South: -35, West: 17, North: -32, East: 21},
				{South: -37, West: -73, North: -32, East: -70},
				{South: -35, West: 114, North: -30, East: 119},
			}},
			{Name: "grassland", Value: 0.22, Predicate: Boxes{
				{South: 30, West: -105, North: 50, East: -95},
				{South: -39, West: -64, North: -30, East: -57},
				{South: 45, West: 30, North: 55, East: 90},
				{South: 10, West: -17, North: 16, East: 35},
			}},
			{Name: "arid", Value: 0.18, Predicate: Boxes{sahara, arabia, mojaveSonoran, atacama, australianArid, gobi, thar, kalahari}},
			{Name: "boreal", Value: 0.27, Predicate: LatBand{MinAbs: 55, MaxAbs: 70, Hemisphere: North}},
		},
		UrbanFactor: 0.85,
		UrbanCores:  RuleList{{Name: "dense-urban", Predicate: denseUrbanCores}},

		DefaultBaseline: 0.50,
		Bands: RuleList{
			{Name: "tropical", Value: 0.65, Predicate: LatBand{MinAbs: 0, MaxAbs: 23.5}},
			{Name: "subtropical", Value: 0.42, Predicate: LatBand{MinAbs: 23.5, MaxAbs: 35}},
			{Name: "temperate", Value: 0.50, Predicate: LatBand{MinAbs: 35, MaxAbs: 55}},
			{Name: "boreal", Value: 0.40, Predicate: LatBand{MinAbs: 55, MaxAbs: 66.5}},
			{Name: "polar", Value: 0.15, Predicate: LatBand{MinAbs: 66.5, MaxAbs: 90.1}},
		},
		Baselines: RuleList{
			{Name: "dubai", Value: 0.10, Predicate: dubai},
			{Name: "cairo", Value: 0.12, Predicate: cairo},
			{Name: "las-vegas", Value: 0.12, Predicate: lasVegas},
			{Name: "phoenix", Value: 0.18, Predicate: phoenix},
			{Name: "manhattan", Value: 0.25, Predicate: manhattan},
			{Name: "mexico-city", Value: 0.30, Predicate: mexicoCity},
			{Name: "mumbai", Value: 0.30, Predicate: mumbai},
			{Name: "tokyo", Value: 0.35, Predicate: tokyo},
			{Name: "paris", Value: 0.35, Predicate: paris},
			{Name: "london", Value: 0.45, Predicate: london},
			{Name: "hong-kong", Value: 0.45, Predicate: hongKong},
			{Name: "singapore", Value: 0.55, Predicate: singapore},
			{Name: "sahara", Value: 0.06, Predicate: sahara},
			{Name: "arabia", Value: 0.07, Predicate: arabia},
			{Name: "atacama", Value: 0.05, Predicate: atacama},
			{Name: "gobi", Value: 0.12, Predicate: gobi},
			{Name: "mojave-sonoran", Value: 0.15, Predicate: mojaveSonoran},
			{Name: "australian-interior", Value: 0.15, Predicate: australianArid},
			{Name: "thar", Value: 0.15, Predicate: thar},
			{Name: "kalahari", Value: 0.20, Predicate: kalahari},
			{Name: "amazon", Value: 0.78, Predicate: amazon},
			{Name: "congo", Value: 0.75, Predicate: congo},
			{Name: "southeast-asia", Value: 0.72, Predicate: southeastAsia},
			{Name: "central-america", Value: 0.70, Predicate: centralAmerica},
			{Name: "temperate-rainforest", Value: 0.70, Predicate: Boxes{pacificNW, valdivian, newZealandWest, tasmania}},
		},

		Seasonal: RuleList{
			{Name: "tropics", Value: 1.00, Predicate: LatBand{MinAbs: 0, MaxAbs: 23.5}},
			{Name: "south-subtropics", Value: 0.97, Predicate: LatBand{MinAbs: 23.5, MaxAbs: 35, Hemisphere: South}},
			{Name: "north-subtropics", Value: 0.95, Predicate: LatBand{MinAbs: 23.5, MaxAbs: 35, Hemisphere: North}},
			{Name: "south-temperate", Value: 0.94, Predicate: LatBand{MinAbs: 35, MaxAbs: 55, Hemisphere: South}},
			{Name: "north-temperate", Value: 0.92, Predicate: LatBand{MinAbs: 35, MaxAbs: 55, Hemisphere: North}},
			{Name: "boreal", Value: 0.85, Predicate: LatBand{MinAbs: 55, MaxAbs: 66.5}},
			{Name: "polar", Value: 0.70, Predicate: LatBand{MinAbs: 66.5, MaxAbs: 90.1}},
		},
		DefaultImpervious: 0.15,
		Impervious: RuleList{
			{Name: "dense-urban", Value: 0.35, Predicate: denseUrbanCores},
			{Name: "sprawl", Value: 0.25, Predicate: Boxes{phoenix, lasVegas}},
		},
	}
}
