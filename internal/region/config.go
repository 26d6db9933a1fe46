package region

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of a rules override file. Any list present
// replaces the built-in list of the same name; scalar fields left at zero
// keep their defaults.
type FileConfig struct {
	Thresholds struct {
		Default     float64    `yaml:"default"`
		UrbanFactor float64    `yaml:"urban_factor"`
		Rules       []RuleSpec `yaml:"rules"`
		UrbanCores  []RuleSpec `yaml:"urban_cores"`
	} `yaml:"thresholds"`
	Estimation struct {
		DefaultBaseline   float64    `yaml:"default_baseline"`
		DefaultImpervious float64    `yaml:"default_impervious"`
		Bands             []RuleSpec `yaml:"bands"`
		Baselines         []RuleSpec `yaml:"baselines"`
		Seasonal          []RuleSpec `yaml:"seasonal"`
		Impervious        []RuleSpec `yaml:"impervious"`
	} `yaml:"estimation"`
}

// RuleSpec is one rule in a rules file. Boxes are [south, west, north, east].
type RuleSpec struct {
	Name  string      `yaml:"name"`
	Value float64     `yaml:"value"`
	Boxes [][]float64 `yaml:"boxes"`
	Band  *BandSpec   `yaml:"band"`
}

// BandSpec is a latitude band in a rules file.
type BandSpec struct {
	MinAbs     float64 `yaml:"min_abs"`
	MaxAbs     float64 `yaml:"max_abs"`
	Hemisphere string  `yaml:"hemisphere"`
}

// LoadFile reads a YAML rules file and overlays it on the built-in tables.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read rules %s", path)
	}
	return Parse(data)
}

// Parse overlays YAML rules on the built-in tables.
func Parse(data []byte) (*Tables, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "region: parse rules")
	}

	t := Default()
	if fc.Thresholds.Default > 0 {
		t.DefaultThreshold = fc.Thresholds.Default
	}
	if fc.Thresholds.UrbanFactor > 0 {
		t.UrbanFactor = fc.Thresholds.UrbanFactor
	}
	if fc.Estimation.DefaultBaseline > 0 {
		t.DefaultBaseline = fc.Estimation.DefaultBaseline
	}
	if fc.Estimation.DefaultImpervious > 0 {
		t.DefaultImpervious = fc.Estimation.DefaultImpervious
	}

	lists := []struct {
		specs []RuleSpec
		dst   *RuleList
	}{
		{fc.Thresholds.Rules, &t.Thresholds},
		{fc.Thresholds.UrbanCores, &t.UrbanCores},
		{fc.Estimation.Bands, &t.Bands},
		{fc.Estimation.Baselines, &t.Baselines},
		{fc.Estimation.Seasonal, &t.Seasonal},
		{fc.Estimation.Impervious, &t.Impervious},
	}
	for _, l := range lists {
		if len(l.specs) == 0 {
			continue
		}
		rl, err := buildRules(l.specs)
		if err != nil {
			return nil, err
		}
		*l.dst = rl
	}
	return t, nil
}

func buildRules(specs []RuleSpec) (RuleList, error) {
	rl := make(RuleList, 0, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, eris.New("region: rule without name")
		}
		var preds []Predicate
		if len(s.Boxes) > 0 {
			boxes := make(Boxes, 0, len(s.Boxes))
			for _, b := range s.Boxes {
				if len(b) != 4 {
					return nil, eris.Errorf("region: rule %q box needs 4 values, got %d", s.Name, len(b))
				}
				if b[0] > b[2] || b[1] > b[3] {
					return nil, eris.Errorf("region: rule %q box %v is inverted", s.Name, b)
				}
				boxes = append(boxes, Box{South: b[0], West: b[1], North: b[2], East: b[3]})
			}
			preds = append(preds, boxes)
		}
		if s.Band != nil {
			h := Hemisphere(s.Band.Hemisphere)
			if h != Either && h != North && h != South {
				return nil, eris.Errorf("region: rule %q has unknown hemisphere %q", s.Name, s.Band.Hemisphere)
			}
			preds = append(preds, LatBand{MinAbs: s.Band.MinAbs, MaxAbs: s.Band.MaxAbs, Hemisphere: h})
		}
		if len(preds) == 0 {
			return nil, eris.Errorf("region: rule %q has no boxes or band", s.Name)
		}

		var p Predicate = allOf(preds)
		if len(preds) == 1 {
			p = preds[0]
		}
		rl = append(rl, Rule{Name: s.Name, Value: s.Value, Predicate: p})
	}
	return rl, nil
}

// allOf matches when every predicate matches.
type allOf []Predicate

func (a allOf) Match(lat, lon float64) bool {
	for _, p := range a {
		if !p.Match(lat, lon) {
			return false
		}
	}
	return true
}
