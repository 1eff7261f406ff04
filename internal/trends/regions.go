package trends

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	// Keeps letters, digits, underscores, spaces, apostrophes and hyphens;
	// everything else (trailing dots, parentheses) is dropped.
	nonName = regexp.MustCompile(`[^\p{L}\p{N}_\s'’\-]+`)
)

// NormText normalizes a region name for matching: trim, lowercase, NFKC
// fold, collapse whitespace, strip punctuation. Provider region labels and
// shapefile names disagree on case and trailing dots, so every join goes
// through this.
func NormText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = norm.NFKC.String(s)
	s = whitespace.ReplaceAllString(s, " ")
	s = nonName.ReplaceAllString(s, "")
	return s
}

// defaultRegionCodes maps Ukrainian region labels (as the provider returns
// them) to ISO 3166-2 codes, which is what Natural Earth admin-1 polygons
// carry. Crimea and Sevastopol are listed even though some shapefiles omit
// them; unmatched codes simply stay unjoined.
var defaultRegionCodes = map[string]string{
	"івано-франківська область": "UA-26",
	"волинська область":         "UA-07",
	"вінницька область":         "UA-05",
	"дніпропетровська область":  "UA-12",
	"донецька область":          "UA-14",
	"житомирська область":       "UA-18",
	"закарпатська область":      "UA-21",
	"запорізька область":        "UA-23",
	"київська область":          "UA-32",
	"кіровоградська область":    "UA-35",
	"луганська область":         "UA-09",
	"львівська область":         "UA-46",
	"миколаївська область":      "UA-48",
	"одеська область":           "UA-51",
	"полтавська область":        "UA-53",
	"рівненська область":        "UA-56",
	"сумська область":           "UA-59",
	"тернопільська область":     "UA-61",
	"харківська область":        "UA-63",
	"херсонська область":        "UA-65",
	"хмельницька область":       "UA-68",
	"черкаська область":         "UA-71",
	"чернівецька область":       "UA-77",
	"чернігівська область":      "UA-74",
	"місто київ":                "UA-30",
	"крим":                      "UA-43",
	"місто севастополь":         "UA-40",
}

// RegionMapping maps normalized region names to ISO 3166-2 codes.
type RegionMapping map[string]string

// DefaultRegionMapping returns the built-in Ukraine mapping with
// normalized keys.
func DefaultRegionMapping() RegionMapping {
	m := make(RegionMapping, len(defaultRegionCodes))
	for name, code := range defaultRegionCodes {
		m[NormText(name)] = code
	}
	return m
}

// LoadRegionMapping reads a YAML file of region-name to ISO-code entries
// and merges it over the built-in mapping, so a partial file only needs
// the overrides. An empty path returns the defaults.
func LoadRegionMapping(path string) (RegionMapping, error) {
	m := DefaultRegionMapping()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "trends: read region mapping %s", path)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "trends: parse region mapping %s", path)
	}
	for name, code := range raw {
		m[NormText(name)] = code
	}
	return m, nil
}

// Code looks up the ISO code for a raw region label.
func (m RegionMapping) Code(region string) (string, bool) {
	code, ok := m[NormText(region)]
	return code, ok
}

// areaRegions groups region labels into named areas for filtered
// aggregation. AreaAll is the special "no filter" preset.
const AreaAll = "ALL"

var areaRegions = map[string][]string{
	AreaAll: nil,
	"WEST": {
		"івано-франківська область",
		"волинська область",
		"закарпатська область",
		"львівська область",
		"рівненська область",
		"тернопільська область",
		"чернівецька область",
	},
	"RIGHT_BANK": {
		"вінницька область",
		"житомирська область",
		"київська область",
		"кіровоградська область",
		"хмельницька область",
		"черкаська область",
		"місто київ",
	},
	"LEFT_BANK": {
		"полтавська область",
		"сумська область",
		"чернігівська область",
	},
	"SOUTH": {
		"миколаївська область",
		"одеська область",
		"херсонська область",
	},
	"EAST": {
		"дніпропетровська область",
		"донецька область",
		"запорізька область",
		"харківська область",
	},
	"OCCUPIED_TERRITORY": {
		"крим",
		"місто севастополь",
		"луганська область",
	},
	"KYIV": {
		"місто київ",
	},
	"TERNOPIL": {
		"тернопільська область",
	},
	"MYKOLAJIV": {
		"миколаївська область",
	},
}

// AreaNames lists the available area presets, sorted.
func AreaNames() []string {
	names := make([]string, 0, len(areaRegions))
	for name := range areaRegions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AreaRegionNorms returns the normalized region names belonging to an
// area preset. AreaAll (and "") yields a nil set, meaning no filter.
func AreaRegionNorms(area string) (map[string]struct{}, error) {
	area = strings.ToUpper(strings.TrimSpace(area))
	if area == "" {
		area = AreaAll
	}
	regions, ok := areaRegions[area]
	if !ok {
		return nil, eris.Errorf("trends: unknown area %q, choose one of %s", area, strings.Join(AreaNames(), ", "))
	}
	if len(regions) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		set[NormText(r)] = struct{}{}
	}
	return set, nil
}
