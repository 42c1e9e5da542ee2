package classifier

import (
	"fmt"
	"sort"
	"strings"
)

var gpuBrands = []string{
	"GAINWARD",
	"KFA2",
	"GIGABYTE",
	"ZOTAC",
	"MSI",
	"PNY",
	"PALIT",
	"EVGA",
	"ASUS",
	"INNO3D",
	"SAPPHIRE",
	"ASROCK",
}

// GPU returns the graphics card catalog. Radeon cards are dispatched on the
// RADEON token, everything else falls back to the Nvidia lineup.
func GPU() Catalog {
	return Catalog{
		Name: "GPU",
		Categories: []Category{
			{
				Token: "RADEON",
				Kind:  KindLineup,
				Lineup: RuleSet{
					Brands:         gpuBrands,
					StandardLineup: []string{"5500", "5600", "5700", "550", "570", "580"},
					TierTokens:     []string{"XT"},
					TierValidity:   map[string][]string{"XT": {"5500", "5600", "5700"}},
				},
			},
		},
		Fallback: &Category{
			Token: "NVIDIA",
			Kind:  KindLineup,
			Lineup: RuleSet{
				Brands:         gpuBrands,
				StandardLineup: []string{"2060", "2070", "2080", "3060", "3070", "3080", "3090"},
				TierTokens:     []string{"TI", "SUPER"},
				TierValidity: map[string][]string{
					"TI":    {"2080", "3070", "3080"},
					"SUPER": {"2060", "2070", "2080"},
				},
			},
		},
	}
}

// CPU returns the processor catalog, dispatched on the AMD and INTEL tokens.
func CPU() Catalog {
	return Catalog{
		Name: "CPU",
		Categories: []Category{
			{
				Token: "AMD",
				Kind:  KindFamily,
				Family: FamilyRuleSet{
					Brand:    "AMD",
					Families: []string{"Ryzen 3", "Ryzen 5", "Ryzen 7", "Ryzen 9"},
					Models: map[string][]string{
						"RYZEN 3": {"3200G"},
						"RYZEN 5": {"1600 AF", "1600X", "2600X", "2600", "1400", "3600X", "3600"},
						"RYZEN 7": {"2700X", "3700X", "3800X"},
						"RYZEN 9": {"3900X", "3950X"},
					},
				},
			},
			{
				Token: "INTEL",
				Kind:  KindFamily,
				Family: FamilyRuleSet{
					Brand:    "INTEL",
					Families: []string{"Core i9"},
					Models: map[string][]string{
						"CORE I9": {"9900KF", "9900K"},
					},
				},
			},
		},
	}
}

// RAM returns the memory catalog. The product type is the memory generation.
func RAM() Catalog {
	return Catalog{
		Name: "RAM",
		Fallback: &Category{
			Token: "DDR",
			Kind:  KindLineup,
			Lineup: RuleSet{
				Brands: []string{
					"AORUS", "BALLISTIX", "CORSAIR", "CRUCIAL", "G.SKILL",
					"GIGABYTE", "HYPERX", "KINGSTON", "T-FORCE",
				},
				StandardLineup: []string{"DDR5", "DDR4", "DDR3"},
			},
		},
	}
}

var catalogs = map[string]func() Catalog{
	"GPU": GPU,
	"CPU": CPU,
	"RAM": RAM,
}

// Lookup returns the built-in catalog with the given name, case-insensitively.
func Lookup(name string) (Catalog, error) {
	build, ok := catalogs[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Catalog{}, fmt.Errorf("unknown catalog %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

// Names lists the built-in catalog names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
