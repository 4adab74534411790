package region

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ServedProvince is the only city we deliver in
const ServedProvince = "İstanbul"

// Settings is the remote region configuration
type Settings struct {
	DisabledDistricts               []string            `json:"disabled_districts"`
	DisabledNeighborhoodsByDistrict map[string][]string `json:"disabled_neighborhoods_by_district"`
	IsSecondaryRegionClosed         bool                `json:"is_secondary_region_closed"`
}

// DefaultSettings apply when the remote configuration cannot be fetched
func DefaultSettings() Settings {
	return Settings{
		DisabledDistricts: []string{"Adalar", "Arnavutköy", "Çatalca", "Silivri", "Şile"},
		DisabledNeighborhoodsByDistrict: map[string][]string{
			"Beykoz":        {"Riva", "Poyrazköy"},
			"Sarıyer":       {"Kilyos", "Rumelifeneri", "Garipçe"},
			"Eyüpsultan":    {"Kemerburgaz", "Göktürk", "Ağaçlı"},
			"Büyükçekmece":  {"Mimarsinan"},
			"Başakşehir":    {"Şamlar"},
			"Sultanbeyli":   {},
			"Beylikdüzü":    {},
			"Küçükçekmece":  {},
			"Esenyurt":      {},
			"Gaziosmanpaşa": {},
		},
		IsSecondaryRegionClosed: false,
	}
}

// secondaryRegionDistricts are the districts on the Anadolu side
var secondaryRegionDistricts = []string{
	"Adalar", "Ataşehir", "Beykoz", "Çekmeköy", "Kadıköy", "Kartal", "Maltepe", "Pendik",
	"Sancaktepe", "Sultanbeyli", "Şile", "Tuzla", "Ümraniye", "Üsküdar",
}

type Address struct {
	Province     string
	District     string
	Neighborhood string
}

type Resolution struct {
	Supported bool
	Warning   string
}

// Policy evaluates one immutable snapshot of Settings
type Policy struct {
	disabledDistricts     map[string]bool
	disabledNeighborhoods map[string][]string
	secondaryClosed       bool
}

func NewPolicy(settings Settings) Policy {
	p := Policy{
		disabledDistricts:     map[string]bool{},
		disabledNeighborhoods: map[string][]string{},
		secondaryClosed:       settings.IsSecondaryRegionClosed,
	}
	for _, d := range settings.DisabledDistricts {
		p.disabledDistricts[fold(d)] = true
	}
	for district, neighborhoods := range settings.DisabledNeighborhoodsByDistrict {
		key := fold(district)
		for _, n := range neighborhoods {
			if folded := fold(n); folded != "" {
				p.disabledNeighborhoods[key] = append(p.disabledNeighborhoods[key], folded)
			}
		}
	}
	return p
}

func IsSecondaryRegion(district string) bool {
	folded := fold(district)
	for _, d := range secondaryRegionDistricts {
		if fold(d) == folded {
			return true
		}
	}
	return false
}

func (p Policy) IsSecondaryRegionClosed() bool {
	return p.secondaryClosed
}

func (p Policy) IsDistrictAvailable(district string) bool {
	if p.secondaryClosed && IsSecondaryRegion(district) {
		return false
	}
	return !p.disabledDistricts[fold(district)]
}

// IsNeighborhoodAvailable matches by substring both ways because the neighborhood directory uses name variants
func (p Policy) IsNeighborhoodAvailable(district string, neighborhood string) bool {
	candidate := fold(neighborhood)
	if candidate == "" {
		return true
	}
	for _, disabled := range p.disabledNeighborhoods[fold(district)] {
		if strings.Contains(candidate, disabled) || strings.Contains(disabled, candidate) {
			return false
		}
	}
	return true
}

// DistrictWarning explains why a district cannot be delivered to, empty when it can
func (p Policy) DistrictWarning(district string) string {
	if p.secondaryClosed && IsSecondaryRegion(district) {
		return "Deliveries to the Anadolu side are temporarily suspended."
	}
	if !p.IsDistrictAvailable(district) {
		return fmt.Sprintf("We currently do not deliver to %s.", district)
	}
	return ""
}

// ResolveSavedAddress keeps unsupported addresses selectable but flags them with a warning
func (p Policy) ResolveSavedAddress(address Address) Resolution {
	if fold(address.Province) != fold(ServedProvince) {
		return Resolution{
			Supported: false,
			Warning:   fmt.Sprintf("We only deliver within %s, please choose another address.", ServedProvince),
		}
	}
	if warning := p.DistrictWarning(address.District); warning != "" {
		return Resolution{
			Supported: false,
			Warning:   warning,
		}
	}
	return Resolution{Supported: true}
}

// fold compares names the Turkish way, so "İSTANBUL" and "istanbul" match.
// A Caser is stateful so every call gets its own.
func fold(name string) string {
	return cases.Lower(language.Turkish).String(strings.Join(strings.Fields(name), " "))
}
