package agro

import (
	"github.com/i474232898/crop-recommendation/internal/common"
)

// TablesVersion identifies the revision of the static lookup tables below.
// Bump it whenever a table changes so cached responses can be told apart.
const TablesVersion = "2025.1"

// regionSoil maps a district/region name fragment to its soil type.
type regionSoil struct {
	region string
	soil   SoilType
}

type stateSoil struct {
	def     SoilType
	regions []regionSoil
}

var stateSoilTable = map[string]stateSoil{
	// Black soil (regur), the cotton belt.
	"Maharashtra": {SoilBlack, []regionSoil{
		{"Konkan", SoilRedLaterite}, {"Marathwada", SoilBlack}, {"Vidarbha", SoilBlack}, {"Western Maharashtra", SoilBlack},
	}},
	"Gujarat": {SoilBlack, []regionSoil{
		{"Saurashtra", SoilBlack}, {"North Gujarat", SoilAlluvial}, {"Kutch", SoilArid},
	}},
	"Madhya Pradesh": {SoilBlack, []regionSoil{{"Malwa", SoilBlack}, {"Nimar", SoilBlack}}},
	"Karnataka": {SoilRed, []regionSoil{
		{"North Karnataka", SoilBlack}, {"Coastal Karnataka", SoilRedLaterite}, {"Malnad", SoilRedLaterite},
	}},
	"Andhra Pradesh": {SoilRed, []regionSoil{{"Coastal Andhra", SoilAlluvial}, {"Rayalaseema", SoilRed}}},
	"Telangana": {SoilRed, []regionSoil{
		{"Medak", SoilRed}, {"Warangal", SoilRed}, {"Nalgonda", SoilBlack},
	}},

	// Red soil, peninsular India.
	"Tamil Nadu":   {SoilRed, []regionSoil{{"Coastal Tamil Nadu", SoilAlluvial}, {"Western Tamil Nadu", SoilBlack}}},
	"Kerala":       {SoilRedLaterite, []regionSoil{{"Kuttanad", SoilPeaty}, {"Alappuzha", SoilPeaty}, {"Coastal Kerala", SoilAlluvial}}},
	"Odisha":       {SoilRed, []regionSoil{{"Coastal Odisha", SoilAlluvial}}},
	"Jharkhand":    {SoilRed, nil},
	"Chhattisgarh": {SoilRed, []regionSoil{{"Bastar", SoilRedLaterite}}},

	// Alluvial soil, Indo-Gangetic plains.
	"Punjab":        {SoilAlluvial, nil},
	"Haryana":       {SoilAlluvial, nil},
	"Uttar Pradesh": {SoilAlluvial, []regionSoil{{"Bundelkhand", SoilRed}}},
	"Bihar":         {SoilAlluvial, nil},
	"West Bengal":   {SoilAlluvial, []regionSoil{{"Sundarbans", SoilSaline}, {"South 24 Parganas", SoilSaline}, {"North Bengal", SoilRedLaterite}}},

	// Laterite.
	"Assam":     {SoilAlluvial, []regionSoil{{"Hills", SoilLaterite}}},
	"Meghalaya": {SoilLaterite, nil},
	"Tripura":   {SoilLaterite, nil},

	"Rajasthan": {SoilArid, []regionSoil{{"Eastern Rajasthan", SoilAlluvial}}},

	"Himachal Pradesh":  {SoilMountain, nil},
	"Uttarakhand":       {SoilForest, nil},
	"Jammu and Kashmir": {SoilMountain, nil},
}

// SoilTypeFor returns the predominant soil type for a state and district.
// District fragments are matched case-insensitively in table order; unknown
// states resolve to Mixed Soil.
func SoilTypeFor(state, district string) SoilType {
	entry, ok := stateSoilTable[state]
	if !ok {
		return SoilMixed
	}
	for _, r := range entry.regions {
		if common.ContainsFold(district, r.region) {
			return r.soil
		}
	}
	return entry.def
}

var soilPropertiesTable = map[SoilType]SoilProperties{
	SoilBlack:       {7.8, Range{7.2, 8.5}, 0.45, Range{0.35, 0.6}, 18.5, Range{15, 25}, 75, 12},
	SoilRed:         {6.2, Range{5.5, 6.8}, 0.25, Range{0.15, 0.4}, 8.5, Range{5, 12}, 62, 25},
	SoilRedLaterite: {5.8, Range{5.2, 6.5}, 0.22, Range{0.12, 0.35}, 7.2, Range{4, 10}, 58, 30},
	SoilAlluvial:    {7.2, Range{6.8, 7.8}, 0.65, Range{0.5, 0.85}, 22.0, Range{18, 28}, 85, 8},
	SoilLaterite:    {5.5, Range{5.0, 6.2}, 0.18, Range{0.1, 0.3}, 6.5, Range{3, 9}, 45, 40},
	SoilArid:        {8.2, Range{7.8, 8.8}, 0.15, Range{0.08, 0.25}, 4.5, Range{2, 7}, 35, 5},
	SoilMountain:    {6.5, Range{6.0, 7.2}, 0.35, Range{0.25, 0.5}, 12.0, Range{8, 16}, 30, 55},
	SoilForest:      {6.0, Range{5.5, 6.8}, 0.4, Range{0.3, 0.55}, 15.0, Range{10, 20}, 25, 65},
	SoilSaline:      {8.4, Range{7.9, 9.2}, 0.2, Range{0.1, 0.3}, 6.0, Range{3, 9}, 40, 15},
	SoilPeaty:       {4.8, Range{4.0, 5.6}, 0.55, Range{0.4, 0.8}, 30.0, Range{22, 40}, 50, 20},
	SoilMixed:       {6.8, Range{6.0, 7.5}, 0.35, Range{0.2, 0.5}, 12.0, Range{8, 18}, 55, 20},
}

// PropertiesFor returns the base soil properties, Mixed Soil when unknown.
func PropertiesFor(soil SoilType) SoilProperties {
	if p, ok := soilPropertiesTable[soil]; ok {
		return p
	}
	return soilPropertiesTable[SoilMixed]
}

var soilCropsTable = map[SoilType][]string{
	SoilBlack:       {"Cotton", "Sugarcane", "Jowar", "Wheat", "Maize", "Soybean"},
	SoilRed:         {"Rice", "Groundnut", "Maize", "Cotton", "Jowar", "Turmeric"},
	SoilRedLaterite: {"Rice", "Groundnut", "Turmeric", "Maize"},
	SoilAlluvial:    {"Rice", "Wheat", "Sugarcane", "Maize", "Cotton"},
	SoilLaterite:    {"Rice", "Maize", "Groundnut"},
	SoilArid:        {"Bajra", "Jowar", "Groundnut", "Cotton"},
	SoilMountain:    {"Wheat", "Maize", "Rice"},
	SoilForest:      {"Wheat", "Maize", "Rice"},
	SoilSaline:      {"Rice", "Bajra", "Cotton"},
	SoilPeaty:       {"Rice", "Turmeric"},
	SoilMixed:       {"Rice", "Wheat", "Maize", "Cotton", "Groundnut"},
}

// SoilSuitableCrops returns a copy of the crops suited to a soil type.
func SoilSuitableCrops(soil SoilType) []string {
	return append([]string(nil), soilCropsTable[soil]...)
}

// SoilSuits reports whether crop appears on the soil's suitable-crop list.
func SoilSuits(soil SoilType, crop string) bool {
	for _, c := range soilCropsTable[soil] {
		if c == crop {
			return true
		}
	}
	return false
}

func cp(crop string, min, max float64, s Suitability) CropProfile {
	return CropProfile{Crop: crop, Yield: YieldRange{Min: min, Max: max}, Suitability: s}
}

const (
	hi  = SuitabilityHigh
	med = SuitabilityMedium
	low = SuitabilityLow
)

// Yields are quintals per hectare.
var stateCropTable = map[string][]CropProfile{
	"Maharashtra": {
		cp("Cotton", 18, 25, hi), cp("Sugarcane", 600, 800, hi), cp("Soybean", 18, 25, hi),
		cp("Jowar", 22, 32, hi), cp("Rice", 28, 38, med), cp("Wheat", 22, 30, med),
		cp("Maize", 30, 42, med), cp("Groundnut", 20, 28, med), cp("Bajra", 18, 26, low),
		cp("Turmeric", 45, 65, hi),
	},
	"Gujarat": {
		cp("Cotton", 20, 28, hi), cp("Groundnut", 22, 32, hi), cp("Bajra", 20, 28, hi),
		cp("Wheat", 24, 32, med), cp("Rice", 25, 35, med), cp("Maize", 28, 38, med),
		cp("Sugarcane", 500, 650, low), cp("Soybean", 15, 22, low), cp("Jowar", 18, 26, med),
		cp("Turmeric", 38, 55, low),
	},
	"Telangana": {
		cp("Rice", 35, 48, hi), cp("Cotton", 16, 24, hi), cp("Maize", 32, 45, hi),
		cp("Turmeric", 48, 70, hi), cp("Sugarcane", 550, 700, med), cp("Soybean", 16, 24, med),
		cp("Jowar", 20, 28, med), cp("Wheat", 20, 28, low), cp("Groundnut", 18, 26, med),
		cp("Bajra", 16, 24, low),
	},
	"Andhra Pradesh": {
		cp("Rice", 38, 52, hi), cp("Cotton", 17, 26, hi), cp("Sugarcane", 580, 750, hi),
		cp("Turmeric", 50, 72, hi), cp("Maize", 30, 42, med), cp("Groundnut", 20, 30, med),
		cp("Soybean", 15, 23, low), cp("Jowar", 18, 26, med), cp("Wheat", 18, 26, low),
		cp("Bajra", 15, 22, low),
	},
	"Karnataka": {
		cp("Rice", 32, 44, hi), cp("Cotton", 15, 22, hi), cp("Sugarcane", 580, 750, hi),
		cp("Maize", 30, 42, hi), cp("Groundnut", 18, 28, med), cp("Soybean", 16, 24, med),
		cp("Jowar", 20, 28, med), cp("Turmeric", 42, 62, med), cp("Wheat", 18, 26, low),
		cp("Bajra", 16, 24, low),
	},
	"Punjab": {
		cp("Wheat", 40, 52, hi), cp("Rice", 42, 58, hi), cp("Cotton", 22, 30, med),
		cp("Maize", 32, 44, hi), cp("Sugarcane", 600, 750, med), cp("Groundnut", 16, 24, low),
		cp("Soybean", 14, 20, low), cp("Jowar", 15, 22, low), cp("Bajra", 18, 26, med),
		cp("Turmeric", 30, 45, low),
	},
	"Haryana": {
		cp("Wheat", 38, 50, hi), cp("Rice", 38, 52, hi), cp("Cotton", 20, 28, med),
		cp("Maize", 30, 42, med), cp("Sugarcane", 550, 700, med), cp("Bajra", 20, 28, med),
		cp("Groundnut", 16, 24, low), cp("Soybean", 14, 20, low), cp("Jowar", 16, 24, low),
		cp("Turmeric", 30, 45, low),
	},
	"Uttar Pradesh": {
		cp("Wheat", 35, 46, hi), cp("Rice", 36, 50, hi), cp("Sugarcane", 650, 800, hi),
		cp("Maize", 28, 38, med), cp("Cotton", 16, 24, low), cp("Groundnut", 18, 26, med),
		cp("Soybean", 15, 22, low), cp("Jowar", 16, 24, low), cp("Bajra", 18, 26, low),
		cp("Turmeric", 35, 52, med),
	},
	"Bihar": {
		cp("Rice", 32, 44, hi), cp("Wheat", 28, 38, hi), cp("Maize", 26, 36, hi),
		cp("Sugarcane", 500, 650, med), cp("Groundnut", 16, 24, med), cp("Cotton", 12, 18, low),
		cp("Soybean", 14, 20, low), cp("Jowar", 16, 24, low), cp("Bajra", 16, 22, low),
		cp("Turmeric", 32, 48, med),
	},
	"West Bengal": {
		cp("Rice", 36, 50, hi), cp("Wheat", 26, 36, med), cp("Maize", 28, 38, med),
		cp("Groundnut", 18, 26, med), cp("Sugarcane", 520, 680, low), cp("Cotton", 12, 18, low),
		cp("Soybean", 14, 20, low), cp("Jowar", 14, 20, low), cp("Bajra", 14, 20, low),
		cp("Turmeric", 38, 56, hi),
	},
	"Tamil Nadu": {
		cp("Rice", 36, 50, hi), cp("Sugarcane", 600, 780, hi), cp("Cotton", 16, 24, med),
		cp("Maize", 28, 38, hi), cp("Groundnut", 20, 30, hi), cp("Turmeric", 45, 65, hi),
		cp("Jowar", 18, 26, med), cp("Wheat", 16, 24, low), cp("Soybean", 14, 20, low),
		cp("Bajra", 16, 22, low),
	},
}

var defaultCropTable = []CropProfile{
	cp("Rice", 30, 42, med), cp("Wheat", 24, 34, med), cp("Cotton", 15, 23, med),
	cp("Sugarcane", 550, 700, med), cp("Maize", 28, 38, med), cp("Groundnut", 18, 26, med),
	cp("Soybean", 15, 22, med), cp("Jowar", 18, 26, med), cp("Bajra", 16, 24, med),
	cp("Turmeric", 40, 58, med),
}

// StateCrops returns a copy of the crop table for a state, falling back to
// the default table for unlisted states.
func StateCrops(state string) []CropProfile {
	crops, ok := stateCropTable[state]
	if !ok {
		crops = defaultCropTable
	}
	return append([]CropProfile(nil), crops...)
}

// StateCrop looks up a single crop within a state's table.
func StateCrop(state, crop string) (CropProfile, bool) {
	crops, ok := stateCropTable[state]
	if !ok {
		crops = defaultCropTable
	}
	for _, c := range crops {
		if c.Crop == crop {
			return c, true
		}
	}
	return CropProfile{}, false
}

// DefaultYieldRange applies to crops missing from every table.
var DefaultYieldRange = YieldRange{Min: 20, Max: 30}

// Prices are INR per quintal, 2025 averages.
var fallbackPriceTable = map[string]float64{
	"Rice":      2800,
	"Wheat":     2200,
	"Cotton":    6500,
	"Sugarcane": 350,
	"Maize":     1900,
	"Groundnut": 5500,
	"Soybean":   4200,
	"Jowar":     3000,
	"Bajra":     2100,
	"Turmeric":  8500,
}

// DefaultFallbackPrice is used for crops missing from the price table.
const DefaultFallbackPrice = 3000.0

// FallbackPrice returns the historical average price for a crop.
func FallbackPrice(crop string) float64 {
	if p, ok := fallbackPriceTable[crop]; ok {
		return p
	}
	return DefaultFallbackPrice
}

// Costs are INR per hectare.
var inputCostTable = map[string]float64{
	"Rice":      25000,
	"Wheat":     20000,
	"Cotton":    30000,
	"Sugarcane": 45000,
	"Maize":     18000,
	"Groundnut": 28000,
	"Soybean":   22000,
	"Jowar":     15000,
	"Bajra":     14000,
	"Turmeric":  50000,
}

// DefaultInputCost is used for crops missing from the cost table.
const DefaultInputCost = 20000.0

// InputCost returns the per-hectare cultivation cost for a crop.
func InputCost(crop string) float64 {
	if c, ok := inputCostTable[crop]; ok {
		return c
	}
	return DefaultInputCost
}

var denseReferenceStates = map[string]bool{
	"Maharashtra":    true,
	"Telangana":      true,
	"Punjab":         true,
	"Andhra Pradesh": true,
}

// ModelConfidence is the response-level confidence for a state; states with
// denser survey data score higher.
func ModelConfidence(state string) float64 {
	if denseReferenceStates[state] {
		return 92.0
	}
	return 88.0
}
