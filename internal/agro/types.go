package agro

// SoilType is one of the named soil classes used for suitability lookups.
type SoilType string

const (
	SoilBlack       SoilType = "Black Soil"
	SoilRed         SoilType = "Red Soil"
	SoilRedLaterite SoilType = "Red Laterite Soil"
	SoilAlluvial    SoilType = "Alluvial Soil"
	SoilLaterite    SoilType = "Laterite Soil"
	SoilArid        SoilType = "Arid Soil"
	SoilMountain    SoilType = "Mountain Soil"
	SoilForest      SoilType = "Forest Soil"
	SoilSaline      SoilType = "Saline Soil"
	SoilPeaty       SoilType = "Peaty Soil"
	SoilMixed       SoilType = "Mixed Soil"
)

// SoilTypes lists every known soil class.
var SoilTypes = []SoilType{
	SoilBlack, SoilRed, SoilRedLaterite, SoilAlluvial, SoilLaterite, SoilArid,
	SoilMountain, SoilForest, SoilSaline, SoilPeaty, SoilMixed,
}

// Suitability is the state-level agronomic fit of a crop.
type Suitability string

const (
	SuitabilityHigh   Suitability = "High"
	SuitabilityMedium Suitability = "Medium"
	SuitabilityLow    Suitability = "Low"
)

// BaseScore maps a suitability class to the base ranking score.
func (s Suitability) BaseScore() int {
	switch s {
	case SuitabilityHigh:
		return 80
	case SuitabilityMedium:
		return 50
	default:
		return 20
	}
}

// Season is one of the three Indian cropping seasons.
type Season string

const (
	SeasonKharif Season = "Kharif"
	SeasonRabi   Season = "Rabi"
	SeasonZaid   Season = "Zaid"
)

// Measurement is a soil property reading.
type Measurement struct {
	Mean float64 `json:"mean"`
	Unit string  `json:"unit"`
}

// SoilProfile describes the soil at a location. It is a pure function of
// (state, district) when synthesized.
type SoilProfile struct {
	SoilType              SoilType    `json:"soil_type"`
	PH                    Measurement `json:"phh2o"`
	Nitrogen              Measurement `json:"nitrogen"`
	OrganicCarbon         Measurement `json:"soc"`
	AgriculturePercentage float64     `json:"agriculture_percentage"`
	ForestPercentage      float64     `json:"forest_percentage"`
}

// YieldRange is a (min, max) yield in quintals per hectare.
type YieldRange struct {
	Min float64
	Max float64
}

// CropProfile is a crop's yield range and suitability within one state.
type CropProfile struct {
	Crop        string
	Yield       YieldRange
	Suitability Suitability
}

// Range is a closed numeric interval used by the soil property table.
type Range struct {
	Lo float64
	Hi float64
}

// SoilProperties is the base property set for a soil class.
type SoilProperties struct {
	PH                    float64
	PHRange               Range
	Nitrogen              float64
	NitrogenRange         Range
	OrganicCarbon         float64
	OrganicCarbonRange    Range
	AgriculturePercentage float64
	ForestPercentage      float64
}
