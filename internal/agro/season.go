package agro

import "time"

// IST is the zone the cropping calendar is evaluated in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

var seasonCropsTable = map[Season][]string{
	SeasonKharif: {"Rice", "Cotton", "Maize", "Soybean", "Groundnut", "Bajra", "Jowar", "Turmeric", "Sugarcane"},
	SeasonRabi:   {"Wheat", "Jowar", "Bajra", "Groundnut", "Maize", "Sugarcane"},
	SeasonZaid:   {"Maize", "Groundnut", "Sugarcane", "Turmeric"},
}

// SeasonForMonth maps a calendar month onto exactly one season:
// Kharif June-September, Rabi October-March, Zaid April-May.
func SeasonForMonth(m time.Month) Season {
	switch {
	case m >= time.June && m <= time.September:
		return SeasonKharif
	case m >= time.October || m <= time.March:
		return SeasonRabi
	default:
		return SeasonZaid
	}
}

// SeasonAt returns the season for an instant, evaluated in IST.
func SeasonAt(t time.Time) Season {
	return SeasonForMonth(t.In(IST).Month())
}

// SeasonCrops returns a copy of the crops eligible in a season.
func SeasonCrops(s Season) []string {
	return append([]string(nil), seasonCropsTable[s]...)
}

// InSeason reports whether crop may be sown in season s.
func InSeason(s Season, crop string) bool {
	for _, c := range seasonCropsTable[s] {
		if c == crop {
			return true
		}
	}
	return false
}
