package basket

import "github.com/cubaneorg/cubane-sub000/internal/constants"

// euCountries are the ISO 3166-1 alpha-2 codes billed at the EU rate.
var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true,
	"CZ": true, "DK": true, "EE": true, "FI": true, "FR": true,
	"DE": true, "GR": true, "HU": true, "IE": true, "IT": true,
	"LV": true, "LT": true, "LU": true, "MT": true, "NL": true,
	"PL": true, "PT": true, "RO": true, "SK": true, "SI": true,
	"ES": true, "SE": true,
}

// RegionForCountry maps a delivery country onto the charge region.
// An unknown or empty country falls into the world bucket.
func RegionForCountry(country string) string {
	switch {
	case country == "GB":
		return constants.RegionUK
	case euCountries[country]:
		return constants.RegionEU
	}
	return constants.RegionWorld
}
