package classify

import "strings"

// categoryTable maps labels the model is known to emit onto the fixed
// category set. Exact (case-sensitive) lookup happens before the substring
// fallback, so idiosyncratic labels like "Pothole" land on the right
// category instead of Others.
var categoryTable = map[string]Category{
	"Pothole":  CategoryRoads,
	"Road":     CategoryRoads,
	"Traffic":  CategoryRoads,
	"Street":   CategoryRoads,
	"Garbage":  CategorySanitation,
	"Waste":    CategorySanitation,
	"Sewage":   CategorySanitation,
	"Toilet":   CategorySanitation,
	"Power":    CategoryElectricity,
	"Electric": CategoryElectricity,
	"Lighting": CategoryElectricity,
	"Water":    CategoryWaterSupply,
	"Plumbing": CategoryWaterSupply,
	"Safety":   CategoryPublicSafety,
	"Crime":    CategoryPublicSafety,
	"Security": CategoryPublicSafety,
}

// MapCategory projects a free-form model category label onto the fixed
// category set. Exact table lookup first, then a case-insensitive substring
// test against the fixed categories in enumeration order, then Others.
// The mapping is total: it always returns a member of the set.
func MapCategory(raw string) Category {
	if mapped, ok := categoryTable[raw]; ok {
		return mapped
	}

	lower := strings.ToLower(raw)
	for _, c := range Categories() {
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return c
		}
	}

	return CategoryOthers
}
