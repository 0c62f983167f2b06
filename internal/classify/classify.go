// Package classify maps the registry's free-text purpose and structure
// labels onto the fixed vocabulary the rule chain reasons about.
//
// Both classifiers are ordered substring heuristics over source-system
// vocabulary, not grammars. The match order is load-bearing: compound or
// garbled labels must resolve to the more specific category, so the checks
// run from most to least specific and the first hit wins.
package classify

import "strings"

// Structure classifications. The registry's structure field is free text,
// so anything unrecognized passes through verbatim.
const (
	StructureRC      = "철근콘크리트(RC)"
	StructureBrick   = "벽돌"
	StructureSteel   = "철골"
	StructureWood    = "목구조"
	StructureUnknown = "미확인"
)

// House type labels. The five specific types plus the two sentinels form the
// classifier's complete range.
const (
	HouseMultiHousehold = "다가구주택"
	HouseMultiUnit      = "다세대주택"
	HouseRowHouse       = "연립주택"
	HouseApartment      = "아파트"
	HouseSingleFamily   = "단독주택"
	HouseUmbrella       = "공동주택(세부미상)"
	HouseUnknown        = "미상"
)

// Structure classifies a raw structure description. Reinforced concrete
// requires both the rebar and concrete tokens; the remaining materials match
// on a single token each.
func Structure(raw string) string {
	raw = strings.TrimSpace(raw)
	s := strings.ReplaceAll(raw, " ", "")
	if s == "" {
		return StructureUnknown
	}
	if strings.Contains(s, "철근") && strings.Contains(s, "콘크리트") {
		return StructureRC
	}
	if strings.Contains(s, "벽돌") {
		return StructureBrick
	}
	if strings.Contains(s, "철골") {
		return StructureSteel
	}
	if strings.Contains(s, "목") {
		return StructureWood
	}
	return raw
}

// HouseType classifies the combined main/secondary purpose text into one of
// the seven house type labels. The umbrella fallback only looks at the main
// purpose field: the registry sometimes reports just "공동주택" there without
// naming the subtype.
func HouseType(mainPurpose, etcPurpose string) string {
	hay := strings.ReplaceAll(mainPurpose+" "+etcPurpose, " ", "")

	switch {
	case strings.Contains(hay, "다가구"):
		return HouseMultiHousehold
	case strings.Contains(hay, "다세대"):
		return HouseMultiUnit
	case strings.Contains(hay, "연립"):
		return HouseRowHouse
	case strings.Contains(hay, "아파트"):
		return HouseApartment
	case strings.Contains(hay, "단독"):
		return HouseSingleFamily
	}

	if strings.Contains(mainPurpose, "공동주택") {
		return HouseUmbrella
	}
	return HouseUnknown
}
