package engine

import (
	"fmt"
	"strings"

	"github.com/urbanstay/minbak-cli/internal/classify"
	"github.com/urbanstay/minbak-cli/internal/model"
)

// allowedHouseTypes is the registrable-category allow-set. The two
// classifier sentinels are deliberately absent: an ambiguous category needs
// a district-office check, not a registration.
var allowedHouseTypes = map[string]bool{
	classify.HouseSingleFamily:   true,
	classify.HouseMultiHousehold: true,
	classify.HouseApartment:      true,
	classify.HouseRowHouse:       true,
	classify.HouseMultiUnit:      true,
}

// disallowedKeywords are purpose-text tokens the registration notice names
// as ineligible outright. 위법/위반 double up on the violBldYn flag: the flag
// is not always set when the purpose text says so.
var disallowedKeywords = []string{"오피스텔", "원룸", "다중주택", "위법", "위반"}

func pass(label, detail string) model.RuleOutcome {
	return model.RuleOutcome{Passed: true, Label: label, Detail: detail, Severity: model.SeverityHard}
}

func fail(label, detail string) model.RuleOutcome {
	return model.RuleOutcome{Passed: false, Label: label, Detail: detail, Severity: model.SeverityHard}
}

func info(passed bool, label, detail string) model.RuleOutcome {
	return model.RuleOutcome{Passed: passed, Label: label, Detail: detail, Severity: model.SeverityInfo}
}

// missing records a data gap: a failing outcome that must not disqualify.
func missing(label, field string) model.RuleOutcome {
	return model.RuleOutcome{
		Passed:   false,
		Label:    label,
		Detail:   fmt.Sprintf("%s missing from registry response, cannot check", field),
		Severity: model.SeveritySoft,
	}
}

// checkAllowedCategory is the permitted-category gate.
func checkAllowedCategory(houseType string) model.RuleOutcome {
	label := "house type in registrable categories"
	if allowedHouseTypes[houseType] {
		return pass(label, "house type "+houseType)
	}
	return fail(label, "house type "+houseType+" is not registrable (or subtype unknown)")
}

// checkDisallowedKeywords scans the combined purpose text for ineligible
// tokens, whitespace-insensitively.
func checkDisallowedKeywords(mainPurpose, etcPurpose string) model.RuleOutcome {
	label := "no disallowed purpose keywords"
	hay := strings.ReplaceAll(mainPurpose+" "+etcPurpose, " ", "")

	var hits []string
	for _, kw := range disallowedKeywords {
		if strings.Contains(hay, strings.ReplaceAll(kw, " ", "")) {
			hits = append(hits, kw)
		}
	}
	if len(hits) > 0 {
		return fail(label, "found: "+strings.Join(hits, ", "))
	}
	return pass(label, "purpose text clean")
}

// checkRegistrationArea is the homestay registration ceiling. A missing
// area downgrades to a soft outcome: registry gaps do not auto-fail.
func (t Thresholds) checkRegistrationArea(areaM2 *float64) model.RuleOutcome {
	label := fmt.Sprintf("total floor area < %.0f㎡", t.RegistrationAreaM2)
	if areaM2 == nil {
		return missing(label, "floor area")
	}
	detail := fmt.Sprintf("area=%.2f㎡", *areaM2)
	if *areaM2 < t.RegistrationAreaM2 {
		return pass(label, detail)
	}
	return fail(label, detail)
}

// houseTypeConstraints applies the per-type row of the jurisdiction table.
// Only the detected type's constraints fire; absent inputs yield soft
// outcomes. The caller disqualifies on any hard failure among the results.
func (t Thresholds) houseTypeConstraints(houseType string, groundFloors *int, areaM2 *float64, totalUnits *int) []model.RuleOutcome {
	var rs []model.RuleOutcome

	maxFloors := func(limit int) model.RuleOutcome {
		label := fmt.Sprintf("%s: ground floors ≤ %d", houseType, limit)
		if groundFloors == nil {
			return missing(label, "ground floor count")
		}
		detail := fmt.Sprintf("ground floors=%d", *groundFloors)
		if *groundFloors <= limit {
			return pass(label, detail)
		}
		return fail(label, detail)
	}
	maxArea := func(limit float64) model.RuleOutcome {
		label := fmt.Sprintf("%s: area ≤ %.0f㎡", houseType, limit)
		if areaM2 == nil {
			return missing(label, "floor area")
		}
		detail := fmt.Sprintf("area=%.2f㎡", *areaM2)
		if *areaM2 <= limit {
			return pass(label, detail)
		}
		return fail(label, detail)
	}

	switch houseType {
	case classify.HouseMultiHousehold:
		rs = append(rs, maxFloors(t.MultiHousehold.MaxGroundFloors))
		rs = append(rs, maxArea(t.MultiHousehold.MaxAreaM2))
		label := fmt.Sprintf("%s: total units ≤ %d", houseType, t.MultiHousehold.MaxTotalUnits)
		if totalUnits == nil {
			rs = append(rs, missing(label, "total unit count"))
		} else if *totalUnits <= t.MultiHousehold.MaxTotalUnits {
			rs = append(rs, pass(label, fmt.Sprintf("total units=%d", *totalUnits)))
		} else {
			rs = append(rs, fail(label, fmt.Sprintf("total units=%d", *totalUnits)))
		}

	case classify.HouseMultiUnit:
		rs = append(rs, maxFloors(t.MultiUnit.MaxGroundFloors))
		rs = append(rs, maxArea(t.MultiUnit.MaxAreaM2))

	case classify.HouseRowHouse:
		rs = append(rs, maxFloors(t.RowHouse.MaxGroundFloors))
		label := fmt.Sprintf("%s: area > %.0f㎡", houseType, t.RowHouse.MinAreaM2)
		if areaM2 == nil {
			rs = append(rs, missing(label, "floor area"))
		} else if *areaM2 > t.RowHouse.MinAreaM2 {
			rs = append(rs, pass(label, fmt.Sprintf("area=%.2f㎡", *areaM2)))
		} else {
			rs = append(rs, fail(label, fmt.Sprintf("area=%.2f㎡", *areaM2)))
		}

	case classify.HouseApartment:
		label := fmt.Sprintf("%s: ground floors ≥ %d", houseType, t.Apartment.MinGroundFloors)
		if groundFloors == nil {
			rs = append(rs, missing(label, "ground floor count"))
		} else if *groundFloors >= t.Apartment.MinGroundFloors {
			rs = append(rs, pass(label, fmt.Sprintf("ground floors=%d", *groundFloors)))
		} else {
			rs = append(rs, fail(label, fmt.Sprintf("ground floors=%d", *groundFloors)))
		}

	case classify.HouseSingleFamily:
		rs = append(rs, info(true, houseType+": no additional table constraints", "base registrable type"))
	}

	return rs
}

// checkStructure is the strict-mode reinforced-concrete gate.
func checkStructure(structure string) model.RuleOutcome {
	label := "structure is reinforced concrete"
	if structure == classify.StructureRC {
		return pass(label, "structure "+structure)
	}
	return fail(label, "structure "+structure)
}
