package engine

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// Field coercion. Registry values arrive as strings, JSON numbers, or are
// simply absent; anything that fails to parse becomes nil and flows through
// the rule chain as a soft signal. Nothing here ever returns an error.

// fieldString returns the trimmed string form of a record field, or "" when
// the field is absent.
func fieldString(rec bldrgst.Record, name string) string {
	v, ok := rec[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers decode as float64; integral values print clean.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// toInt parses an integer, tolerating float-shaped strings ("3.0").
func toInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

// toFloat parses a float.
func toFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseYYYYMMDD parses an 8-digit date string. Calendar-invalid dates such
// as 20230229 are rejected, not normalized: time.Parse would roll them over
// to March, which would fabricate an approval date.
func parseYYYYMMDD(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil
	}
	if t.Format("20060102") != s {
		return nil
	}
	return &t
}

// meanTropicalYearDays converts elapsed days to calendar years.
const meanTropicalYearDays = 365.2425

// yearsSince returns the age in years at 1-decimal precision.
func yearsSince(d *time.Time, now time.Time) *float64 {
	if d == nil {
		return nil
	}
	days := now.Sub(*d).Hours() / 24
	years := math.Round(days/meanTropicalYearDays*10) / 10
	return &years
}

// extractBuilding normalizes one raw title record.
func extractBuilding(rec bldrgst.Record) model.BuildingRecord {
	b := model.BuildingRecord{
		AddressLot:   fieldString(rec, "platPlc"),
		AddressRoad:  fieldString(rec, "newPlatPlc"),
		BuildingName: fieldString(rec, "bldNm"),
		MainPurpose:  fieldString(rec, "mainPurpsCdNm"),
		EtcPurpose:   fieldString(rec, "etcPurps"),
		IsIllegal:    fieldString(rec, "violBldYn") == "1",
	}

	// Structure: coded name preferred, free-text fallback.
	b.StructureRaw = fieldString(rec, "strctCdNm")
	if b.StructureRaw == "" {
		b.StructureRaw = fieldString(rec, "etcStrct")
	}

	if d := parseYYYYMMDD(fieldString(rec, "useAprDay")); d != nil {
		b.UseApprovalDate = d.Format("2006-01-02")
	}

	b.GroundFloors = toInt(fieldString(rec, "grndFlrCnt"))
	b.UndergroundFloor = toInt(fieldString(rec, "ugrndFlrCnt"))

	// Floor area: whole-dong total preferred, plain total as fallback.
	b.FloorAreaM2 = toFloat(fieldString(rec, "totDongTotArea"))
	if b.FloorAreaM2 == nil {
		b.FloorAreaM2 = toFloat(fieldString(rec, "totArea"))
	}

	b.HouseholdCount = toInt(fieldString(rec, "hhldCnt"))
	b.FamilyCount = toInt(fieldString(rec, "fmlyCnt"))
	b.UnitNumberCount = toInt(fieldString(rec, "hoCnt"))

	return b
}
