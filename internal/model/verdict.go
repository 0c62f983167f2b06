// Package model defines the structured types shared between the gateway,
// the eligibility engine, and the renderers.
package model

// Severity tags a RuleOutcome with how a failure should be treated.
// Hard failures disqualify; Soft failures record a data gap; Info outcomes
// carry context only and never affect the verdict.
type Severity string

const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
	SeverityInfo Severity = "info"
)

// RuleOutcome is one rule's result within an evaluation.
type RuleOutcome struct {
	Passed   bool     `json:"passed"`
	Label    string   `json:"label"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

// Disqualifying reports whether this outcome alone sinks the evaluation.
func (r RuleOutcome) Disqualifying() bool {
	return !r.Passed && r.Severity == SeverityHard
}

// BuildingRecord holds the normalized title-record fields. Every numeric
// field is optional: the registry routinely omits them, and a missing value
// must flow through as a soft signal rather than an error.
type BuildingRecord struct {
	AddressLot       string   `json:"address_lot"`
	AddressRoad      string   `json:"address_road"`
	BuildingName     string   `json:"building_name"`
	MainPurpose      string   `json:"main_purpose"`
	EtcPurpose       string   `json:"etc_purpose"`
	IsIllegal        bool     `json:"is_illegal"`
	StructureRaw     string   `json:"structure_raw"`
	UseApprovalDate  string   `json:"use_approval_date,omitempty"` // ISO date, empty when unparseable
	GroundFloors     *int     `json:"ground_floors"`
	UndergroundFloor *int     `json:"underground_floors"`
	FloorAreaM2      *float64 `json:"floor_area_m2"`
	HouseholdCount   *int     `json:"household_count"`
	FamilyCount      *int     `json:"family_count"`
	UnitNumberCount  *int     `json:"unit_number_count"`
}

// FloorUnits is the unit tally for one (dong, floor) group.
type FloorUnits struct {
	Dong  string `json:"dong"`
	Floor string `json:"floor"`
	Units int    `json:"units"`
}

// OutcomeCode is the final 0..4 suitability grade.
type OutcomeCode int

const (
	CodeUnsuitable OutcomeCode = 0 // disqualified by a rule or not found
	CodeLowChance  OutcomeCode = 1 // eligible, 2+ floors, single unit
	CodePossible   OutcomeCode = 2 // eligible, single story, 1+ units
	CodeHighChance OutcomeCode = 3 // eligible, 2-4 floors, 2+ units
	CodePending    OutcomeCode = 4 // eligible but ungraded, or batch error
)

// Description returns the human-readable meaning of a code.
func (c OutcomeCode) Description() string {
	switch c {
	case CodeUnsuitable:
		return "unsuitable"
	case CodeLowChance:
		return "suitable: low chance"
	case CodePossible:
		return "suitable: possible"
	case CodeHighChance:
		return "suitable: high chance"
	case CodePending:
		return "pending review"
	default:
		return "unknown"
	}
}

// Verdict is the engine's structured output for one address key.
// Rendering is a separate concern; the verdict itself carries no formatting.
type Verdict struct {
	Disqualified  bool           `json:"disqualified"`
	Code          OutcomeCode    `json:"code"`
	Checks        []RuleOutcome  `json:"checks"`
	Building      BuildingRecord `json:"building"`
	HouseType     string         `json:"house_type"`
	Structure     string         `json:"structure"`
	AgeYears      *float64       `json:"age_years"`
	TotalUnits    *int           `json:"total_units"`
	UnitsPerFloor []FloorUnits   `json:"units_per_floor,omitempty"`
}

// Record appends an outcome to the check log and reports whether it passed.
func (v *Verdict) Record(out RuleOutcome) bool {
	v.Checks = append(v.Checks, out)
	return out.Passed
}

// Disqualify marks the verdict as code-0 disqualified and returns it.
func (v *Verdict) Disqualify() *Verdict {
	v.Disqualified = true
	v.Code = CodeUnsuitable
	return v
}

// HardFailures returns the disqualifying outcomes recorded so far.
func (v *Verdict) HardFailures() []RuleOutcome {
	var out []RuleOutcome
	for _, c := range v.Checks {
		if c.Disqualifying() {
			out = append(out, c)
		}
	}
	return out
}
