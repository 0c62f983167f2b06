// Package engine implements the homestay eligibility rule chain over
// building-registry records.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanstay/minbak-cli/internal/classify"
	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// Options selects the optional stages of an evaluation.
type Options struct {
	// RequireRC additionally requires a reinforced-concrete structure.
	RequireRC bool
	// IncludeUnitsPerFloor fetches exclusive-unit records and aggregates a
	// per-floor unit tally. Without it the unit-count waterfall skips the
	// exclusive-unit source.
	IncludeUnitsPerFloor bool
}

// Engine evaluates one address key at a time. It is stateless aside from
// the gateway reference: every Evaluate call fetches fresh records, and
// independent keys may be evaluated concurrently by the caller.
type Engine struct {
	client bldrgst.Client
	rules  Thresholds
	now    func() time.Time // injectable for testing
}

// New creates an Engine over the given gateway and rule thresholds.
func New(client bldrgst.Client, rules Thresholds) *Engine {
	return &Engine{
		client: client,
		rules:  rules,
		now:    time.Now,
	}
}

// WithNow fixes the clock used for age computation.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate runs the ordered rule chain for one lot key. Gateway failures
// propagate as errors; everything else, including "not found" and every
// rule disqualification, is expressed in the returned verdict. Missing or
// malformed record fields never produce an error.
func (e *Engine) Evaluate(ctx context.Context, key bldrgst.LotKey, opts Options) (*model.Verdict, error) {
	key = key.Normalize()

	titles, err := e.client.FetchTitle(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "engine: fetch title records")
	}

	v := &model.Verdict{Code: model.CodePending}

	// Stage 1: not found. Zero title rows is a normal verdict, distinct
	// from "found but disqualified" only in its recorded reason.
	if len(titles) == 0 {
		v.Record(fail("title record exists", "no title records for this lot, check the address codes"))
		return v.Disqualify(), nil
	}

	// Multi-dong lots return several title rows; the first carries the
	// building-level attributes used here.
	b := extractBuilding(titles[0])
	v.Building = b
	v.Structure = classify.Structure(b.StructureRaw)
	v.HouseType = classify.HouseType(b.MainPurpose, b.EtcPurpose)

	// Stage 2: illegality. Checked before everything else; a flagged
	// building is out regardless of any other attribute.
	if b.IsIllegal {
		v.Record(fail("not flagged as illegal construction", "violBldYn=1"))
		return v.Disqualify(), nil
	}
	v.Record(pass("not flagged as illegal construction", "violBldYn!=1"))

	// Stage 3: age, informational only.
	var approval *time.Time
	if b.UseApprovalDate != "" {
		t, parseErr := time.Parse("2006-01-02", b.UseApprovalDate)
		if parseErr == nil {
			approval = &t
		}
	}
	v.AgeYears = yearsSince(approval, e.now())
	if v.AgeYears != nil {
		v.Record(info(true, "building age", fmt.Sprintf("approved %s, about %.1f years", b.UseApprovalDate, *v.AgeYears)))
	} else {
		v.Record(info(false, "building age", "use approval date missing, age not computable"))
	}

	// Unit records feed both the per-type constraint table and the final
	// grade, so they are fetched before the gates run.
	var exposTotal *int
	if opts.IncludeUnitsPerFloor {
		units, unitsErr := e.client.FetchUnits(ctx, key)
		if unitsErr != nil {
			return nil, eris.Wrap(unitsErr, "engine: fetch unit records")
		}
		v.UnitsPerFloor = aggregateUnits(units)
		total := sumUnits(v.UnitsPerFloor)
		exposTotal = &total
	}
	v.TotalUnits = resolveTotalUnits(b, exposTotal)

	// Stage 4: permitted-category gate.
	if out := checkAllowedCategory(v.HouseType); !v.Record(out) {
		return v.Disqualify(), nil
	}

	// Stage 5: disallowed-keyword gate, a coarser filter on top of the
	// category test.
	if out := checkDisallowedKeywords(b.MainPurpose, b.EtcPurpose); !v.Record(out) {
		return v.Disqualify(), nil
	}

	// Stage 6: registration floor-area ceiling.
	if out := e.rules.checkRegistrationArea(b.FloorAreaM2); !v.Record(out) && out.Severity == model.SeverityHard {
		return v.Disqualify(), nil
	}

	// Stage 7: per-type constraint table. Soft outcomes (missing inputs)
	// never disqualify; any hard failure does.
	tableOutcomes := e.rules.houseTypeConstraints(v.HouseType, b.GroundFloors, b.FloorAreaM2, v.TotalUnits)
	hardFail := false
	for _, out := range tableOutcomes {
		v.Record(out)
		if out.Disqualifying() {
			hardFail = true
		}
	}
	if hardFail {
		return v.Disqualify(), nil
	}

	// Stage 8: structural-material gate, strict mode only.
	if opts.RequireRC {
		if out := checkStructure(v.Structure); !v.Record(out) {
			return v.Disqualify(), nil
		}
	}

	v.Disqualified = false
	v.Code = e.grade(b)

	zap.L().Debug("engine: evaluation complete",
		zap.String("district", key.District),
		zap.String("neighborhood", key.Neighborhood),
		zap.String("lot", key.LotMain+"-"+key.LotSub),
		zap.String("house_type", v.HouseType),
		zap.Int("code", int(v.Code)),
	)
	return v, nil
}

// grade assigns the 1..4 shape code for an eligible building. Checks run in
// a fixed order and the first match wins; nil floor counts substitute zero
// here, and only here.
func (e *Engine) grade(b model.BuildingRecord) model.OutcomeCode {
	gf, uf := 0, 0
	if b.GroundFloors != nil {
		gf = *b.GroundFloors
	}
	if b.UndergroundFloor != nil {
		uf = *b.UndergroundFloor
	}

	anyCount := func(pred func(int) bool) bool {
		for _, c := range []*int{b.HouseholdCount, b.FamilyCount, b.UnitNumberCount} {
			if c != nil && pred(*c) {
				return true
			}
		}
		return false
	}

	switch {
	case gf >= 2 && anyCount(func(n int) bool { return n == 1 }):
		return model.CodeLowChance
	case gf == 1 && uf <= 1 && anyCount(func(n int) bool { return n >= 1 }):
		return model.CodePossible
	case gf >= 2 && gf <= 4 && uf <= 1 && anyCount(func(n int) bool { return n >= 2 }):
		return model.CodeHighChance
	default:
		return model.CodePending
	}
}
