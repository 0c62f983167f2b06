package engine

import (
	"sort"
	"strconv"

	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

const (
	unknownDong  = "미상동"
	unknownFloor = "미상층"
)

// Non-numeric floor labels sort after every real floor.
const floorSortSentinel = 1 << 30

// aggregateUnits groups exclusive-unit rows by (dong, floor) and counts
// rows per group. Groups sort by dong, then numeric floor, with non-numeric
// floor labels last, tie-broken by the raw label.
func aggregateUnits(rows []bldrgst.Record) []model.FloorUnits {
	type key struct {
		dong  string
		floor string
	}
	counts := make(map[key]int)
	for _, row := range rows {
		k := key{
			dong:  fieldString(row, "dongNm"),
			floor: fieldString(row, "flrNo"),
		}
		if k.dong == "" {
			k.dong = unknownDong
		}
		if k.floor == "" {
			k.floor = unknownFloor
		}
		counts[k]++
	}

	out := make([]model.FloorUnits, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.FloorUnits{Dong: k.dong, Floor: k.floor, Units: n})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Dong != b.Dong {
			return a.Dong < b.Dong
		}
		ai, bi := floorSortKey(a.Floor), floorSortKey(b.Floor)
		if ai != bi {
			return ai < bi
		}
		return a.Floor < b.Floor
	})
	return out
}

func floorSortKey(floor string) int {
	if n, err := strconv.Atoi(floor); err == nil {
		return n
	}
	return floorSortSentinel
}

func sumUnits(perFloor []model.FloorUnits) int {
	total := 0
	for _, fu := range perFloor {
		total += fu.Units
	}
	return total
}

// resolveTotalUnits picks the building's total unit count. The registry
// exposes three disagreeing count fields plus the exclusive-unit tally;
// none is authoritative, so first-available wins in a fixed order:
// household count, family count, exclusive-unit sum (only when units were
// fetched), unit-number count.
func resolveTotalUnits(b model.BuildingRecord, exposTotal *int) *int {
	if b.HouseholdCount != nil {
		return b.HouseholdCount
	}
	if b.FamilyCount != nil {
		return b.FamilyCount
	}
	if exposTotal != nil {
		return exposTotal
	}
	return b.UnitNumberCount
}
