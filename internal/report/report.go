// Package report renders engine verdicts for humans. The engine emits
// structured results only; every formatting decision lives here.
package report

import (
	"fmt"
	"io"
	"net/url"

	"github.com/urbanstay/minbak-cli/internal/model"
)

// MapLink builds a Naver map search URL for an address, for manual
// verification of a candidate.
func MapLink(addr string) string {
	if addr == "" {
		return ""
	}
	return "https://map.naver.com/v5/search/" + url.PathEscape(addr)
}

// Render writes a human-readable evaluation report.
func Render(w io.Writer, v *model.Verdict) {
	rule := "========================================================================"
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "urban homestay suitability screening report")
	fmt.Fprintln(w, rule)

	b := v.Building
	writeField(w, "building", orNone(b.BuildingName))
	writeField(w, "lot address", orNone(b.AddressLot))
	writeField(w, "road address", orNone(b.AddressRoad))
	if addr := firstNonEmpty(b.AddressRoad, b.AddressLot); addr != "" {
		writeField(w, "map", MapLink(addr))
	}
	writeField(w, "main purpose", orNone(b.MainPurpose))
	if b.EtcPurpose != "" {
		writeField(w, "detail purpose", b.EtcPurpose)
	}
	writeField(w, "house type", v.HouseType)
	writeField(w, "structure", v.Structure)
	if v.AgeYears != nil {
		writeField(w, "age", fmt.Sprintf("about %.1f years (approved %s)", *v.AgeYears, b.UseApprovalDate))
	} else {
		writeField(w, "age", "not computable (approval date missing)")
	}
	writeField(w, "floors", fmt.Sprintf("ground %s / underground %s",
		orUnknown(b.GroundFloors), orUnknown(b.UndergroundFloor)))
	if b.FloorAreaM2 != nil {
		writeField(w, "floor area", fmt.Sprintf("%.2f㎡", *b.FloorAreaM2))
	} else {
		writeField(w, "floor area", "(none)")
	}
	if v.TotalUnits != nil {
		writeField(w, "total units", fmt.Sprintf("%d", *v.TotalUnits))
	} else {
		writeField(w, "total units", "(none)")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "checks:")
	for _, c := range v.Checks {
		mark := "PASS"
		if !c.Passed {
			switch c.Severity {
			case model.SeverityHard:
				mark = "FAIL"
			case model.SeveritySoft:
				mark = "GAP "
			default:
				mark = "NOTE"
			}
		}
		fmt.Fprintf(w, "  [%s] %s | %s\n", mark, c.Label, c.Detail)
	}

	if len(v.UnitsPerFloor) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "units per floor:")
		for _, fu := range v.UnitsPerFloor {
			fmt.Fprintf(w, "  %s / floor %s: %d units\n", fu.Dong, fu.Floor, fu.Units)
		}
	}

	fmt.Fprintln(w)
	if v.Disqualified {
		fmt.Fprintf(w, "verdict: NOT SUITABLE (code %d, %s)\n", v.Code, v.Code.Description())
	} else {
		fmt.Fprintf(w, "verdict: suitable at first screening (code %d, %s)\n", v.Code, v.Code.Description())
		fmt.Fprintln(w, "note: residency requirements and tenant/HOA consent still apply")
	}
	fmt.Fprintln(w, rule)
}

func writeField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %-14s %s\n", name+":", value)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func orUnknown(n *int) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *n)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
