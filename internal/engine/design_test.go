package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDesignInput() DesignInput {
	return DesignInput{
		Panel:           testPanel(),
		Inverter:        testInverter(),
		TMinC:           10,
		AmbientC:        30,
		TargetDCPowerW:  8640,
		SafetyFactor:    1.25,
		Derate:          true,
		CurrentCarrying: 3,
		DCString:        Run{LengthM: 25, TargetDropPct: 1.5},
		AC:              Run{LengthM: 20, TargetDropPct: 2},
	}
}

func TestDesignAllGreen(t *testing.T) {
	pkg := Design(testDesignInput())

	if !pkg.OK || !pkg.AllGreen {
		t.Fatalf("OK=%v AllGreen=%v errors=%v warnings=%v", pkg.OK, pkg.AllGreen, pkg.Errors, pkg.Warnings)
	}
	if len(pkg.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", pkg.Warnings)
	}
	if pkg.Strings.ModulesPerString != 8 || pkg.Strings.StringCount != 2 {
		t.Errorf("strings = %d x %d, want 8 x 2", pkg.Strings.ModulesPerString, pkg.Strings.StringCount)
	}

	if math.Abs(pkg.Currents.StringA-17.375) > 1e-9 {
		t.Errorf("StringA = %v, want 17.375", pkg.Currents.StringA)
	}

	dc, ok := pkg.Conductor(SegmentDCString)
	if !ok || dc.Gauge != "10 AWG" {
		t.Errorf("dc string conductor = %+v, want 10 AWG", dc)
	}
	if _, ok := pkg.Conductor(SegmentDCTrunk); ok {
		t.Error("dc trunk sized although its length is zero")
	}
	ac, ok := pkg.Conductor(SegmentAC)
	if !ok || ac.Gauge != "8 AWG" {
		t.Errorf("ac conductor = %+v, want 8 AWG", ac)
	}

	if pkg.ACProtection.RatingA != 45 {
		t.Errorf("AC breaker = %v, want 45", pkg.ACProtection.RatingA)
	}
	if pkg.DCProtection.RatingA != 20 || pkg.DCProtection.FuseRequired {
		t.Errorf("DC protection = %+v, want 20 A without fuse", pkg.DCProtection)
	}
}

func TestDesignInfeasibleShortCircuits(t *testing.T) {
	in := testDesignInput()
	in.Inverter.VdcMaxV = 450
	in.Inverter.MPPTMinV = 400
	in.Inverter.MPPTMaxV = 450

	pkg := Design(in)
	if pkg.OK || pkg.AllGreen {
		t.Fatal("expected infeasible package")
	}
	if pkg.Strings != nil || pkg.Currents != nil || len(pkg.Conductors) != 0 || pkg.ACProtection != nil {
		t.Error("downstream stages ran on an infeasible topology")
	}
	if len(pkg.Errors) == 0 || !strings.Contains(pkg.Errors[0], "no feasible series count") {
		t.Errorf("errors = %v", pkg.Errors)
	}
	if pkg.Bounds.NMin != 10 || pkg.Bounds.NMax != 8 {
		t.Errorf("bounds = %+v", pkg.Bounds)
	}
}

func TestDesignConductorInputFailure(t *testing.T) {
	in := testDesignInput()
	in.AC.LengthM = 0

	pkg := Design(in)
	if pkg.OK {
		t.Fatal("expected OK=false when the AC run has no length")
	}
	if len(pkg.Errors) != 1 || !strings.HasPrefix(pkg.Errors[0], "ac_output: insufficient data") {
		t.Errorf("errors = %v", pkg.Errors)
	}
}

func TestDesignBreakerAboveConductorAmpacity(t *testing.T) {
	in := testDesignInput()
	in.AmbientC = 40
	in.CurrentCarrying = 4
	in.Inverter.MaxACCurrentA = 28.8 // 36 A design current -> 40 A breaker
	in.AC.LengthM = 5

	pkg := Design(in)
	if !pkg.OK {
		t.Fatalf("unexpected failure: %v", pkg.Errors)
	}
	ac, _ := pkg.Conductor(SegmentAC)
	if ac.Gauge != "8 AWG" {
		t.Fatalf("ac gauge = %s, want 8 AWG", ac.Gauge)
	}
	if pkg.Checks.CurrentOK || pkg.AllGreen {
		t.Error("breaker above conductor ampacity must clear CurrentOK and AllGreen")
	}
	if !hasWarning(pkg.Warnings, WarnConductorVsOCPD) {
		t.Errorf("missing %s warning: %v", WarnConductorVsOCPD, pkg.Warnings)
	}
}

func TestDesignStringFuseAboveConductorAmpacity(t *testing.T) {
	in := testDesignInput()
	in.TargetDCPowerW = 38000 // 5 strings on the first input -> fused strings
	in.AmbientC = 55          // 0.71
	in.CurrentCarrying = 10   // 0.50

	pkg := Design(in)
	if !pkg.OK {
		t.Fatalf("unexpected failure: %v", pkg.Errors)
	}
	if !pkg.DCProtection.FuseRequired || pkg.DCProtection.RatingA != 20 {
		t.Fatalf("DC protection = %+v, want a required 20 A fuse", pkg.DCProtection)
	}
	dc, _ := pkg.Conductor(SegmentDCString)
	// 8 AWG at 90 °C: 55 A x 0.355 = 19.525 A, enough for 17.375 A but not for the fuse
	if dc.Gauge != "8 AWG" || !dc.AmpacityOK {
		t.Fatalf("dc string = %s ampacity ok %v, want 8 AWG carrying the design current", dc.Gauge, dc.AmpacityOK)
	}
	if pkg.Checks.CurrentOK || pkg.AllGreen {
		t.Error("string fuse above conductor ampacity must clear CurrentOK and AllGreen")
	}

	var fuseWarnings int
	for _, w := range pkg.Warnings {
		if w.Code == WarnConductorVsOCPD {
			if !strings.Contains(w.Message, "dc_string") || !strings.Contains(w.Message, "string fuse rating 20 A") {
				t.Errorf("unexpected %s warning: %s", w.Code, w.Message)
			}
			fuseWarnings++
		}
	}
	if fuseWarnings != 1 {
		t.Errorf("got %d %s warnings, want 1: %v", fuseWarnings, WarnConductorVsOCPD, pkg.Warnings)
	}
}

func TestDesignMPPTCurrentExceeded(t *testing.T) {
	in := testDesignInput()
	in.TargetDCPowerW = 38000 // 9 strings, 5 on the first input
	in.DCTrunk = Run{LengthM: 10, TargetDropPct: 1.5}

	pkg := Design(in)
	if !pkg.OK {
		t.Fatalf("unexpected failure: %v", pkg.Errors)
	}
	if pkg.Checks.MPPTCurrentOK || pkg.AllGreen {
		t.Error("MPPT overcurrent must clear MPPTCurrentOK and AllGreen")
	}
	if !hasWarning(pkg.Warnings, WarnMPPTCurrent) {
		t.Errorf("missing %s warning", WarnMPPTCurrent)
	}
	if !pkg.DCProtection.FuseRequired || pkg.DCProtection.ParallelStrings != 5 {
		t.Errorf("DC protection = %+v, want fuse on 5 parallel strings", pkg.DCProtection)
	}
	if !hasWarning(pkg.Warnings, WarnStringFuseNeeded) {
		t.Errorf("missing %s warning", WarnStringFuseNeeded)
	}
	trunk, ok := pkg.Conductor(SegmentDCTrunk)
	if !ok {
		t.Fatal("dc trunk not sized")
	}
	if math.Abs(trunk.DesignCurrentA-13.9*5*1.25) > 1e-9 {
		t.Errorf("trunk current = %v", trunk.DesignCurrentA)
	}
}

func TestDesignDeterministic(t *testing.T) {
	in := testDesignInput()
	in.TargetDCPowerW = 38000
	in.DCTrunk = Run{LengthM: 30, TargetDropPct: 1}
	in.AmbientC = 44

	first := Design(in)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Design(in)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestAppendWarningsDropsExactDuplicates(t *testing.T) {
	a := Warning{Code: WarnAmpacity, Message: "x"}
	b := Warning{Code: WarnAmpacity, Message: "y"}
	got := appendWarnings(nil, a, b, a, b)
	if diff := cmp.Diff([]Warning{a, b}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func hasWarning(ws []Warning, code WarningCode) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}
