package engine

import (
	"fmt"

	"github.com/awaistahir/pvsizer/internal/codetables"
)

// FuseParallelThreshold is the number of paralleled strings above which each
// string needs its own fuse.
const FuseParallelThreshold = 2

// SizeBreaker picks the smallest standard device rating >= the design current.
// The design current is expected to be continuous-duty scaled already.
func SizeBreaker(designA float64, circuit Segment) ProtectionSelection {
	rating, ok := codetables.NextBreaker(designA)
	sel := ProtectionSelection{
		Circuit:        circuit,
		RatingA:        rating,
		DesignCurrentA: designA,
		Adequate:       ok,
	}
	if !ok {
		sel.Note = fmt.Sprintf("design current %.2f A exceeds the largest standard rating %.0f A", designA, rating)
	}
	return sel
}

// SizeStringProtection sizes the per-string DC device and flags whether fusing is
// required for the number of strings paralleled on one combiner point.
func SizeStringProtection(designA float64, parallel int) ProtectionSelection {
	sel := SizeBreaker(designA, SegmentDCString)
	sel.ParallelStrings = parallel
	sel.FuseRequired = parallel > FuseParallelThreshold
	return sel
}

func protectionWarnings(sel ProtectionSelection) []Warning {
	var warns []Warning
	if !sel.Adequate {
		warns = append(warns, Warning{Code: WarnBreakerRange, Message: fmt.Sprintf("%s: %s", sel.Circuit, sel.Note)})
	}
	if sel.FuseRequired {
		warns = append(warns, Warning{Code: WarnStringFuseNeeded,
			Message: fmt.Sprintf("%d strings in parallel per combiner point: %.0f A fuse required on each string",
				sel.ParallelStrings, sel.RatingA)})
	}
	return warns
}
