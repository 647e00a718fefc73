// Package scenario sizes several candidate designs concurrently and ranks the
// compliant ones.
package scenario

import (
	"context"
	"math"
	"sort"

	"github.com/awaistahir/pvsizer/internal/engine"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent design runs when Runner.Workers is unset
const DefaultWorkers = 4

// Scenario is one named candidate design
type Scenario struct {
	Name  string             `json:"name"`
	Input engine.DesignInput `json:"input"`
}

// Outcome pairs a scenario with its assembled package
type Outcome struct {
	Name    string         `json:"name"`
	Index   int            `json:"index"`
	Package engine.Package `json:"package"`
	Rank    int            `json:"rank,omitempty"` // 1 = best all-green; 0 = unranked
}

// Runner evaluates scenarios with bounded concurrency
type Runner struct {
	Workers int
}

// Run sizes every scenario and returns the outcomes in input order. It stops
// early with ctx.Err() if the context is cancelled.
func (r Runner) Run(ctx context.Context, scenarios []Scenario) ([]Outcome, error) {
	workers := r.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	out := make([]Outcome, len(scenarios))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, sc := range scenarios {
		i, sc := i, sc
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			// each goroutine writes only its own slot
			out[i] = Outcome{Name: sc.Name, Index: i, Package: engine.Design(sc.Input)}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rank assigns ranks to all-green outcomes by how close their DC/AC ratio is to
// target. Ties keep input order. It returns the outcomes sorted best first,
// followed by the unranked ones in input order; the input slice is not modified.
func Rank(outcomes []Outcome, target float64) []Outcome {
	ranked := make([]Outcome, 0, len(outcomes))
	var rest []Outcome
	for _, o := range outcomes {
		o.Rank = 0
		if o.Package.AllGreen && o.Package.Strings != nil {
			ranked = append(ranked, o)
		} else {
			rest = append(rest, o)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di := math.Abs(ranked[i].Package.Strings.DCACRatio - target)
		dj := math.Abs(ranked[j].Package.Strings.DCACRatio - target)
		return di < dj
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return append(ranked, rest...)
}
