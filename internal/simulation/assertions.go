package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/episim/internal/network"
	"github.com/nvandessel/episim/internal/spreading"
)

// AssertCurveMonotone asserts that a run's infected count never decreases
// and that Curve agrees with NewlyInfected.
func AssertCurveMonotone(t *testing.T, res spreading.Result) {
	t.Helper()
	prev := res.InitialInfected
	for step, c := range res.Curve {
		if c < prev {
			t.Errorf("AssertCurveMonotone: step %d: infected %d < previous %d", step, c, prev)
		}
		if step < len(res.NewlyInfected) && c-prev != res.NewlyInfected[step] {
			t.Errorf("AssertCurveMonotone: step %d: curve delta %d != newly infected %d", step, c-prev, res.NewlyInfected[step])
		}
		prev = c
	}
	if len(res.Curve) > 0 && res.Curve[len(res.Curve)-1] != res.FinalInfected {
		t.Errorf("AssertCurveMonotone: last curve value %d != final %d", res.Curve[len(res.Curve)-1], res.FinalInfected)
	}
}

// AssertCausalInfections asserts that every node infected at step t > 0
// has a neighbor infected strictly earlier, where initial seeds count as
// infected before step 0.
func AssertCausalInfections(t *testing.T, net *network.Network, res spreading.Result, initial []int) {
	t.Helper()
	seeds := make(map[int]bool, len(initial))
	for _, n := range initial {
		seeds[n] = true
	}
	infectedBefore := func(m, step int) bool {
		if seeds[m] {
			return true
		}
		it := res.InfectionTime[m]
		return it != spreading.NotInfected && it < step
	}

	for n, step := range res.InfectionTime {
		if step == spreading.NotInfected {
			continue
		}
		nbrs, err := net.Neighbors(n)
		if err != nil {
			t.Fatalf("AssertCausalInfections: Neighbors(%d): %v", n, err)
		}
		ok := false
		for _, m := range nbrs {
			if infectedBefore(m, step) {
				ok = true
				break
			}
		}
		if !ok {
			t.Errorf("AssertCausalInfections: node %d infected at step %d with no earlier-infected neighbor", n, step)
		}
	}
}

// AssertFinalWithin asserts that every replica's final infected count lies
// in [lo, hi].
func AssertFinalWithin(t *testing.T, res EnsembleResult, lo, hi int) {
	t.Helper()
	for _, run := range res.Runs {
		f := run.Result.FinalInfected
		if f < lo || f > hi {
			t.Errorf("AssertFinalWithin: replica %d: final infected %d not in [%d, %d]", run.Replica, f, lo, hi)
		}
	}
}

// AssertAttackRateBounded asserts that all per-node attack rates are
// probabilities and that the initial seeds have rate 1.
func AssertAttackRateBounded(t *testing.T, res EnsembleResult, initial []int) {
	t.Helper()
	for n, rate := range res.NodeAttackRate {
		if math.IsNaN(rate) || rate < 0 || rate > 1 {
			t.Errorf("AssertAttackRateBounded: node %d rate %.4f not in [0, 1]", n, rate)
		}
	}
	for _, n := range initial {
		if res.NodeAttackRate[n] != 1 {
			t.Errorf("AssertAttackRateBounded: seed %d rate %.4f, want 1", n, res.NodeAttackRate[n])
		}
	}
}

// AssertMeanCurveMonotone asserts that the ensemble mean curve never
// decreases.
func AssertMeanCurveMonotone(t *testing.T, res EnsembleResult) {
	t.Helper()
	for step := 1; step < len(res.MeanCurve); step++ {
		if res.MeanCurve[step] < res.MeanCurve[step-1] {
			t.Errorf("AssertMeanCurveMonotone: step %d: mean %.4f < previous %.4f", step, res.MeanCurve[step], res.MeanCurve[step-1])
		}
	}
}
