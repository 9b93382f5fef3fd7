package experiment

import (
	"fmt"
	"hash/fnv"
)

// Arm is one treatment variant of an experiment. Ratio is the fraction of
// subjects assigned to it, in (0, 1].
type Arm struct {
	Value string
	Ratio float64
}

// CostFunc maps an outcome to the amount of limit budget it consumes.
// When nil, any non-control assignment costs 1 at assignment time.
type CostFunc func(outcome string) int64

// Definition describes an experiment: treatment arms, the control value,
// an optional exposure limit and an optional deferred cost function. The
// remainder 1 - sum(ratios) is the control's implicit ratio.
type Definition struct {
	Name    string
	Arms    []Arm
	Control string
	Limit   *int64
	Cost    CostFunc
}

// NewDefinition builds a validated experiment definition. It fails fast
// when an arm ratio is out of range or the ratios sum past 1: that is a
// configuration error, not a per-call failure.
func NewDefinition(name, control string, arms ...Arm) (Definition, error) {
	var sum float64
	for _, arm := range arms {
		if arm.Ratio <= 0 || arm.Ratio > 1 {
			return Definition{}, fmt.Errorf("experiment %s: arm %q ratio %v out of (0,1]", name, arm.Value, arm.Ratio)
		}
		sum += arm.Ratio
	}
	if sum > 1 {
		return Definition{}, fmt.Errorf("experiment %s: arm ratios sum to %v, must not exceed 1", name, sum)
	}

	return Definition{
		Name:    name,
		Arms:    arms,
		Control: control,
	}, nil
}

// Assign deterministically maps a subject to an arm value or the control.
// [0,1) is partitioned into contiguous intervals, one per arm in order,
// with the tail interval belonging to control; the subject's derived
// fraction picks the interval. Same inputs always yield the same value.
func (d Definition) Assign(subjectID int64) string {
	x := bucketFraction(d.Name, subjectID)

	var cumulative float64
	for _, arm := range d.Arms {
		cumulative += arm.Ratio
		if x < cumulative {
			return arm.Value
		}
	}
	return d.Control
}

// bucketFraction derives a uniform number in [0,1) from the experiment
// name and subject id, with no external state.
func bucketFraction(name string, subjectID int64) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", name, subjectID)
	// Top 53 bits keep the full float64 mantissa precision
	return float64(h.Sum64()>>11) / float64(uint64(1)<<53)
}
