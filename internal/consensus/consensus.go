// Package consensus derives a vote tally from the latest decision of every
// juror of a debate.
package consensus

import (
	"fmt"

	"github.com/Nucleus-Lab/daocouncil/internal/db"
)

// Two-sided debates collapse the tally to approve/reject by convention:
// side 0 approves, side 1 rejects.
const (
	SideApprove = 0
	SideReject  = 1
)

// ConsistencyError reports a persisted decision index that is not a valid
// side index. It blocks settlement rather than being coerced.
type ConsistencyError struct {
	JurorID  int
	Decision int
	NumSides int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("juror %d holds decision %d outside valid sides [0,%d)",
		e.JurorID, e.Decision, e.NumSides)
}

// Tally is the aggregation of jurors' latest decisions.
type Tally struct {
	// Counts holds one vote count per side, indexed by side.
	Counts []int `json:"counts"`
	// Winner is the plurality side index, or -1 when no juror has decided.
	// Ties break to the lowest tied side index.
	Winner int `json:"winner"`
	// Decided and Undecided count jurors by whether their latest decision
	// resolves to a side.
	Decided   int `json:"decided"`
	Undecided int `json:"undecided"`
}

// Approved reports whether the approve side carries the tally. Only
// meaningful for two-sided debates.
func (t Tally) Approved() bool {
	return t.Winner == SideApprove
}

// Compute tallies the latest decisions over numSides positions. A decision
// outside [0, numSides) is a ConsistencyError.
func Compute(latest map[int]db.JurorResult, numSides int) (Tally, error) {
	t := Tally{Counts: make([]int, numSides), Winner: -1}

	for jurorID, r := range latest {
		if r.Decision == nil {
			t.Undecided++
			continue
		}
		d := *r.Decision
		if d < 0 || d >= numSides {
			return Tally{}, &ConsistencyError{JurorID: jurorID, Decision: d, NumSides: numSides}
		}
		t.Counts[d]++
		t.Decided++
	}

	best := 0
	for side, n := range t.Counts {
		if n > best {
			best = n
			t.Winner = side
		}
	}
	return t, nil
}
