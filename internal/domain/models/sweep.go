package models

import "time"

// BullSwitchConfig tells the sweep how to settle a two-bull coverage. Either
// SelectedBullIndex picks a candidate directly, or SwitchDate splits
// conceptions before the switch (first bull) from those after (second bull).
type BullSwitchConfig struct {
	CoverageID        string     `json:"coverageId"`
	Repasse           bool       `json:"repasse,omitempty"`
	SelectedBullIndex *int       `json:"selectedBullIndex,omitempty"`
	SwitchDate        *time.Time `json:"switchDate,omitempty"`
}

// SweepResult counts what a verification sweep did.
type SweepResult struct {
	Linked             int `json:"linked"`
	Registered         int `json:"registered"`
	Pending            int `json:"pending"`
	Discovered         int `json:"discovered"`
	PaternityConfirmed int `json:"paternityConfirmed"`
}

// Add accumulates another result.
func (r *SweepResult) Add(o SweepResult) {
	r.Linked += o.Linked
	r.Registered += o.Registered
	r.Pending += o.Pending
	r.Discovered += o.Discovered
	r.PaternityConfirmed += o.PaternityConfirmed
}

// Changed reports whether the sweep produced any write.
func (r SweepResult) Changed() bool {
	return r.Linked+r.Registered+r.Discovered+r.PaternityConfirmed > 0
}
