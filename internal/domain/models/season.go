package models

import (
	"strings"
	"time"
)

// BreedingType is how a coverage was performed.
type BreedingType string

const (
	BreedingNatural BreedingType = "monta_natural"
	BreedingAI      BreedingType = "ia"
	BreedingFTAI    BreedingType = "iatf"
	BreedingFIV     BreedingType = "fiv"
)

// Valid reports whether t is a known breeding type.
func (t BreedingType) Valid() bool {
	switch t {
	case BreedingNatural, BreedingAI, BreedingFTAI, BreedingFIV:
		return true
	}
	return false
}

// DiagnosisResult is the outcome of a pregnancy check (DG).
type DiagnosisResult string

const (
	DiagnosisPending  DiagnosisResult = "pendente"
	DiagnosisPositive DiagnosisResult = "positivo"
	DiagnosisNegative DiagnosisResult = "negativo"
)

// Valid reports whether r is a known diagnosis.
func (r DiagnosisResult) Valid() bool {
	switch r {
	case DiagnosisPending, DiagnosisPositive, DiagnosisNegative:
		return true
	}
	return false
}

// CalvingResult is the recorded outcome of a pregnancy.
type CalvingResult string

const (
	CalvingPending CalvingResult = "pendente"
	CalvingDone    CalvingResult = "realizado"
	CalvingAborted CalvingResult = "aborto"
)

// BullRef identifies a sire candidate.
type BullRef struct {
	ID   string `bson:"id,omitempty" json:"id,omitempty"`
	Name string `bson:"name" json:"name"`
}

// Attempt is the sire side and outcome of one breeding attempt. It is shared
// by the main coverage and its repasse.
type Attempt struct {
	BullID            string          `bson:"bullId,omitempty" json:"bullId,omitempty"`
	BullName          string          `bson:"bullName,omitempty" json:"bullName,omitempty"`
	Bulls             []BullRef       `bson:"bulls,omitempty" json:"bulls,omitempty"`
	ConfirmedBullID   string          `bson:"confirmedBullId,omitempty" json:"confirmedBullId,omitempty"`
	ConfirmedBullName string          `bson:"confirmedBullName,omitempty" json:"confirmedBullName,omitempty"`
	PregnancyResult   DiagnosisResult `bson:"pregnancyResult" json:"pregnancyResult"`
	PregnancyCheck    *time.Time      `bson:"pregnancyCheckDate,omitempty" json:"pregnancyCheckDate,omitempty"`
	ExpectedCalving   *time.Time      `bson:"expectedCalvingDate,omitempty" json:"expectedCalvingDate,omitempty"`
	CalvingResult     CalvingResult   `bson:"calvingResult" json:"calvingResult"`
	CalvingDate       *time.Time      `bson:"calvingDate,omitempty" json:"calvingDate,omitempty"`
	CalfID            string          `bson:"calfId,omitempty" json:"calfId,omitempty"`
	CalfTag           string          `bson:"calfTag,omitempty" json:"calfTag,omitempty"`
	CalvingNotes      string          `bson:"calvingNotes,omitempty" json:"calvingNotes,omitempty"`
}

// HasOutcome reports whether a calving or abortion was already recorded.
func (a *Attempt) HasOutcome() bool {
	return a.CalvingResult == CalvingDone || a.CalvingResult == CalvingAborted
}

// HasPendingPaternity reports whether two candidate bulls await confirmation.
func (a *Attempt) HasPendingPaternity() bool {
	return len(a.Bulls) == 2 && a.ConfirmedBullID == "" && strings.TrimSpace(a.ConfirmedBullName) == ""
}

// SireName resolves the display sire: confirmed > single bull > pending
// candidates > semen code.
func (a *Attempt) SireName(semenCode string) string {
	if name := strings.TrimSpace(a.ConfirmedBullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(a.BullName); name != "" {
		return name
	}
	switch len(a.Bulls) {
	case 0:
	case 1:
		if name := strings.TrimSpace(a.Bulls[0].Name); name != "" {
			return name
		}
	default:
		names := make([]string, 0, len(a.Bulls))
		for _, b := range a.Bulls {
			if n := strings.TrimSpace(b.Name); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			return strings.Join(names, " / ") + " (pendente)"
		}
	}
	return strings.TrimSpace(semenCode)
}

// Confirm fixes the sire of the attempt.
func (a *Attempt) Confirm(bull BullRef) {
	a.ConfirmedBullID = bull.ID
	a.ConfirmedBullName = bull.Name
}

// ConfirmedSire returns the confirmed sire, or the single known bull.
func (a *Attempt) ConfirmedSire() (BullRef, bool) {
	if a.ConfirmedBullID != "" || strings.TrimSpace(a.ConfirmedBullName) != "" {
		return BullRef{ID: a.ConfirmedBullID, Name: a.ConfirmedBullName}, true
	}
	if a.BullID != "" || strings.TrimSpace(a.BullName) != "" {
		return BullRef{ID: a.BullID, Name: a.BullName}, true
	}
	if len(a.Bulls) == 1 {
		return a.Bulls[0], true
	}
	return BullRef{}, false
}

// Link records a born calf on the attempt.
func (a *Attempt) Link(calf *Animal) {
	a.CalvingResult = CalvingDone
	a.CalfID = calf.ID
	a.CalfTag = calf.Tag
	a.CalvingDate = cloneTime(calf.BirthDate)
}

func (a Attempt) clone() Attempt {
	out := a
	out.Bulls = cloneSlice(a.Bulls)
	out.PregnancyCheck = cloneTime(a.PregnancyCheck)
	out.ExpectedCalving = cloneTime(a.ExpectedCalving)
	out.CalvingDate = cloneTime(a.CalvingDate)
	return out
}

func (a *Attempt) sanitize() {
	a.PregnancyCheck = ValidDate(a.PregnancyCheck)
	a.ExpectedCalving = ValidDate(a.ExpectedCalving)
	a.CalvingDate = ValidDate(a.CalvingDate)
	if a.PregnancyResult == "" {
		a.PregnancyResult = DiagnosisPending
	}
	if a.CalvingResult == "" {
		a.CalvingResult = CalvingPending
	}
}

// Repasse is the follow-up breeding on the same dam after a negative DG.
type Repasse struct {
	Enabled   bool       `bson:"enabled" json:"enabled"`
	StartDate *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	Attempt   `bson:",inline"`
}

// CoverageRecord is one breeding event in a season.
type CoverageRecord struct {
	ID          string       `bson:"id" json:"id"`
	CowID       string       `bson:"cowId" json:"cowId"`
	CowTag      string       `bson:"cowBrinco" json:"cowBrinco"`
	Date        time.Time    `bson:"date" json:"date"`
	Type        BreedingType `bson:"type" json:"type"`
	SemenCode   string       `bson:"semenCode,omitempty" json:"semenCode,omitempty"`
	DonorCowID  string       `bson:"donorCowId,omitempty" json:"donorCowId,omitempty"`
	DonorCowTag string       `bson:"donorCowBrinco,omitempty" json:"donorCowBrinco,omitempty"`
	Notes       string       `bson:"notes,omitempty" json:"notes,omitempty"`
	Discovered  bool         `bson:"discovered,omitempty" json:"discovered,omitempty"`
	Attempt     `bson:",inline"`
	Repasse     *Repasse `bson:"repasse,omitempty" json:"repasse,omitempty"`
}

// Dam returns the reference of the cow that carries the pregnancy.
func (c *CoverageRecord) Dam() AnimalRef {
	return AnimalRef{ID: c.CowID, Tag: c.CowTag}
}

// Donor returns the genetic donor reference for FIV coverages.
func (c *CoverageRecord) Donor() AnimalRef {
	return AnimalRef{ID: c.DonorCowID, Tag: c.DonorCowTag}
}

// Parentage returns the matching mode for calves of this coverage.
func (c *CoverageRecord) Parentage() ParentageMode {
	return ParentageFor(c.Type, c.Dam(), c.Donor())
}

// RepasseEnabled reports whether the follow-up breeding is active.
func (c *CoverageRecord) RepasseEnabled() bool {
	return c.Repasse != nil && c.Repasse.Enabled
}

// RepasseStart returns the repasse start date, defaulting to the coverage date.
func (c *CoverageRecord) RepasseStart() time.Time {
	if c.Repasse != nil && c.Repasse.StartDate != nil && !c.Repasse.StartDate.IsZero() {
		return *c.Repasse.StartDate
	}
	return c.Date
}

// RecomputeExpected keeps expectedCalvingDate = date + 283 days for the main
// coverage and the enabled repasse.
func (c *CoverageRecord) RecomputeExpected() {
	c.ExpectedCalving = DatePtr(ExpectedCalving(c.Date))
	if c.RepasseEnabled() {
		c.Repasse.ExpectedCalving = DatePtr(ExpectedCalving(c.RepasseStart()))
	}
}

// ClaimsCalf reports whether the main coverage or its repasse links the calf.
func (c *CoverageRecord) ClaimsCalf(calfID string) bool {
	if calfID == "" {
		return false
	}
	if c.CalfID == calfID {
		return true
	}
	return c.Repasse != nil && c.Repasse.CalfID == calfID
}

// Clone returns a deep copy of the coverage.
func (c CoverageRecord) Clone() CoverageRecord {
	out := c
	out.Attempt = c.Attempt.clone()
	if c.Repasse != nil {
		r := *c.Repasse
		r.StartDate = cloneTime(c.Repasse.StartDate)
		r.Attempt = c.Repasse.Attempt.clone()
		out.Repasse = &r
	}
	return out
}

// Sanitize drops invalid optional dates and fills default outcomes.
func (c *CoverageRecord) Sanitize() {
	c.Attempt.sanitize()
	if c.Repasse != nil {
		c.Repasse.StartDate = ValidDate(c.Repasse.StartDate)
		c.Repasse.Attempt.sanitize()
	}
}

// SeasonMetrics are the fertility indicators of a season.
type SeasonMetrics struct {
	TotalExposed   int     `bson:"totalExposed" json:"totalExposed"`
	TotalCovered   int     `bson:"totalCovered" json:"totalCovered"`
	TotalPregnant  int     `bson:"totalPregnant" json:"totalPregnant"`
	PregnancyRate  float64 `bson:"pregnancyRate" json:"pregnancyRate"`
	ServiceRate    float64 `bson:"serviceRate" json:"serviceRate"`
	ConceptionRate float64 `bson:"conceptionRate" json:"conceptionRate"`
}

// BreedingSeason groups coverages over a date range.
type BreedingSeason struct {
	ID            string           `bson:"_id" json:"id"`
	OwnerID       string           `bson:"ownerId" json:"ownerId"`
	Name          string           `bson:"name" json:"name"`
	StartDate     time.Time        `bson:"startDate" json:"startDate"`
	EndDate       time.Time        `bson:"endDate" json:"endDate"`
	ExposedCowIDs []string         `bson:"exposedCowIds" json:"exposedCowIds"`
	Coverages     []CoverageRecord `bson:"coverageRecords" json:"coverageRecords"`
	Metrics       SeasonMetrics    `bson:"metrics" json:"metrics"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// Coverage returns a pointer to the coverage with the id.
func (s *BreedingSeason) Coverage(id string) *CoverageRecord {
	for i := range s.Coverages {
		if s.Coverages[i].ID == id {
			return &s.Coverages[i]
		}
	}
	return nil
}

// RemoveCoverage drops the coverage with the id.
func (s *BreedingSeason) RemoveCoverage(id string) (CoverageRecord, bool) {
	for i := range s.Coverages {
		if s.Coverages[i].ID == id {
			c := s.Coverages[i]
			s.Coverages = append(s.Coverages[:i], s.Coverages[i+1:]...)
			return c, true
		}
	}
	return CoverageRecord{}, false
}

// HasCoverageFor reports whether any coverage of the season targets the dam.
func (s *BreedingSeason) HasCoverageFor(dam AnimalRef) bool {
	for i := range s.Coverages {
		if dam.Matches(s.Coverages[i].CowID, s.Coverages[i].CowTag) {
			return true
		}
	}
	return false
}

// Overlaps reports whether t falls inside the season widened by margin days.
func (s *BreedingSeason) Overlaps(t time.Time, marginDays int) bool {
	margin := Days(marginDays)
	return !t.Before(s.StartDate.Add(-margin)) && !t.After(s.EndDate.Add(margin))
}

// RecomputeMetrics refreshes the fertility indicators from the coverages.
func (s *BreedingSeason) RecomputeMetrics() {
	m := SeasonMetrics{
		TotalExposed: len(s.ExposedCowIDs),
		TotalCovered: len(s.Coverages),
	}
	for i := range s.Coverages {
		c := &s.Coverages[i]
		if c.PregnancyResult == DiagnosisPositive ||
			(c.RepasseEnabled() && c.Repasse.PregnancyResult == DiagnosisPositive) {
			m.TotalPregnant++
		}
	}
	m.PregnancyRate = ratio(m.TotalPregnant, m.TotalExposed)
	m.ServiceRate = ratio(m.TotalCovered, m.TotalExposed)
	m.ConceptionRate = ratio(m.TotalPregnant, m.TotalCovered)
	s.Metrics = m
}

// Clone returns a deep copy of the season.
func (s BreedingSeason) Clone() BreedingSeason {
	out := s
	out.ExposedCowIDs = cloneSlice(s.ExposedCowIDs)
	if s.Coverages != nil {
		out.Coverages = make([]CoverageRecord, len(s.Coverages))
		for i, c := range s.Coverages {
			out.Coverages[i] = c.Clone()
		}
	}
	return out
}

// Sanitize drops invalid optional dates and normalizes nil lists.
func (s *BreedingSeason) Sanitize() {
	if s.ExposedCowIDs == nil {
		s.ExposedCowIDs = []string{}
	}
	if s.Coverages == nil {
		s.Coverages = []CoverageRecord{}
	}
	for i := range s.Coverages {
		s.Coverages[i].Sanitize()
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
