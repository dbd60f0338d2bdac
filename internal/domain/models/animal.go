package models

import (
	"sort"
	"strings"
	"time"
)

// Sex of an animal as stored in the herd book.
type Sex string

const (
	SexMale   Sex = "macho"
	SexFemale Sex = "femea"
)

// AnimalStatus tracks whether the animal is still part of the herd.
type AnimalStatus string

const (
	StatusActive   AnimalStatus = "ativo"
	StatusSold     AnimalStatus = "vendido"
	StatusDeceased AnimalStatus = "morto"
)

// WeightClass marks the reference weighings used by progeny records.
type WeightClass string

const (
	WeightClassNone     WeightClass = ""
	WeightClassBirth    WeightClass = "nascimento"
	WeightClassWeaning  WeightClass = "desmame"
	WeightClassYearling WeightClass = "sobreano"
)

// WeightEntry is one weighing of an animal.
type WeightEntry struct {
	ID     string      `bson:"id" json:"id"`
	Date   time.Time   `bson:"date" json:"date"`
	Weight float64     `bson:"weight" json:"weight"`
	Class  WeightClass `bson:"class,omitempty" json:"class,omitempty"`
}

// MedicationItem is a single drug given during an administration.
type MedicationItem struct {
	Drug string  `bson:"drug" json:"drug"`
	Dose float64 `bson:"dose" json:"dose"`
	Unit string  `bson:"unit" json:"unit"`
}

// MedicationAdministration groups the drugs applied on the same occasion.
type MedicationAdministration struct {
	ID          string           `bson:"id" json:"id"`
	Items       []MedicationItem `bson:"items" json:"items"`
	Date        time.Time        `bson:"date" json:"date"`
	Reason      string           `bson:"reason,omitempty" json:"reason,omitempty"`
	Responsible string           `bson:"responsible,omitempty" json:"responsible,omitempty"`
}

// PregnancyRecord mirrors a coverage (or its repasse) on the dam.
type PregnancyRecord struct {
	ID       string          `bson:"id" json:"id"`
	Date     time.Time       `bson:"date" json:"date"`
	Type     BreedingType    `bson:"type" json:"type"`
	SireName string          `bson:"sireName,omitempty" json:"sireName,omitempty"`
	Result   DiagnosisResult `bson:"result" json:"result"`
}

// AbortionRecord is a lost pregnancy registered on the dam.
type AbortionRecord struct {
	ID   string    `bson:"id" json:"id"`
	Date time.Time `bson:"date" json:"date"`
}

// OffspringWeightRecord is a progeny entry held on the mother (or FIV donor).
// Placeholder entries are created for embryos before the calf exists; they
// carry the coverage and recipient ids so that the calf can claim them later.
type OffspringWeightRecord struct {
	ID             string   `bson:"id" json:"id"`
	OffspringID    string   `bson:"offspringId,omitempty" json:"offspringId,omitempty"`
	OffspringTag   string   `bson:"offspringTag" json:"offspringTag"`
	BirthWeight    *float64 `bson:"birthWeight,omitempty" json:"birthWeight,omitempty"`
	WeaningWeight  *float64 `bson:"weaningWeight,omitempty" json:"weaningWeight,omitempty"`
	YearlingWeight *float64 `bson:"yearlingWeight,omitempty" json:"yearlingWeight,omitempty"`
	Placeholder    bool     `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
	CoverageID     string   `bson:"coverageId,omitempty" json:"coverageId,omitempty"`
	RecipientID    string   `bson:"recipientId,omitempty" json:"recipientId,omitempty"`
	RecipientTag   string   `bson:"recipientTag,omitempty" json:"recipientTag,omitempty"`
}

// Animal is a herd-book entry with its embedded histories.
type Animal struct {
	ID            string       `bson:"_id" json:"id"`
	OwnerID       string       `bson:"ownerId" json:"ownerId"`
	Tag           string       `bson:"brinco" json:"brinco"`
	Name          string       `bson:"nome,omitempty" json:"nome,omitempty"`
	Sex           Sex          `bson:"sexo" json:"sexo"`
	Breed         string       `bson:"raca,omitempty" json:"raca,omitempty"`
	Status        AnimalStatus `bson:"status" json:"status"`
	BirthDate     *time.Time   `bson:"dataNascimento,omitempty" json:"dataNascimento,omitempty"`
	CurrentWeight float64      `bson:"pesoAtual,omitempty" json:"pesoAtual,omitempty"`

	Weights     []WeightEntry              `bson:"historicoPesagens" json:"historicoPesagens"`
	Health      []MedicationAdministration `bson:"historicoSanitario" json:"historicoSanitario"`
	Pregnancies []PregnancyRecord          `bson:"historicoPrenhez" json:"historicoPrenhez"`
	Abortions   []AbortionRecord           `bson:"historicoAborto" json:"historicoAborto"`
	Progeny     []OffspringWeightRecord    `bson:"historicoProgenie" json:"historicoProgenie"`

	MotherID      string `bson:"maeId,omitempty" json:"maeId,omitempty"`
	MotherName    string `bson:"maeNome,omitempty" json:"maeNome,omitempty"`
	SireID        string `bson:"paiId,omitempty" json:"paiId,omitempty"`
	SireName      string `bson:"paiNome,omitempty" json:"paiNome,omitempty"`
	DonorID       string `bson:"maeBiologicaId,omitempty" json:"maeBiologicaId,omitempty"`
	DonorName     string `bson:"maeBiologicaNome,omitempty" json:"maeBiologicaNome,omitempty"`
	RecipientID   string `bson:"maeReceptoraId,omitempty" json:"maeReceptoraId,omitempty"`
	RecipientName string `bson:"maeReceptoraNome,omitempty" json:"maeReceptoraNome,omitempty"`
	IsFIV         bool   `bson:"isFIV,omitempty" json:"isFIV,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsFIVProduct reports whether the animal was produced by in-vitro
// fertilization, either flagged explicitly or inferred from a recipient
// reference.
func (a *Animal) IsFIVProduct() bool {
	return a.IsFIV || a.RecipientID != "" || strings.TrimSpace(a.RecipientName) != ""
}

// Parentage returns the lineage mode under which the animal must be matched.
func (a *Animal) Parentage() ParentageMode {
	if a.IsFIVProduct() {
		return FIVParentage(
			AnimalRef{ID: a.RecipientID, Tag: a.RecipientName},
			AnimalRef{ID: a.DonorID, Tag: a.DonorName},
		)
	}
	return DirectParentage(AnimalRef{ID: a.MotherID, Tag: a.MotherName})
}

// Ref returns the id/tag pair identifying the animal.
func (a *Animal) Ref() AnimalRef {
	return AnimalRef{ID: a.ID, Tag: a.Tag}
}

// WeightByClass returns the latest weight recorded with the given class.
func (a *Animal) WeightByClass(class WeightClass) *float64 {
	var found *float64
	var at time.Time
	for i := range a.Weights {
		w := a.Weights[i]
		if w.Class != class {
			continue
		}
		if found == nil || !w.Date.Before(at) {
			v := w.Weight
			found = &v
			at = w.Date
		}
	}
	return found
}

// HasPregnancy reports whether a pregnancy record with the id exists.
func (a *Animal) HasPregnancy(id string) bool {
	return a.pregnancyIndex(id) >= 0
}

// HasAbortion reports whether an abortion record with the id exists.
func (a *Animal) HasAbortion(id string) bool {
	for i := range a.Abortions {
		if a.Abortions[i].ID == id {
			return true
		}
	}
	return false
}

// UpsertPregnancy replaces the record with the same id or inserts it. A
// record whose date moved is re-inserted at its new position.
func (a *Animal) UpsertPregnancy(rec PregnancyRecord) {
	if idx := a.pregnancyIndex(rec.ID); idx >= 0 {
		if a.Pregnancies[idx].Date.Equal(rec.Date) {
			a.Pregnancies[idx] = rec
			return
		}
		a.Pregnancies = append(a.Pregnancies[:idx], a.Pregnancies[idx+1:]...)
	}
	a.Pregnancies = insertByDate(a.Pregnancies, rec, func(p PregnancyRecord) time.Time { return p.Date })
}

// Pregnancy returns a pointer into the history for in-place edits.
func (a *Animal) Pregnancy(id string) *PregnancyRecord {
	if idx := a.pregnancyIndex(id); idx >= 0 {
		return &a.Pregnancies[idx]
	}
	return nil
}

// RemovePregnancy drops the record with the id and reports whether one existed.
func (a *Animal) RemovePregnancy(id string) bool {
	idx := a.pregnancyIndex(id)
	if idx < 0 {
		return false
	}
	a.Pregnancies = append(a.Pregnancies[:idx], a.Pregnancies[idx+1:]...)
	return true
}

// AddWeight inserts the weighing keeping the history ordered by date.
func (a *Animal) AddWeight(e WeightEntry) {
	a.Weights = insertByDate(a.Weights, e, func(w WeightEntry) time.Time { return w.Date })
}

// AddMedication inserts the treatment keeping the history ordered by date.
func (a *Animal) AddMedication(m MedicationAdministration) {
	a.Health = insertByDate(a.Health, m, func(h MedicationAdministration) time.Time { return h.Date })
}

// SortHistories orders the weight and health histories by date. Entries on
// the same date keep their relative order.
func (a *Animal) SortHistories() {
	sort.SliceStable(a.Weights, func(i, j int) bool { return a.Weights[i].Date.Before(a.Weights[j].Date) })
	sort.SliceStable(a.Health, func(i, j int) bool { return a.Health[i].Date.Before(a.Health[j].Date) })
}

// AddAbortion appends the record unless one with the same id is present.
func (a *Animal) AddAbortion(rec AbortionRecord) bool {
	if a.HasAbortion(rec.ID) {
		return false
	}
	a.Abortions = insertByDate(a.Abortions, rec, func(r AbortionRecord) time.Time { return r.Date })
	return true
}

// RemoveAbortion drops the record with the id and reports whether one existed.
func (a *Animal) RemoveAbortion(id string) bool {
	for i := range a.Abortions {
		if a.Abortions[i].ID == id {
			a.Abortions = append(a.Abortions[:i], a.Abortions[i+1:]...)
			return true
		}
	}
	return false
}

// Offspring returns the progeny record with the id.
func (a *Animal) Offspring(id string) *OffspringWeightRecord {
	for i := range a.Progeny {
		if a.Progeny[i].ID == id {
			return &a.Progeny[i]
		}
	}
	return nil
}

// OffspringFor returns the progeny record already tied to the calf id.
func (a *Animal) OffspringFor(calfID string) *OffspringWeightRecord {
	if calfID == "" {
		return nil
	}
	for i := range a.Progeny {
		if a.Progeny[i].OffspringID == calfID {
			return &a.Progeny[i]
		}
	}
	return nil
}

// AddOffspring appends a progeny record unless one with the same id exists.
func (a *Animal) AddOffspring(rec OffspringWeightRecord) bool {
	if a.Offspring(rec.ID) != nil {
		return false
	}
	a.Progeny = append(a.Progeny, rec)
	return true
}

// RemoveOffspring drops the progeny record with the id.
func (a *Animal) RemoveOffspring(id string) (OffspringWeightRecord, bool) {
	for i := range a.Progeny {
		if a.Progeny[i].ID == id {
			rec := a.Progeny[i]
			a.Progeny = append(a.Progeny[:i], a.Progeny[i+1:]...)
			return rec, true
		}
	}
	return OffspringWeightRecord{}, false
}

func (a *Animal) pregnancyIndex(id string) int {
	for i := range a.Pregnancies {
		if a.Pregnancies[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the animal.
func (a Animal) Clone() Animal {
	out := a
	out.BirthDate = cloneTime(a.BirthDate)
	out.Weights = cloneSlice(a.Weights)
	if a.Health != nil {
		out.Health = make([]MedicationAdministration, len(a.Health))
		for i, h := range a.Health {
			h.Items = cloneSlice(h.Items)
			out.Health[i] = h
		}
	}
	out.Pregnancies = cloneSlice(a.Pregnancies)
	out.Abortions = cloneSlice(a.Abortions)
	if a.Progeny != nil {
		out.Progeny = make([]OffspringWeightRecord, len(a.Progeny))
		for i, p := range a.Progeny {
			p.BirthWeight = cloneFloat(p.BirthWeight)
			p.WeaningWeight = cloneFloat(p.WeaningWeight)
			p.YearlingWeight = cloneFloat(p.YearlingWeight)
			out.Progeny[i] = p
		}
	}
	return out
}

// Sanitize drops optional dates that would be written as sentinels and
// normalizes nil histories to empty slices.
func (a *Animal) Sanitize() {
	a.BirthDate = ValidDate(a.BirthDate)
	if a.Weights == nil {
		a.Weights = []WeightEntry{}
	}
	if a.Health == nil {
		a.Health = []MedicationAdministration{}
	}
	if a.Pregnancies == nil {
		a.Pregnancies = []PregnancyRecord{}
	}
	if a.Abortions == nil {
		a.Abortions = []AbortionRecord{}
	}
	if a.Progeny == nil {
		a.Progeny = []OffspringWeightRecord{}
	}
}
