package models

import "time"

// AnimalPatch carries the editable fields of an animal; nil means unchanged.
// Weights replaces the whole weight history, and an empty list clears it.
type AnimalPatch struct {
	Tag           *string        `json:"brinco,omitempty"`
	Name          *string        `json:"nome,omitempty"`
	Sex           *Sex           `json:"sexo,omitempty"`
	Breed         *string        `json:"raca,omitempty"`
	Status        *AnimalStatus  `json:"status,omitempty"`
	BirthDate     *time.Time     `json:"dataNascimento,omitempty"`
	CurrentWeight *float64       `json:"pesoAtual,omitempty"`
	Weights       *[]WeightEntry `json:"historicoPesagens,omitempty"`
	MotherID      *string        `json:"maeId,omitempty"`
	MotherName    *string        `json:"maeNome,omitempty"`
	SireID        *string        `json:"paiId,omitempty"`
	SireName      *string        `json:"paiNome,omitempty"`
	DonorID       *string        `json:"maeBiologicaId,omitempty"`
	DonorName     *string        `json:"maeBiologicaNome,omitempty"`
	RecipientID   *string        `json:"maeReceptoraId,omitempty"`
	RecipientName *string        `json:"maeReceptoraNome,omitempty"`
	IsFIV         *bool          `json:"isFIV,omitempty"`
}

// SeasonPatch carries the editable fields of a breeding season.
type SeasonPatch struct {
	Name          *string    `json:"name,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	ExposedCowIDs []string   `json:"exposedCowIds,omitempty"`
}

// RepassePatch carries the editable fields of a repasse.
type RepassePatch struct {
	Enabled         *bool            `json:"enabled,omitempty"`
	StartDate       *time.Time       `json:"startDate,omitempty"`
	BullID          *string          `json:"bullId,omitempty"`
	BullName        *string          `json:"bullName,omitempty"`
	Bulls           []BullRef        `json:"bulls,omitempty"`
	PregnancyResult *DiagnosisResult `json:"pregnancyResult,omitempty"`
	PregnancyCheck  *time.Time       `json:"pregnancyCheckDate,omitempty"`
}

// CoveragePatch carries the editable fields of a coverage.
type CoveragePatch struct {
	CowID           *string          `json:"cowId,omitempty"`
	CowTag          *string          `json:"cowBrinco,omitempty"`
	Date            *time.Time       `json:"date,omitempty"`
	Type            *BreedingType    `json:"type,omitempty"`
	BullID          *string          `json:"bullId,omitempty"`
	BullName        *string          `json:"bullName,omitempty"`
	Bulls           []BullRef        `json:"bulls,omitempty"`
	SemenCode       *string          `json:"semenCode,omitempty"`
	DonorCowID      *string          `json:"donorCowId,omitempty"`
	DonorCowTag     *string          `json:"donorCowBrinco,omitempty"`
	PregnancyResult *DiagnosisResult `json:"pregnancyResult,omitempty"`
	PregnancyCheck  *time.Time       `json:"pregnancyCheckDate,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	Repasse         *RepassePatch    `json:"repasse,omitempty"`
}

// DiagnosisUpdate records a pregnancy check on the coverage or its repasse.
type DiagnosisUpdate struct {
	Result    DiagnosisResult `json:"result"`
	CheckDate *time.Time      `json:"checkDate,omitempty"`
	Repasse   bool            `json:"repasse,omitempty"`
}

// PaternityConfirmation selects the real sire among the candidates, by index
// into Bulls or by an explicit bull reference.
type PaternityConfirmation struct {
	BullIndex *int    `json:"bullIndex,omitempty"`
	Bull      BullRef `json:"bull"`
	Repasse   bool    `json:"repasse,omitempty"`
}

// CalvingRegistration links a born calf to a coverage.
type CalvingRegistration struct {
	CalfID  string     `json:"calfId"`
	Date    *time.Time `json:"date,omitempty"`
	Repasse bool       `json:"repasse,omitempty"`
}

// AbortionRegistration marks a coverage as lost.
type AbortionRegistration struct {
	Date    time.Time `json:"date"`
	Notes   string    `json:"notes,omitempty"`
	Repasse bool      `json:"repasse,omitempty"`
}
