package models

// AnimalRef points at an animal by id, by tag, or both. Tags are free text
// entered by hand, so either side may be missing on older records.
type AnimalRef struct {
	ID  string `bson:"id,omitempty" json:"id,omitempty"`
	Tag string `bson:"tag,omitempty" json:"tag,omitempty"`
}

// IsZero reports whether the reference carries neither id nor tag.
func (r AnimalRef) IsZero() bool {
	return r.ID == "" && NormalizeTag(r.Tag) == ""
}

// Matches reports whether an (id, tag) pair stored on a record points at r.
// Ids win; the normalized tag is the fallback.
func (r AnimalRef) Matches(id, tag string) bool {
	if r.ID != "" && id != "" && r.ID == id {
		return true
	}
	return SameTag(r.Tag, tag)
}

// ParentageKind discriminates the two lineage modes.
type ParentageKind string

const (
	ParentageDirect ParentageKind = "direct"
	ParentageFIV    ParentageKind = "fiv"
)

// ParentageMode is either Direct(dam) or FIV(recipient, donor). For FIV the
// Dam field holds the gestating recipient and Donor the genetic mother.
type ParentageMode struct {
	Kind  ParentageKind
	Dam   AnimalRef
	Donor AnimalRef
}

// DirectParentage builds the mode for a calf carried by its genetic mother.
func DirectParentage(dam AnimalRef) ParentageMode {
	return ParentageMode{Kind: ParentageDirect, Dam: dam}
}

// FIVParentage builds the mode for an embryo transferred into a recipient.
func FIVParentage(recipient, donor AnimalRef) ParentageMode {
	return ParentageMode{Kind: ParentageFIV, Dam: recipient, Donor: donor}
}

// ParentageFor derives the matching mode of a coverage from its breeding type.
func ParentageFor(t BreedingType, dam, donor AnimalRef) ParentageMode {
	if t == BreedingFIV {
		return FIVParentage(dam, donor)
	}
	return DirectParentage(dam)
}

// IsFIV reports whether the mode is the recipient/donor split.
func (m ParentageMode) IsFIV() bool {
	return m.Kind == ParentageFIV
}

// Admits reports whether the child belongs to this lineage. The two modes are
// mutually exclusive: an FIV product never matches a Direct mode and a direct
// calf never matches an FIV mode, even when tags overlap.
func (m ParentageMode) Admits(child *Animal) bool {
	if child == nil || m.Dam.IsZero() {
		return false
	}
	switch m.Kind {
	case ParentageFIV:
		if !child.IsFIVProduct() {
			return false
		}
		if !m.Dam.Matches(child.RecipientID, child.RecipientName) {
			return false
		}
		if !m.Donor.IsZero() && !m.Donor.Matches(child.DonorID, child.DonorName) {
			return false
		}
		return true
	default:
		if child.IsFIVProduct() {
			return false
		}
		return m.Dam.Matches(child.MotherID, child.MotherName)
	}
}
