// Package catalog provides the reference registries read by the stage engine.
package catalog

// Kind identifies one of the catalog registries.
type Kind string

const (
	// KindProposalTypes lists proposal types.
	KindProposalTypes Kind = "proposal_types"

	// KindUnits lists organizational units.
	KindUnits Kind = "units"

	// KindStageTypes lists stage types.
	KindStageTypes Kind = "stage_types"
)

// ParseKind converts a user-supplied string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProposalTypes, KindUnits, KindStageTypes:
		return Kind(s), nil
	}
	return "", ErrUnknownKind
}

// Entry is the common view over every catalog record.
type Entry interface {
	EntryID() string
	EntryName() string
	DisplayOrder() int
}

// UnitCategory classifies an organizational unit.
type UnitCategory string

const (
	// UnitCategoryCommittee is a standing or temporary committee.
	UnitCategoryCommittee UnitCategory = "committee"

	// UnitCategoryPresidingBoard is the chamber's presiding board.
	UnitCategoryPresidingBoard UnitCategory = "presiding_board"

	// UnitCategoryPlenary is the plenary session.
	UnitCategoryPlenary UnitCategory = "plenary"

	// UnitCategoryExecutive is the executive branch.
	UnitCategoryExecutive UnitCategory = "executive"

	// UnitCategoryOther covers everything else.
	UnitCategoryOther UnitCategory = "other"
)

// IsValid returns true if the category is one of the known categories.
func (c UnitCategory) IsValid() bool {
	switch c {
	case UnitCategoryCommittee, UnitCategoryPresidingBoard, UnitCategoryPlenary,
		UnitCategoryExecutive, UnitCategoryOther:
		return true
	}
	return false
}

// ProposalType describes a kind of legislative proposal.
type ProposalType struct {
	ID                   string `json:"id" yaml:"id"`
	Code                 string `json:"code" yaml:"code"`
	Name                 string `json:"name" yaml:"name"`
	ShortCode            string `json:"short_code,omitempty" yaml:"short_code,omitempty"`
	Active               bool   `json:"active" yaml:"active"`
	RequiresVote         bool   `json:"requires_vote" yaml:"requires_vote"`
	RequiresRatification bool   `json:"requires_ratification" yaml:"requires_ratification"`
	Order                int    `json:"order" yaml:"order"`
}

// EntryID implements Entry.
func (p *ProposalType) EntryID() string { return p.ID }

// EntryName implements Entry.
func (p *ProposalType) EntryName() string { return p.Name }

// DisplayOrder implements Entry.
func (p *ProposalType) DisplayOrder() int { return p.Order }

// Validate checks required fields.
func (p *ProposalType) Validate() error {
	if p.ID == "" || p.Name == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Unit is an organizational unit a proposal can visit.
type Unit struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	ShortCode string       `json:"short_code,omitempty" yaml:"short_code,omitempty"`
	Category  UnitCategory `json:"category" yaml:"category"`
	Active    bool         `json:"active" yaml:"active"`
	Order     int          `json:"order" yaml:"order"`
}

// EntryID implements Entry.
func (u *Unit) EntryID() string { return u.ID }

// EntryName implements Entry.
func (u *Unit) EntryName() string { return u.Name }

// DisplayOrder implements Entry.
func (u *Unit) DisplayOrder() int { return u.Order }

// Validate checks required fields.
func (u *Unit) Validate() error {
	if u.ID == "" || u.Name == "" {
		return ErrInvalidEntry
	}
	if u.Category != "" && !u.Category.IsValid() {
		return ErrInvalidEntry
	}
	return nil
}

// StageType is a reusable kind of routing step.
type StageType struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// RegimentalDeadline is the deadline in business days; zero means none.
	RegimentalDeadline int `json:"regimental_deadline" yaml:"regimental_deadline"`

	// LegalDeadline is an optional statutory deadline in business days.
	LegalDeadline int `json:"legal_deadline,omitempty" yaml:"legal_deadline,omitempty"`

	// UnitID references the responsible unit.
	UnitID string `json:"unit_id,omitempty" yaml:"unit_id,omitempty"`

	// Unit is the legacy spelling of UnitID. Read it through ResponsibleUnit.
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`

	RequiresOpinion bool   `json:"requires_opinion" yaml:"requires_opinion"`
	AllowsReturn    bool   `json:"allows_return" yaml:"allows_return"`
	OutcomeLabel    string `json:"outcome_label,omitempty" yaml:"outcome_label,omitempty"`
	Order           int    `json:"order" yaml:"order"`
}

// EntryID implements Entry.
func (s *StageType) EntryID() string { return s.ID }

// EntryName implements Entry.
func (s *StageType) EntryName() string { return s.Name }

// DisplayOrder implements Entry.
func (s *StageType) DisplayOrder() int { return s.Order }

// ResponsibleUnit returns the responsible unit ID, preferring UnitID over the
// legacy Unit field. It returns "" when neither is set.
func (s *StageType) ResponsibleUnit() string {
	if s.UnitID != "" {
		return s.UnitID
	}
	return s.Unit
}

// Validate checks required fields.
func (s *StageType) Validate() error {
	if s.ID == "" || s.Name == "" {
		return ErrInvalidEntry
	}
	if s.RegimentalDeadline < 0 || s.LegalDeadline < 0 {
		return ErrInvalidEntry
	}
	return nil
}
