package domain

import "time"

type RelationType string

const (
	Spouse        RelationType = "SPOUSE"
	Father        RelationType = "FATHER"
	Mother        RelationType = "MOTHER"
	Son           RelationType = "SON"
	Daughter      RelationType = "DAUGHTER"
	Brother       RelationType = "BROTHER"
	Sister        RelationType = "SISTER"
	Grandfather   RelationType = "GRANDFATHER"
	Grandmother   RelationType = "GRANDMOTHER"
	Grandson      RelationType = "GRANDSON"
	Granddaughter RelationType = "GRANDDAUGHTER"
	Uncle         RelationType = "UNCLE"
	Aunt          RelationType = "AUNT"
	Nephew        RelationType = "NEPHEW"
	Niece         RelationType = "NIECE"
	Cousin        RelationType = "COUSIN"
	FatherInLaw   RelationType = "FATHER_IN_LAW"
	MotherInLaw   RelationType = "MOTHER_IN_LAW"
	SonInLaw      RelationType = "SON_IN_LAW"
	DaughterInLaw RelationType = "DAUGHTER_IN_LAW"
	BrotherInLaw  RelationType = "BROTHER_IN_LAW"
	SisterInLaw   RelationType = "SISTER_IN_LAW"
)

// Role groups relation types by how tree assembly treats them.
type Role int

const (
	RoleExtended Role = iota
	RoleParent
	RoleChild
	RoleSpouse
	RoleSibling
)

func (r Role) String() string {
	switch r {
	case RoleParent:
		return "PARENT"
	case RoleChild:
		return "CHILD"
	case RoleSpouse:
		return "SPOUSE"
	case RoleSibling:
		return "SIBLING"
	default:
		return "EXTENDED"
	}
}

// relationRoles is the single source of truth for relation semantics.
// Vertical edges point downward: FATHER/MOTHER edges run from the parent to
// the child, and so do SON/DAUGHTER edges.
var relationRoles = map[RelationType]Role{
	Spouse:        RoleSpouse,
	Father:        RoleParent,
	Mother:        RoleParent,
	Son:           RoleChild,
	Daughter:      RoleChild,
	Brother:       RoleSibling,
	Sister:        RoleSibling,
	Grandfather:   RoleExtended,
	Grandmother:   RoleExtended,
	Grandson:      RoleExtended,
	Granddaughter: RoleExtended,
	Uncle:         RoleExtended,
	Aunt:          RoleExtended,
	Nephew:        RoleExtended,
	Niece:         RoleExtended,
	Cousin:        RoleExtended,
	FatherInLaw:   RoleExtended,
	MotherInLaw:   RoleExtended,
	SonInLaw:      RoleExtended,
	DaughterInLaw: RoleExtended,
	BrotherInLaw:  RoleExtended,
	SisterInLaw:   RoleExtended,
}

// RelationTypes lists every known relation type in declaration order.
var RelationTypes = []RelationType{
	Spouse, Father, Mother, Son, Daughter, Brother, Sister,
	Grandfather, Grandmother, Grandson, Granddaughter,
	Uncle, Aunt, Nephew, Niece, Cousin,
	FatherInLaw, MotherInLaw, SonInLaw, DaughterInLaw, BrotherInLaw, SisterInLaw,
}

func (t RelationType) Valid() bool {
	_, ok := relationRoles[t]
	return ok
}

// Role reports the assembly role of t. Unknown types are EXTENDED.
func (t RelationType) Role() Role {
	return relationRoles[t]
}

type FamilyRelation struct {
	ID           string       `json:"id"`
	TreeID       string       `json:"tree_id"`
	FromMemberID string       `json:"from_member_id"`
	ToMemberID   string       `json:"to_member_id"`
	Type         RelationType `json:"relation_type"`
	CreatedBy    string       `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Touches reports whether memberID is either endpoint of the relation.
func (r FamilyRelation) Touches(memberID string) bool {
	return r.FromMemberID == memberID || r.ToMemberID == memberID
}

// Other returns the endpoint opposite memberID.
func (r FamilyRelation) Other(memberID string) string {
	if r.FromMemberID == memberID {
		return r.ToMemberID
	}
	return r.FromMemberID
}

type RelationDraft struct {
	TreeID       string       `json:"tree_id" validate:"required"`
	FromMemberID string       `json:"from_member_id" validate:"required"`
	ToMemberID   string       `json:"to_member_id" validate:"required,nefield=FromMemberID"`
	Type         RelationType `json:"relation_type" validate:"required,relationtype"`
	CreatedBy    string       `json:"created_by"`
}
