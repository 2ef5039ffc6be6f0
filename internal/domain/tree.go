package domain

import "time"

// FamilyTree is one lineage. RootMemberID references a generation 0 member.
type FamilyTree struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	RootMemberID    string    `json:"root_member_id"`
	OwnerID         string    `json:"owner_id"`
	Collaborators   []string  `json:"collaborators"`
	Viewers         []string  `json:"viewers"`
	CommunityID     string    `json:"community_id,omitempty"`
	IsPublic        bool      `json:"is_public"`
	MemberCount     int       `json:"member_count"`
	GenerationCount int       `json:"generation_count"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasAccess reports whether userID owns, edits or views the tree.
func (t FamilyTree) HasAccess(userID string) bool {
	if t.IsPublic || t.OwnerID == userID {
		return true
	}
	for _, id := range t.Collaborators {
		if id == userID {
			return true
		}
	}
	for _, id := range t.Viewers {
		if id == userID {
			return true
		}
	}
	return false
}

type TreeDraft struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	OwnerID     string `json:"owner_id" validate:"required"`
	CommunityID string `json:"community_id,omitempty"`
	IsPublic    bool   `json:"is_public"`
}

type TreePatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	CommunityID *string `json:"community_id,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}
