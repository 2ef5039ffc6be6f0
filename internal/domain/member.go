package domain

import "time"

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
	Other  Gender = "other"
)

// FamilyMember is a person node. Generation is relative to the tree root:
// 0 is the root, positive values are descendants, negative are ancestors.
type FamilyMember struct {
	ID          string     `json:"id"`
	TreeID      string     `json:"tree_id"`
	UserID      string     `json:"user_id,omitempty"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DisplayName string     `json:"display_name"`
	Gender      Gender     `json:"gender"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
	IsAlive     bool       `json:"is_alive"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
	Occupation  string     `json:"occupation,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	SpouseID    string     `json:"spouse_id,omitempty"`
	Generation  int        `json:"generation"`
	Version     int64      `json:"version"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MemberDraft carries the caller-supplied fields of a new member.
// An empty DisplayName is derived from the first and last name.
type MemberDraft struct {
	TreeID      string     `json:"tree_id" validate:"required"`
	UserID      string     `json:"user_id,omitempty"`
	FirstName   string     `json:"first_name" validate:"required,max=100"`
	LastName    string     `json:"last_name" validate:"max=100"`
	DisplayName string     `json:"display_name" validate:"max=200"`
	Gender      Gender     `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	DateOfDeath *time.Time `json:"date_of_death,omitempty"`
	IsAlive     bool       `json:"is_alive"`
	PhotoURL    string     `json:"photo_url,omitempty" validate:"omitempty,url"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty" validate:"omitempty,email"`
	Address     string     `json:"address,omitempty"`
	Occupation  string     `json:"occupation,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	SpouseID    string     `json:"spouse_id,omitempty"`
	Generation  int        `json:"generation"`
	CreatedBy   string     `json:"created_by"`
}

func (d MemberDraft) ResolvedDisplayName() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	if d.LastName == "" {
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

// MemberPatch is a partial update. Nil fields are left untouched.
type MemberPatch struct {
	UserID           *string    `json:"user_id,omitempty"`
	FirstName        *string    `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName         *string    `json:"last_name,omitempty" validate:"omitempty,max=100"`
	DisplayName      *string    `json:"display_name,omitempty" validate:"omitempty,max=200"`
	Gender           *Gender    `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	ClearDateOfBirth bool       `json:"clear_date_of_birth,omitempty"`
	DateOfDeath      *time.Time `json:"date_of_death,omitempty"`
	ClearDateOfDeath bool       `json:"clear_date_of_death,omitempty"`
	IsAlive          *bool      `json:"is_alive,omitempty"`
	PhotoURL         *string    `json:"photo_url,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Email            *string    `json:"email,omitempty" validate:"omitempty,email"`
	Address          *string    `json:"address,omitempty"`
	Occupation       *string    `json:"occupation,omitempty"`
	Bio              *string    `json:"bio,omitempty"`
	SpouseID         *string    `json:"spouse_id,omitempty"`
	Generation       *int       `json:"generation,omitempty"`
}
