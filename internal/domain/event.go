package domain

import "time"

type EventType string

const (
	EventBirth       EventType = "birth"
	EventDeath       EventType = "death"
	EventMarriage    EventType = "marriage"
	EventAnniversary EventType = "anniversary"
	EventReunion     EventType = "reunion"
	EventOther       EventType = "other"
)

type FamilyEvent struct {
	ID          string    `json:"id"`
	TreeID      string    `json:"tree_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        EventType `json:"event_type"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	MemberIDs   []string  `json:"member_ids"`
	Photos      []string  `json:"photos"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type EventDraft struct {
	TreeID      string    `json:"tree_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description,omitempty"`
	Type        EventType `json:"event_type" validate:"required,oneof=birth death marriage anniversary reunion other"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location,omitempty"`
	MemberIDs   []string  `json:"member_ids"`
	Photos      []string  `json:"photos" validate:"dive,url"`
	CreatedBy   string    `json:"created_by"`
}

type EventPatch struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty"`
	Type        *EventType `json:"event_type,omitempty" validate:"omitempty,oneof=birth death marriage anniversary reunion other"`
	Date        *time.Time `json:"date,omitempty"`
	Location    *string    `json:"location,omitempty"`
	AddMembers  []string   `json:"add_members,omitempty"`
	AddPhotos   []string   `json:"add_photos,omitempty" validate:"dive,url"`
}
