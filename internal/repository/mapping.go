package repository

import (
	"time"

	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/domain"
)

const (
	TreesCollection     = "familyTrees"
	MembersCollection   = "familyMembers"
	RelationsCollection = "familyRelations"
	EventsCollection    = "familyEvents"
)

func treeFields(tree domain.FamilyTree) docstore.Fields {
	return docstore.Fields{
		"name":            tree.Name,
		"description":     tree.Description,
		"rootMemberId":    tree.RootMemberID,
		"ownerId":         tree.OwnerID,
		"collaborators":   nonNil(tree.Collaborators),
		"viewers":         nonNil(tree.Viewers),
		"communityId":     tree.CommunityID,
		"isPublic":        tree.IsPublic,
		"memberCount":     int64(tree.MemberCount),
		"generationCount": int64(tree.GenerationCount),
		"version":         tree.Version,
		"createdAt":       tree.CreatedAt,
		"updatedAt":       tree.UpdatedAt,
	}
}

func treeFromDoc(doc docstore.Document) domain.FamilyTree {
	f := doc.Fields
	return domain.FamilyTree{
		ID:              doc.ID,
		Name:            f.String("name"),
		Description:     f.String("description"),
		RootMemberID:    f.String("rootMemberId"),
		OwnerID:         f.String("ownerId"),
		Collaborators:   f.Strings("collaborators"),
		Viewers:         f.Strings("viewers"),
		CommunityID:     f.String("communityId"),
		IsPublic:        f.Bool("isPublic"),
		MemberCount:     f.Int("memberCount"),
		GenerationCount: f.Int("generationCount"),
		Version:         f.Int64("version"),
		CreatedAt:       f.Time("createdAt"),
		UpdatedAt:       f.Time("updatedAt"),
	}
}

func treePatchFields(p domain.TreePatch) docstore.Fields {
	fields := docstore.Fields{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.CommunityID != nil {
		fields["communityId"] = *p.CommunityID
	}
	if p.IsPublic != nil {
		fields["isPublic"] = *p.IsPublic
	}
	return fields
}

func memberFields(m domain.FamilyMember) docstore.Fields {
	fields := docstore.Fields{
		"treeId":      m.TreeID,
		"userId":      m.UserID,
		"firstName":   m.FirstName,
		"lastName":    m.LastName,
		"displayName": m.DisplayName,
		"gender":      string(m.Gender),
		"isAlive":     m.IsAlive,
		"photoUrl":    m.PhotoURL,
		"phone":       m.Phone,
		"email":       m.Email,
		"address":     m.Address,
		"occupation":  m.Occupation,
		"bio":         m.Bio,
		"spouseId":    m.SpouseID,
		"generation":  int64(m.Generation),
		"version":     m.Version,
		"createdBy":   m.CreatedBy,
		"createdAt":   m.CreatedAt,
		"updatedAt":   m.UpdatedAt,
	}
	if m.DateOfBirth != nil {
		fields["dateOfBirth"] = *m.DateOfBirth
	}
	if m.DateOfDeath != nil {
		fields["dateOfDeath"] = *m.DateOfDeath
	}
	return fields
}

func memberFromDraft(id string, d domain.MemberDraft, now time.Time) domain.FamilyMember {
	return domain.FamilyMember{
		ID:          id,
		TreeID:      d.TreeID,
		UserID:      d.UserID,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		DisplayName: d.ResolvedDisplayName(),
		Gender:      d.Gender,
		DateOfBirth: d.DateOfBirth,
		DateOfDeath: d.DateOfDeath,
		IsAlive:     d.IsAlive,
		PhotoURL:    d.PhotoURL,
		Phone:       d.Phone,
		Email:       d.Email,
		Address:     d.Address,
		Occupation:  d.Occupation,
		Bio:         d.Bio,
		SpouseID:    d.SpouseID,
		Generation:  d.Generation,
		Version:     1,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func memberFromDoc(doc docstore.Document) domain.FamilyMember {
	f := doc.Fields
	m := domain.FamilyMember{
		ID:          doc.ID,
		TreeID:      f.String("treeId"),
		UserID:      f.String("userId"),
		FirstName:   f.String("firstName"),
		LastName:    f.String("lastName"),
		DisplayName: f.String("displayName"),
		Gender:      domain.Gender(f.String("gender")),
		IsAlive:     f.Bool("isAlive"),
		PhotoURL:    f.String("photoUrl"),
		Phone:       f.String("phone"),
		Email:       f.String("email"),
		Address:     f.String("address"),
		Occupation:  f.String("occupation"),
		Bio:         f.String("bio"),
		SpouseID:    f.String("spouseId"),
		Generation:  f.Int("generation"),
		Version:     f.Int64("version"),
		CreatedBy:   f.String("createdBy"),
		CreatedAt:   f.Time("createdAt"),
		UpdatedAt:   f.Time("updatedAt"),
	}
	m.DateOfBirth, _ = f.TimePtr("dateOfBirth")
	m.DateOfDeath, _ = f.TimePtr("dateOfDeath")
	return m
}

func memberPatchFields(p domain.MemberPatch) docstore.Fields {
	fields := docstore.Fields{}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	setString("userId", p.UserID)
	setString("firstName", p.FirstName)
	setString("lastName", p.LastName)
	setString("displayName", p.DisplayName)
	setString("photoUrl", p.PhotoURL)
	setString("phone", p.Phone)
	setString("email", p.Email)
	setString("address", p.Address)
	setString("occupation", p.Occupation)
	setString("bio", p.Bio)
	setString("spouseId", p.SpouseID)
	if p.Gender != nil {
		fields["gender"] = string(*p.Gender)
	}
	if p.IsAlive != nil {
		fields["isAlive"] = *p.IsAlive
	}
	if p.Generation != nil {
		fields["generation"] = int64(*p.Generation)
	}
	switch {
	case p.ClearDateOfBirth:
		fields["dateOfBirth"] = nil
	case p.DateOfBirth != nil:
		fields["dateOfBirth"] = *p.DateOfBirth
	}
	switch {
	case p.ClearDateOfDeath:
		fields["dateOfDeath"] = nil
	case p.DateOfDeath != nil:
		fields["dateOfDeath"] = *p.DateOfDeath
	}
	return fields
}

func relationFields(r domain.FamilyRelation) docstore.Fields {
	return docstore.Fields{
		"treeId":       r.TreeID,
		"fromMemberId": r.FromMemberID,
		"toMemberId":   r.ToMemberID,
		"relationType": string(r.Type),
		"createdBy":    r.CreatedBy,
		"createdAt":    r.CreatedAt,
	}
}

func relationFromDoc(doc docstore.Document) domain.FamilyRelation {
	f := doc.Fields
	return domain.FamilyRelation{
		ID:           doc.ID,
		TreeID:       f.String("treeId"),
		FromMemberID: f.String("fromMemberId"),
		ToMemberID:   f.String("toMemberId"),
		Type:         domain.RelationType(f.String("relationType")),
		CreatedBy:    f.String("createdBy"),
		CreatedAt:    f.Time("createdAt"),
	}
}

func eventFields(e domain.FamilyEvent) docstore.Fields {
	return docstore.Fields{
		"treeId":      e.TreeID,
		"title":       e.Title,
		"description": e.Description,
		"eventType":   string(e.Type),
		"date":        e.Date,
		"location":    e.Location,
		"memberIds":   nonNil(e.MemberIDs),
		"photos":      nonNil(e.Photos),
		"createdBy":   e.CreatedBy,
		"createdAt":   e.CreatedAt,
	}
}

func eventFromDoc(doc docstore.Document) domain.FamilyEvent {
	f := doc.Fields
	return domain.FamilyEvent{
		ID:          doc.ID,
		TreeID:      f.String("treeId"),
		Title:       f.String("title"),
		Description: f.String("description"),
		Type:        domain.EventType(f.String("eventType")),
		Date:        f.Time("date"),
		Location:    f.String("location"),
		MemberIDs:   f.Strings("memberIds"),
		Photos:      f.Strings("photos"),
		CreatedBy:   f.String("createdBy"),
		CreatedAt:   f.Time("createdAt"),
	}
}

func eventPatchFields(p domain.EventPatch) docstore.Fields {
	fields := docstore.Fields{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Type != nil {
		fields["eventType"] = string(*p.Type)
	}
	if p.Date != nil {
		fields["date"] = *p.Date
	}
	if p.Location != nil {
		fields["location"] = *p.Location
	}
	if len(p.AddMembers) > 0 {
		fields["memberIds"] = docstore.ArrayUnion{Values: p.AddMembers}
	}
	if len(p.AddPhotos) > 0 {
		fields["photos"] = docstore.ArrayUnion{Values: p.AddPhotos}
	}
	return fields
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
