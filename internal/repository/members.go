package repository

import (
	"context"

	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/domain"
)

// AddMember writes a new member. When parentID and relType are both set, the
// parent→member edge is written in the same batch. The tree's member count
// is incremented in that batch too.
func (r *FamilyRepository) AddMember(ctx context.Context, draft domain.MemberDraft, parentID string, relType domain.RelationType) (string, error) {
	const op = "add member"
	if err := domain.Validate(op, draft); err != nil {
		return "", err
	}
	if (parentID == "") != (relType == "") {
		return "", domain.Malformed(op, "parent id and relation type must be given together")
	}
	if relType != "" && !relType.Valid() {
		return "", domain.Malformed(op, "unknown relation type %q", relType)
	}
	if parentID != "" {
		parent, err := r.GetMember(ctx, parentID)
		if err != nil {
			return "", err
		}
		if parent.TreeID != draft.TreeID {
			return "", domain.Malformed(op, "parent %s belongs to tree %s, not %s", parentID, parent.TreeID, draft.TreeID)
		}
	}

	now := r.now().UTC()
	member := memberFromDraft(r.newID(), draft, now)
	writes := []docstore.Write{
		docstore.CreateWrite(MembersCollection, member.ID, memberFields(member)),
	}
	if parentID != "" {
		rel := domain.FamilyRelation{
			ID:           r.newID(),
			TreeID:       draft.TreeID,
			FromMemberID: parentID,
			ToMemberID:   member.ID,
			Type:         relType,
			CreatedBy:    draft.CreatedBy,
			CreatedAt:    now,
		}
		writes = append(writes, docstore.CreateWrite(RelationsCollection, rel.ID, relationFields(rel)))
	}
	writes = append(writes, docstore.UpdateWrite(TreesCollection, draft.TreeID, docstore.Fields{
		"memberCount": docstore.Increment{By: 1},
		"updatedAt":   docstore.ServerTimestamp{},
	}))

	if err := r.store.Commit(ctx, writes); err != nil {
		return "", translate(op, member.ID, err, true)
	}
	return member.ID, nil
}

func (r *FamilyRepository) GetMember(ctx context.Context, id string) (*domain.FamilyMember, error) {
	doc, err := r.store.Get(ctx, MembersCollection, id)
	if err != nil {
		return nil, translate("get member", id, err, false)
	}
	m := memberFromDoc(doc)
	return &m, nil
}

// ListTreeMembers returns the tree's members ordered by generation, then by
// creation time.
func (r *FamilyRepository) ListTreeMembers(ctx context.Context, treeID string) ([]domain.FamilyMember, error) {
	docs, err := r.query(ctx, MembersCollection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("treeId", docstore.OpEq, treeID)},
		OrderBy: []docstore.Order{{Field: "generation"}, {Field: "createdAt"}},
	})
	if err != nil {
		return nil, translate("list tree members", treeID, err, false)
	}
	members := make([]domain.FamilyMember, 0, len(docs))
	for _, d := range docs {
		members = append(members, memberFromDoc(d))
	}
	return members, nil
}

// UpdateMember applies patch. A positive expectedVersion rejects the write
// with ErrVersionConflict if another writer got there first.
func (r *FamilyRepository) UpdateMember(ctx context.Context, id string, patch domain.MemberPatch, expectedVersion int64) error {
	const op = "update member"
	if err := domain.Validate(op, patch); err != nil {
		return err
	}
	if patch.Generation != nil && *patch.Generation != 0 {
		member, err := r.GetMember(ctx, id)
		if err != nil {
			return err
		}
		isRoot, err := r.isRootMember(ctx, member)
		if err != nil {
			return err
		}
		if isRoot {
			return domain.Malformed(op, "member %s is the root of tree %s and must stay at generation 0", id, member.TreeID)
		}
	}
	fields := memberPatchFields(patch)
	fields["version"] = docstore.Increment{By: 1}
	fields["updatedAt"] = docstore.ServerTimestamp{}

	var pre []docstore.Precondition
	if expectedVersion > 0 {
		pre = append(pre, docstore.Precondition{Field: "version", Equals: expectedVersion})
	}
	return translate(op, id, r.store.Update(ctx, MembersCollection, id, fields, pre...), true)
}

// DeleteMember removes the member, every relation touching it and any spouse
// shortcut pointing at it, and decrements the tree's member count, all in one
// batch. The root member cannot be deleted; delete the tree instead.
//
// Touching relations and spouses are looked up before the batch is committed,
// so a relation created against the member in between is not removed.
func (r *FamilyRepository) DeleteMember(ctx context.Context, id string) error {
	const op = "delete member"
	member, err := r.GetMember(ctx, id)
	if err != nil {
		return err
	}
	isRoot, err := r.isRootMember(ctx, member)
	if err != nil {
		return err
	}
	if isRoot {
		return domain.Malformed(op, "member %s is the root of tree %s; delete the tree instead", id, member.TreeID)
	}

	rels, err := r.memberRelationDocs(ctx, id)
	if err != nil {
		return translate(op, id, err, false)
	}
	spouses, err := r.query(ctx, MembersCollection, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("treeId", docstore.OpEq, member.TreeID),
			docstore.Where("spouseId", docstore.OpEq, id),
		},
	})
	if err != nil {
		return translate(op, id, err, false)
	}

	writes := make([]docstore.Write, 0, len(rels)+len(spouses)+2)
	for _, d := range rels {
		writes = append(writes, docstore.DeleteWrite(RelationsCollection, d.ID))
	}
	for _, d := range spouses {
		if d.ID == id {
			continue
		}
		writes = append(writes, docstore.UpdateWrite(MembersCollection, d.ID, docstore.Fields{
			"spouseId":  "",
			"updatedAt": docstore.ServerTimestamp{},
		}))
	}
	writes = append(writes,
		docstore.DeleteWrite(MembersCollection, id),
		docstore.UpdateWrite(TreesCollection, member.TreeID, docstore.Fields{
			"memberCount": docstore.Increment{By: -1},
			"updatedAt":   docstore.ServerTimestamp{},
		}),
	)

	return translate(op, id, r.store.Commit(ctx, writes), true)
}

func (r *FamilyRepository) isRootMember(ctx context.Context, member *domain.FamilyMember) (bool, error) {
	tree, err := r.GetTree(ctx, member.TreeID)
	if err != nil {
		return false, err
	}
	return tree.RootMemberID == member.ID, nil
}
