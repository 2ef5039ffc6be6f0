package repository

import (
	"context"

	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/domain"
)

// CreateRelation writes a manual edge after checking that both endpoints
// exist and belong to the relation's tree.
func (r *FamilyRepository) CreateRelation(ctx context.Context, draft domain.RelationDraft) (string, error) {
	const op = "create relation"
	if err := domain.Validate(op, draft); err != nil {
		return "", err
	}
	for _, memberID := range []string{draft.FromMemberID, draft.ToMemberID} {
		m, err := r.GetMember(ctx, memberID)
		if err != nil {
			return "", err
		}
		if m.TreeID != draft.TreeID {
			return "", domain.Malformed(op, "member %s belongs to tree %s, not %s", memberID, m.TreeID, draft.TreeID)
		}
	}

	rel := domain.FamilyRelation{
		ID:           r.newID(),
		TreeID:       draft.TreeID,
		FromMemberID: draft.FromMemberID,
		ToMemberID:   draft.ToMemberID,
		Type:         draft.Type,
		CreatedBy:    draft.CreatedBy,
		CreatedAt:    r.now().UTC(),
	}
	if _, err := r.store.Create(ctx, RelationsCollection, rel.ID, relationFields(rel)); err != nil {
		return "", translate(op, rel.ID, err, true)
	}
	return rel.ID, nil
}

func (r *FamilyRepository) GetRelation(ctx context.Context, id string) (*domain.FamilyRelation, error) {
	doc, err := r.store.Get(ctx, RelationsCollection, id)
	if err != nil {
		return nil, translate("get relation", id, err, false)
	}
	rel := relationFromDoc(doc)
	return &rel, nil
}

// ListTreeRelations returns the tree's relations in creation order.
func (r *FamilyRepository) ListTreeRelations(ctx context.Context, treeID string) ([]domain.FamilyRelation, error) {
	docs, err := r.query(ctx, RelationsCollection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("treeId", docstore.OpEq, treeID)},
		OrderBy: []docstore.Order{{Field: "createdAt"}},
	})
	if err != nil {
		return nil, translate("list tree relations", treeID, err, false)
	}
	return relationsFromDocs(docs), nil
}

// ListMemberRelations returns every relation where the member is either
// endpoint, in creation order.
func (r *FamilyRepository) ListMemberRelations(ctx context.Context, memberID string) ([]domain.FamilyRelation, error) {
	docs, err := r.memberRelationDocs(ctx, memberID)
	if err != nil {
		return nil, translate("list member relations", memberID, err, false)
	}
	rels := relationsFromDocs(docs)
	sortRelations(rels)
	return rels, nil
}

func (r *FamilyRepository) DeleteRelation(ctx context.Context, id string) error {
	const op = "delete relation"
	if _, err := r.store.Get(ctx, RelationsCollection, id); err != nil {
		return translate(op, id, err, false)
	}
	return translate(op, id, r.store.Delete(ctx, RelationsCollection, id), true)
}

func (r *FamilyRepository) memberRelationDocs(ctx context.Context, memberID string) ([]docstore.Document, error) {
	from, err := r.query(ctx, RelationsCollection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("fromMemberId", docstore.OpEq, memberID)},
	})
	if err != nil {
		return nil, err
	}
	to, err := r.query(ctx, RelationsCollection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("toMemberId", docstore.OpEq, memberID)},
	})
	if err != nil {
		return nil, err
	}
	return mergeDocs(from, to), nil
}

func relationsFromDocs(docs []docstore.Document) []domain.FamilyRelation {
	rels := make([]domain.FamilyRelation, 0, len(docs))
	for _, d := range docs {
		rels = append(rels, relationFromDoc(d))
	}
	return rels
}
