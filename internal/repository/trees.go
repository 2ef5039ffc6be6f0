package repository

import (
	"context"
	"sort"

	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/domain"
)

// CreateTree writes the tree and its root member in one batch and returns
// the new tree id. The root member is forced to generation 0.
func (r *FamilyRepository) CreateTree(ctx context.Context, draft domain.TreeDraft, root domain.MemberDraft) (string, error) {
	const op = "create tree"
	if err := domain.Validate(op, draft); err != nil {
		return "", err
	}

	treeID := r.newID()
	rootID := r.newID()
	root.TreeID = treeID
	root.Generation = 0
	if root.CreatedBy == "" {
		root.CreatedBy = draft.OwnerID
	}
	if err := domain.Validate(op, root); err != nil {
		return "", err
	}

	now := r.now().UTC()
	tree := domain.FamilyTree{
		ID:              treeID,
		Name:            draft.Name,
		Description:     draft.Description,
		RootMemberID:    rootID,
		OwnerID:         draft.OwnerID,
		CommunityID:     draft.CommunityID,
		IsPublic:        draft.IsPublic,
		MemberCount:     1,
		GenerationCount: 1,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	member := memberFromDraft(rootID, root, now)

	err := r.store.Commit(ctx, []docstore.Write{
		docstore.CreateWrite(TreesCollection, treeID, treeFields(tree)),
		docstore.CreateWrite(MembersCollection, rootID, memberFields(member)),
	})
	if err != nil {
		return "", translate(op, treeID, err, true)
	}
	return treeID, nil
}

func (r *FamilyRepository) GetTree(ctx context.Context, id string) (*domain.FamilyTree, error) {
	doc, err := r.store.Get(ctx, TreesCollection, id)
	if err != nil {
		return nil, translate("get tree", id, err, false)
	}
	tree := treeFromDoc(doc)
	return &tree, nil
}

// ListUserTrees returns trees the user owns, edits or views, most recently
// updated first.
func (r *FamilyRepository) ListUserTrees(ctx context.Context, userID string) ([]domain.FamilyTree, error) {
	const op = "list user trees"
	var sets [][]docstore.Document
	for _, f := range []docstore.Filter{
		docstore.Where("ownerId", docstore.OpEq, userID),
		docstore.Where("collaborators", docstore.OpArrayContains, userID),
		docstore.Where("viewers", docstore.OpArrayContains, userID),
	} {
		docs, err := r.query(ctx, TreesCollection, docstore.Query{Filters: []docstore.Filter{f}})
		if err != nil {
			return nil, translate(op, userID, err, false)
		}
		sets = append(sets, docs)
	}

	docs := mergeDocs(sets...)
	trees := make([]domain.FamilyTree, 0, len(docs))
	for _, d := range docs {
		trees = append(trees, treeFromDoc(d))
	}
	sort.SliceStable(trees, func(i, j int) bool {
		return trees[i].UpdatedAt.After(trees[j].UpdatedAt)
	})
	return trees, nil
}

func (r *FamilyRepository) ListPublicTrees(ctx context.Context, limit int) ([]domain.FamilyTree, error) {
	docs, err := r.query(ctx, TreesCollection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("isPublic", docstore.OpEq, true)},
		OrderBy: []docstore.Order{{Field: "updatedAt", Desc: true}},
		Limit:   limit,
	})
	if err != nil {
		return nil, translate("list public trees", "", err, false)
	}
	trees := make([]domain.FamilyTree, 0, len(docs))
	for _, d := range docs {
		trees = append(trees, treeFromDoc(d))
	}
	return trees, nil
}

// UpdateTree applies patch. A positive expectedVersion turns the write into a
// compare-and-swap on the tree's version.
func (r *FamilyRepository) UpdateTree(ctx context.Context, id string, patch domain.TreePatch, expectedVersion int64) error {
	const op = "update tree"
	if err := domain.Validate(op, patch); err != nil {
		return err
	}
	fields := treePatchFields(patch)
	fields["version"] = docstore.Increment{By: 1}
	fields["updatedAt"] = docstore.ServerTimestamp{}

	var pre []docstore.Precondition
	if expectedVersion > 0 {
		pre = append(pre, docstore.Precondition{Field: "version", Equals: expectedVersion})
	}
	return translate(op, id, r.store.Update(ctx, TreesCollection, id, fields, pre...), true)
}

// SetGenerationCount stores a recomputed generation span. Derived counters do
// not bump the tree version.
func (r *FamilyRepository) SetGenerationCount(ctx context.Context, id string, generations int) error {
	err := r.store.Update(ctx, TreesCollection, id, docstore.Fields{
		"generationCount": int64(generations),
		"updatedAt":       docstore.ServerTimestamp{},
	})
	return translate("set generation count", id, err, true)
}

func (r *FamilyRepository) AddCollaborator(ctx context.Context, treeID, userID string) error {
	return r.updateAccess(ctx, "add collaborator", treeID, "collaborators", docstore.ArrayUnion{Values: []string{userID}})
}

func (r *FamilyRepository) RemoveCollaborator(ctx context.Context, treeID, userID string) error {
	return r.updateAccess(ctx, "remove collaborator", treeID, "collaborators", docstore.ArrayRemove{Values: []string{userID}})
}

func (r *FamilyRepository) AddViewer(ctx context.Context, treeID, userID string) error {
	return r.updateAccess(ctx, "add viewer", treeID, "viewers", docstore.ArrayUnion{Values: []string{userID}})
}

func (r *FamilyRepository) RemoveViewer(ctx context.Context, treeID, userID string) error {
	return r.updateAccess(ctx, "remove viewer", treeID, "viewers", docstore.ArrayRemove{Values: []string{userID}})
}

func (r *FamilyRepository) updateAccess(ctx context.Context, op, treeID, field string, transform any) error {
	err := r.store.Update(ctx, TreesCollection, treeID, docstore.Fields{
		field:       transform,
		"updatedAt": docstore.ServerTimestamp{},
	})
	return translate(op, treeID, err, true)
}

// DeleteTree removes the tree with every member, relation and event scoped
// to it. Small trees go in one atomic batch. Larger ones are chunked with the
// tree record in the final chunk, so an interrupted run leaves a tree that
// can be deleted again.
func (r *FamilyRepository) DeleteTree(ctx context.Context, id string) error {
	const op = "delete tree"
	if _, err := r.store.Get(ctx, TreesCollection, id); err != nil {
		return translate(op, id, err, false)
	}

	var writes []docstore.Write
	for _, coll := range []string{RelationsCollection, EventsCollection, MembersCollection} {
		docs, err := r.query(ctx, coll, docstore.Query{
			Filters: []docstore.Filter{docstore.Where("treeId", docstore.OpEq, id)},
		})
		if err != nil {
			return translate(op, id, err, false)
		}
		for _, d := range docs {
			writes = append(writes, docstore.DeleteWrite(coll, d.ID))
		}
	}
	writes = append(writes, docstore.DeleteWrite(TreesCollection, id))

	return translate(op, id, r.commitChunked(ctx, writes), true)
}
