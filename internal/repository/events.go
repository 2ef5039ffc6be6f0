package repository

import (
	"context"

	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/domain"
)

func (r *FamilyRepository) CreateEvent(ctx context.Context, draft domain.EventDraft) (string, error) {
	const op = "create event"
	if err := domain.Validate(op, draft); err != nil {
		return "", err
	}
	if _, err := r.store.Get(ctx, TreesCollection, draft.TreeID); err != nil {
		return "", translate(op, draft.TreeID, err, false)
	}

	event := domain.FamilyEvent{
		ID:          r.newID(),
		TreeID:      draft.TreeID,
		Title:       draft.Title,
		Description: draft.Description,
		Type:        draft.Type,
		Date:        draft.Date.UTC(),
		Location:    draft.Location,
		MemberIDs:   draft.MemberIDs,
		Photos:      draft.Photos,
		CreatedBy:   draft.CreatedBy,
		CreatedAt:   r.now().UTC(),
	}
	if _, err := r.store.Create(ctx, EventsCollection, event.ID, eventFields(event)); err != nil {
		return "", translate(op, event.ID, err, true)
	}
	return event.ID, nil
}

func (r *FamilyRepository) GetEvent(ctx context.Context, id string) (*domain.FamilyEvent, error) {
	doc, err := r.store.Get(ctx, EventsCollection, id)
	if err != nil {
		return nil, translate("get event", id, err, false)
	}
	e := eventFromDoc(doc)
	return &e, nil
}

// ListTreeEvents returns the tree's events by date, oldest first.
func (r *FamilyRepository) ListTreeEvents(ctx context.Context, treeID string) ([]domain.FamilyEvent, error) {
	docs, err := r.query(ctx, EventsCollection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("treeId", docstore.OpEq, treeID)},
		OrderBy: []docstore.Order{{Field: "date"}},
	})
	if err != nil {
		return nil, translate("list tree events", treeID, err, false)
	}
	events := make([]domain.FamilyEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, eventFromDoc(d))
	}
	return events, nil
}

func (r *FamilyRepository) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) error {
	const op = "update event"
	if err := domain.Validate(op, patch); err != nil {
		return err
	}
	fields := eventPatchFields(patch)
	if len(fields) == 0 {
		return nil
	}
	return translate(op, id, r.store.Update(ctx, EventsCollection, id, fields), true)
}

func (r *FamilyRepository) DeleteEvent(ctx context.Context, id string) error {
	const op = "delete event"
	if _, err := r.store.Get(ctx, EventsCollection, id); err != nil {
		return translate(op, id, err, false)
	}
	return translate(op, id, r.store.Delete(ctx, EventsCollection, id), true)
}
