package usecase

import (
	"context"

	"github.com/AndrivA89/family-graph/internal/domain"
)

type FamilyRepository interface {
	CreateTree(ctx context.Context, draft domain.TreeDraft, root domain.MemberDraft) (string, error)
	GetTree(ctx context.Context, id string) (*domain.FamilyTree, error)
	ListUserTrees(ctx context.Context, userID string) ([]domain.FamilyTree, error)
	ListPublicTrees(ctx context.Context, limit int) ([]domain.FamilyTree, error)
	UpdateTree(ctx context.Context, id string, patch domain.TreePatch, expectedVersion int64) error
	SetGenerationCount(ctx context.Context, id string, generations int) error
	DeleteTree(ctx context.Context, id string) error

	AddCollaborator(ctx context.Context, treeID, userID string) error
	RemoveCollaborator(ctx context.Context, treeID, userID string) error
	AddViewer(ctx context.Context, treeID, userID string) error
	RemoveViewer(ctx context.Context, treeID, userID string) error

	AddMember(ctx context.Context, draft domain.MemberDraft, parentID string, relType domain.RelationType) (string, error)
	GetMember(ctx context.Context, id string) (*domain.FamilyMember, error)
	ListTreeMembers(ctx context.Context, treeID string) ([]domain.FamilyMember, error)
	UpdateMember(ctx context.Context, id string, patch domain.MemberPatch, expectedVersion int64) error
	DeleteMember(ctx context.Context, id string) error

	CreateRelation(ctx context.Context, draft domain.RelationDraft) (string, error)
	GetRelation(ctx context.Context, id string) (*domain.FamilyRelation, error)
	ListTreeRelations(ctx context.Context, treeID string) ([]domain.FamilyRelation, error)
	ListMemberRelations(ctx context.Context, memberID string) ([]domain.FamilyRelation, error)
	DeleteRelation(ctx context.Context, id string) error

	CreateEvent(ctx context.Context, draft domain.EventDraft) (string, error)
	GetEvent(ctx context.Context, id string) (*domain.FamilyEvent, error)
	ListTreeEvents(ctx context.Context, treeID string) ([]domain.FamilyEvent, error)
	UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
}
