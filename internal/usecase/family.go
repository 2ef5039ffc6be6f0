package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AndrivA89/family-graph/internal/domain"
	"github.com/AndrivA89/family-graph/internal/familygraph"
	"github.com/AndrivA89/family-graph/internal/logging"
	"github.com/AndrivA89/family-graph/internal/metrics"
)

type FamilyUseCase struct {
	repo    FamilyRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*FamilyUseCase)

func WithLogger(logger *slog.Logger) Option {
	return func(uc *FamilyUseCase) { uc.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *FamilyUseCase) { uc.metrics = m }
}

// WithClock sets the clock used for age calculations.
func WithClock(now func() time.Time) Option {
	return func(uc *FamilyUseCase) { uc.now = now }
}

func NewFamilyUseCase(repo FamilyRepository, opts ...Option) *FamilyUseCase {
	uc := &FamilyUseCase{
		repo:   repo,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// TreeSnapshot is everything stored for one tree, fetched concurrently.
type TreeSnapshot struct {
	Tree      domain.FamilyTree       `json:"tree"`
	Members   []domain.FamilyMember   `json:"members"`
	Relations []domain.FamilyRelation `json:"relations"`
	Events    []domain.FamilyEvent    `json:"events,omitempty"`
}

// finish records metrics and logs the outcome of op. Writes log at info,
// reads at debug and failures at error.
func (uc *FamilyUseCase) finish(ctx context.Context, op string, start time.Time, write bool, err error, attrs ...any) {
	uc.metrics.Observe(op, start, err)
	attrs = append(attrs, "duration", time.Since(start))
	switch {
	case err != nil:
		uc.logger.ErrorContext(ctx, op+" failed", append(attrs, "error", err)...)
	case write:
		uc.logger.InfoContext(ctx, op, attrs...)
	default:
		uc.logger.DebugContext(ctx, op, attrs...)
	}
}

func (uc *FamilyUseCase) CreateTree(ctx context.Context, draft domain.TreeDraft, root domain.MemberDraft) (treeID string, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "create_tree", start, true, err, "tree_id", treeID, "owner_id", draft.OwnerID)
	}(time.Now())
	return uc.repo.CreateTree(ctx, draft, root)
}

func (uc *FamilyUseCase) GetTree(ctx context.Context, id string) (tree *domain.FamilyTree, err error) {
	defer func(start time.Time) { uc.finish(ctx, "get_tree", start, false, err, "tree_id", id) }(time.Now())
	return uc.repo.GetTree(ctx, id)
}

func (uc *FamilyUseCase) ListUserTrees(ctx context.Context, userID string) (trees []domain.FamilyTree, err error) {
	defer func(start time.Time) { uc.finish(ctx, "list_user_trees", start, false, err, "user_id", userID) }(time.Now())
	return uc.repo.ListUserTrees(ctx, userID)
}

func (uc *FamilyUseCase) ListPublicTrees(ctx context.Context, limit int) (trees []domain.FamilyTree, err error) {
	defer func(start time.Time) { uc.finish(ctx, "list_public_trees", start, false, err) }(time.Now())
	return uc.repo.ListPublicTrees(ctx, limit)
}

func (uc *FamilyUseCase) UpdateTree(ctx context.Context, id string, patch domain.TreePatch, expectedVersion int64) (err error) {
	defer func(start time.Time) { uc.finish(ctx, "update_tree", start, true, err, "tree_id", id) }(time.Now())
	return uc.repo.UpdateTree(ctx, id, patch, expectedVersion)
}

func (uc *FamilyUseCase) DeleteTree(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { uc.finish(ctx, "delete_tree", start, true, err, "tree_id", id) }(time.Now())
	return uc.repo.DeleteTree(ctx, id)
}

func (uc *FamilyUseCase) AddCollaborator(ctx context.Context, treeID, userID string) (err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "add_collaborator", start, true, err, "tree_id", treeID, "user_id", userID)
	}(time.Now())
	return uc.repo.AddCollaborator(ctx, treeID, userID)
}

func (uc *FamilyUseCase) RemoveCollaborator(ctx context.Context, treeID, userID string) (err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "remove_collaborator", start, true, err, "tree_id", treeID, "user_id", userID)
	}(time.Now())
	return uc.repo.RemoveCollaborator(ctx, treeID, userID)
}

func (uc *FamilyUseCase) AddViewer(ctx context.Context, treeID, userID string) (err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "add_viewer", start, true, err, "tree_id", treeID, "user_id", userID)
	}(time.Now())
	return uc.repo.AddViewer(ctx, treeID, userID)
}

func (uc *FamilyUseCase) RemoveViewer(ctx context.Context, treeID, userID string) (err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "remove_viewer", start, true, err, "tree_id", treeID, "user_id", userID)
	}(time.Now())
	return uc.repo.RemoveViewer(ctx, treeID, userID)
}

// AddMember writes the member, plus the parent edge when parentID is set,
// then refreshes the tree's generation count.
func (uc *FamilyUseCase) AddMember(ctx context.Context, draft domain.MemberDraft, parentID string, relType domain.RelationType) (id string, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "add_member", start, true, err, "tree_id", draft.TreeID, "member_id", id, "parent_id", parentID)
	}(time.Now())
	id, err = uc.repo.AddMember(ctx, draft, parentID, relType)
	if err != nil {
		return "", err
	}
	uc.refreshGenerations(ctx, draft.TreeID)
	return id, nil
}

func (uc *FamilyUseCase) GetMember(ctx context.Context, id string) (m *domain.FamilyMember, err error) {
	defer func(start time.Time) { uc.finish(ctx, "get_member", start, false, err, "member_id", id) }(time.Now())
	return uc.repo.GetMember(ctx, id)
}

func (uc *FamilyUseCase) ListTreeMembers(ctx context.Context, treeID string) (members []domain.FamilyMember, err error) {
	defer func(start time.Time) { uc.finish(ctx, "list_tree_members", start, false, err, "tree_id", treeID) }(time.Now())
	return uc.repo.ListTreeMembers(ctx, treeID)
}

// UpdateMember applies patch and refreshes the generation count when the
// member's generation changed.
func (uc *FamilyUseCase) UpdateMember(ctx context.Context, id string, patch domain.MemberPatch, expectedVersion int64) (err error) {
	defer func(start time.Time) { uc.finish(ctx, "update_member", start, true, err, "member_id", id) }(time.Now())
	if err = uc.repo.UpdateMember(ctx, id, patch, expectedVersion); err != nil {
		return err
	}
	if patch.Generation != nil {
		if m, getErr := uc.repo.GetMember(ctx, id); getErr == nil {
			uc.refreshGenerations(ctx, m.TreeID)
		}
	}
	return nil
}

func (uc *FamilyUseCase) DeleteMember(ctx context.Context, id string) (err error) {
	var treeID string
	defer func(start time.Time) {
		uc.finish(ctx, "delete_member", start, true, err, "tree_id", treeID, "member_id", id)
	}(time.Now())
	m, err := uc.repo.GetMember(ctx, id)
	if err != nil {
		return err
	}
	treeID = m.TreeID
	if err = uc.repo.DeleteMember(ctx, id); err != nil {
		return err
	}
	uc.refreshGenerations(ctx, treeID)
	return nil
}

func (uc *FamilyUseCase) CreateRelation(ctx context.Context, draft domain.RelationDraft) (id string, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "create_relation", start, true, err,
			"tree_id", draft.TreeID, "relation_id", id, "relation_type", draft.Type,
			"from_member_id", draft.FromMemberID, "to_member_id", draft.ToMemberID)
	}(time.Now())
	id, err = uc.repo.CreateRelation(ctx, draft)
	if err != nil {
		return "", err
	}
	uc.refreshGenerations(ctx, draft.TreeID)
	return id, nil
}

func (uc *FamilyUseCase) GetRelation(ctx context.Context, id string) (rel *domain.FamilyRelation, err error) {
	defer func(start time.Time) { uc.finish(ctx, "get_relation", start, false, err, "relation_id", id) }(time.Now())
	return uc.repo.GetRelation(ctx, id)
}

func (uc *FamilyUseCase) ListTreeRelations(ctx context.Context, treeID string) (rels []domain.FamilyRelation, err error) {
	defer func(start time.Time) { uc.finish(ctx, "list_tree_relations", start, false, err, "tree_id", treeID) }(time.Now())
	return uc.repo.ListTreeRelations(ctx, treeID)
}

func (uc *FamilyUseCase) ListMemberRelations(ctx context.Context, memberID string) (rels []domain.FamilyRelation, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "list_member_relations", start, false, err, "member_id", memberID)
	}(time.Now())
	return uc.repo.ListMemberRelations(ctx, memberID)
}

func (uc *FamilyUseCase) DeleteRelation(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { uc.finish(ctx, "delete_relation", start, true, err, "relation_id", id) }(time.Now())
	return uc.repo.DeleteRelation(ctx, id)
}

func (uc *FamilyUseCase) CreateEvent(ctx context.Context, draft domain.EventDraft) (id string, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "create_event", start, true, err, "tree_id", draft.TreeID, "event_id", id)
	}(time.Now())
	return uc.repo.CreateEvent(ctx, draft)
}

func (uc *FamilyUseCase) GetEvent(ctx context.Context, id string) (e *domain.FamilyEvent, err error) {
	defer func(start time.Time) { uc.finish(ctx, "get_event", start, false, err, "event_id", id) }(time.Now())
	return uc.repo.GetEvent(ctx, id)
}

func (uc *FamilyUseCase) ListTreeEvents(ctx context.Context, treeID string) (events []domain.FamilyEvent, err error) {
	defer func(start time.Time) { uc.finish(ctx, "list_tree_events", start, false, err, "tree_id", treeID) }(time.Now())
	return uc.repo.ListTreeEvents(ctx, treeID)
}

func (uc *FamilyUseCase) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (err error) {
	defer func(start time.Time) { uc.finish(ctx, "update_event", start, true, err, "event_id", id) }(time.Now())
	return uc.repo.UpdateEvent(ctx, id, patch)
}

func (uc *FamilyUseCase) DeleteEvent(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { uc.finish(ctx, "delete_event", start, true, err, "event_id", id) }(time.Now())
	return uc.repo.DeleteEvent(ctx, id)
}

// LoadTree fetches the tree record, its members, relations and, when
// withEvents is set, its events concurrently.
func (uc *FamilyUseCase) LoadTree(ctx context.Context, treeID string, withEvents bool) (*TreeSnapshot, error) {
	var (
		snap TreeSnapshot
		tree *domain.FamilyTree
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tree, err = uc.repo.GetTree(gctx, treeID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Members, err = uc.repo.ListTreeMembers(gctx, treeID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Relations, err = uc.repo.ListTreeRelations(gctx, treeID)
		return err
	})
	if withEvents {
		g.Go(func() error {
			var err error
			snap.Events, err = uc.repo.ListTreeEvents(gctx, treeID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.Tree = *tree
	return &snap, nil
}

// BuildFamilyTree assembles the hierarchy of treeID rooted at rootID, or at
// the tree's recorded root when rootID is empty.
func (uc *FamilyUseCase) BuildFamilyTree(ctx context.Context, treeID, rootID string) (node *domain.FamilyTreeNode, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "build_tree", start, false, err, "tree_id", treeID, "root_id", rootID)
	}(time.Now())
	snap, err := uc.LoadTree(ctx, treeID, false)
	if err != nil {
		return nil, err
	}
	if rootID == "" {
		rootID = snap.Tree.RootMemberID
	}
	uc.metrics.ObserveTreeSize("build_tree", len(snap.Members))
	return familygraph.BuildTree(rootID, snap.Members, snap.Relations)
}

// FindConnection returns the shortest member path between two members of
// treeID. An empty path means they are not connected.
func (uc *FamilyUseCase) FindConnection(ctx context.Context, treeID, fromID, toID string) (path []domain.FamilyMember, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "find_connection", start, false, err,
			"tree_id", treeID, "from_member_id", fromID, "to_member_id", toID, "path_length", len(path))
	}(time.Now())
	snap, err := uc.LoadTree(ctx, treeID, false)
	if err != nil {
		return nil, err
	}
	uc.metrics.ObserveTreeSize("find_connection", len(snap.Members))
	path, err = familygraph.FindConnection(fromID, toID, snap.Members, snap.Relations)
	if err != nil {
		return nil, err
	}
	uc.metrics.ObservePathLength(len(path))
	return path, nil
}

func (uc *FamilyUseCase) GetTreeStatistics(ctx context.Context, treeID string) (stats domain.TreeStatistics, err error) {
	defer func(start time.Time) { uc.finish(ctx, "tree_statistics", start, false, err, "tree_id", treeID) }(time.Now())
	snap, err := uc.LoadTree(ctx, treeID, false)
	if err != nil {
		return domain.TreeStatistics{}, err
	}
	uc.metrics.ObserveTreeSize("tree_statistics", len(snap.Members))
	return familygraph.Statistics(snap.Members, snap.Relations, uc.now()), nil
}

// SearchMembers returns the tree's members whose first, last or display
// name or occupation contains query, ignoring case. An empty query matches
// everyone.
func (uc *FamilyUseCase) SearchMembers(ctx context.Context, treeID, query string) (found []domain.FamilyMember, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "search_members", start, false, err, "tree_id", treeID, "query", query)
	}(time.Now())
	members, err := uc.repo.ListTreeMembers(ctx, treeID)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	found = make([]domain.FamilyMember, 0, len(members))
	for _, m := range members {
		if q == "" || matchesMember(m, q) {
			found = append(found, m)
		}
	}
	return found, nil
}

func matchesMember(m domain.FamilyMember, q string) bool {
	for _, s := range []string{m.FirstName, m.LastName, m.DisplayName, m.Occupation} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// DescribeRelation lists the relation types linking two members in either
// direction, in creation order.
func (uc *FamilyUseCase) DescribeRelation(ctx context.Context, fromID, toID string) (types []domain.RelationType, err error) {
	defer func(start time.Time) {
		uc.finish(ctx, "describe_relation", start, false, err, "from_member_id", fromID, "to_member_id", toID)
	}(time.Now())
	if _, err = uc.repo.GetMember(ctx, toID); err != nil {
		return nil, err
	}
	if _, err = uc.repo.GetMember(ctx, fromID); err != nil {
		return nil, err
	}
	rels, err := uc.repo.ListMemberRelations(ctx, fromID)
	if err != nil {
		return nil, err
	}
	types = []domain.RelationType{}
	for _, rel := range rels {
		if rel.Other(fromID) == toID {
			types = append(types, rel.Type)
		}
	}
	return types, nil
}

// refreshGenerations recomputes the stored generation count. The triggering
// write has already committed, so failures are logged rather than returned.
func (uc *FamilyUseCase) refreshGenerations(ctx context.Context, treeID string) {
	members, err := uc.repo.ListTreeMembers(ctx, treeID)
	if err == nil {
		err = uc.repo.SetGenerationCount(ctx, treeID, familygraph.GenerationSpan(members))
	}
	if err != nil {
		uc.logger.WarnContext(ctx, "refresh generation count failed", "tree_id", treeID, "error", err)
	}
}
