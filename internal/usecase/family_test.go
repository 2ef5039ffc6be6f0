package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/AndrivA89/family-graph/internal/docstore/badgerstore"
	"github.com/AndrivA89/family-graph/internal/domain"
	"github.com/AndrivA89/family-graph/internal/logging"
	"github.com/AndrivA89/family-graph/internal/metrics"
	"github.com/AndrivA89/family-graph/internal/repository"
)

type fixture struct {
	uc      *FamilyUseCase
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := repository.NewFamilyRepository(store, repository.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}))

	var logs bytes.Buffer
	m := metrics.New(prometheus.NewRegistry())
	uc := NewFamilyUseCase(repo,
		WithLogger(logging.New(logging.Config{Level: "debug", Writer: &logs})),
		WithMetrics(m),
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)
	return fixture{uc: uc, metrics: m, logs: &logs}
}

type raoFamily struct {
	treeID, venkat, lakshmi, arjun string
}

func seedRaoFamily(t *testing.T, uc *FamilyUseCase) raoFamily {
	t.Helper()
	ctx := context.Background()

	treeID, err := uc.CreateTree(ctx,
		domain.TreeDraft{Name: "Rao Family", OwnerID: "user-1"},
		domain.MemberDraft{FirstName: "Venkat", LastName: "Rao", Gender: domain.Male, IsAlive: true, Occupation: "Farmer"},
	)
	require.NoError(t, err)
	tree, err := uc.GetTree(ctx, treeID)
	require.NoError(t, err)

	lakshmi, err := uc.AddMember(ctx, domain.MemberDraft{
		TreeID: treeID, FirstName: "Lakshmi", LastName: "Rao", Gender: domain.Female, IsAlive: true,
	}, "", "")
	require.NoError(t, err)
	_, err = uc.CreateRelation(ctx, domain.RelationDraft{
		TreeID: treeID, FromMemberID: tree.RootMemberID, ToMemberID: lakshmi, Type: domain.Spouse,
	})
	require.NoError(t, err)

	arjun, err := uc.AddMember(ctx, domain.MemberDraft{
		TreeID: treeID, FirstName: "Arjun", LastName: "Rao", Gender: domain.Male, IsAlive: true, Generation: 1,
	}, tree.RootMemberID, domain.Son)
	require.NoError(t, err)

	return raoFamily{treeID: treeID, venkat: tree.RootMemberID, lakshmi: lakshmi, arjun: arjun}
}

func displayNames(members []domain.FamilyMember) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.DisplayName)
	}
	return out
}

func TestRaoFamilyScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	node, err := f.uc.BuildFamilyTree(ctx, rao.treeID, "")
	require.NoError(t, err, "BuildFamilyTree error should be nil")
	assert.Equal(t, "Venkat Rao", node.Member.DisplayName)
	require.NotNil(t, node.Spouse)
	assert.Equal(t, "Lakshmi Rao", node.Spouse.DisplayName)
	require.Len(t, node.Children, 1)
	assert.Equal(t, rao.arjun, node.Children[0].Member.ID)

	stats, err := f.uc.GetTreeStatistics(ctx, rao.treeID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMembers)
	assert.Equal(t, 2, stats.Generations)
	assert.Equal(t, 1, stats.Marriages)
	assert.Equal(t, 3, stats.LivingMembers)

	path, err := f.uc.FindConnection(ctx, rao.treeID, rao.lakshmi, rao.arjun)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lakshmi Rao", "Venkat Rao", "Arjun Rao"}, displayNames(path))

	tree, err := f.uc.GetTree(ctx, rao.treeID)
	require.NoError(t, err)
	assert.Equal(t, 3, tree.MemberCount)
	assert.Equal(t, 2, tree.GenerationCount, "generation count follows member writes")
}

func TestBuildFamilyTreeFromExplicitRoot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	node, err := f.uc.BuildFamilyTree(ctx, rao.treeID, rao.arjun)
	require.NoError(t, err)
	assert.Empty(t, node.Children)
	assert.Len(t, node.Relations, 1)

	_, err = f.uc.BuildFamilyTree(ctx, rao.treeID, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGraphOperationsOnMissingTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.BuildFamilyTree(ctx, "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.uc.GetTreeStatistics(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.uc.FindConnection(ctx, "missing", "a", "b")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("build_tree", "not_found"))+
		testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("tree_statistics", "not_found"))+
		testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("find_connection", "not_found")))
	assert.Contains(t, f.logs.String(), "build_tree failed")
}

func TestFindConnectionAcrossTreesIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)
	other := seedRaoFamily(t, f.uc)

	_, err := f.uc.FindConnection(ctx, rao.treeID, rao.venkat, other.arjun)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMemberRefreshesCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	require.NoError(t, f.uc.DeleteMember(ctx, rao.arjun))

	tree, err := f.uc.GetTree(ctx, rao.treeID)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.MemberCount)
	assert.Equal(t, 1, tree.GenerationCount)

	node, err := f.uc.BuildFamilyTree(ctx, rao.treeID, "")
	require.NoError(t, err)
	assert.Empty(t, node.Children)

	assert.ErrorIs(t, f.uc.DeleteMember(ctx, rao.arjun), domain.ErrNotFound)
}

func TestDeleteRootMemberKeepsTreeBuildable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	assert.ErrorIs(t, f.uc.DeleteMember(ctx, rao.venkat), domain.ErrMalformedInput)

	gen := 2
	assert.ErrorIs(t, f.uc.UpdateMember(ctx, rao.venkat, domain.MemberPatch{Generation: &gen}, 0), domain.ErrMalformedInput)

	node, err := f.uc.BuildFamilyTree(ctx, rao.treeID, "")
	require.NoError(t, err)
	assert.Equal(t, rao.venkat, node.Member.ID)
	assert.Equal(t, 0, node.Member.Generation)
}

func TestConcurrentAddMembersToOneTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	const adds = 20
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < adds; i++ {
		g.Go(func() error {
			_, err := f.uc.AddMember(gctx, domain.MemberDraft{
				TreeID: rao.treeID, FirstName: fmt.Sprintf("Grandchild%d", i), LastName: "Rao", Gender: domain.Female, IsAlive: true, Generation: 2,
			}, rao.arjun, domain.Daughter)
			return err
		})
	}
	require.NoError(t, g.Wait())

	tree, err := f.uc.GetTree(ctx, rao.treeID)
	require.NoError(t, err)
	assert.Equal(t, adds+3, tree.MemberCount)
	assert.Equal(t, 3, tree.GenerationCount)
}

func TestUpdateMemberGenerationRefreshesCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	gen := -3
	require.NoError(t, f.uc.UpdateMember(ctx, rao.lakshmi, domain.MemberPatch{Generation: &gen}, 0))

	tree, err := f.uc.GetTree(ctx, rao.treeID)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.GenerationCount)
}

func TestCreateRelationRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	_, err := f.uc.CreateRelation(ctx, domain.RelationDraft{
		TreeID: rao.treeID, FromMemberID: rao.venkat, ToMemberID: rao.venkat, Type: domain.Son,
	})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	_, err = f.uc.CreateRelation(ctx, domain.RelationDraft{
		TreeID: rao.treeID, FromMemberID: rao.venkat, ToMemberID: rao.arjun, Type: "GODFATHER",
	})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("create_relation", "malformed")))
}

func TestCycleSurfacesFromBuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	_, err := f.uc.CreateRelation(ctx, domain.RelationDraft{
		TreeID: rao.treeID, FromMemberID: rao.arjun, ToMemberID: rao.venkat, Type: domain.Son,
	})
	require.NoError(t, err)

	_, err = f.uc.BuildFamilyTree(ctx, rao.treeID, "")
	var cycleErr *domain.CycleError
	require.True(t, errors.As(err, &cycleErr), "expected a cycle error, got %v", err)
	assert.Equal(t, rao.venkat, cycleErr.MemberID)
}

func TestSearchMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	found, err := f.uc.SearchMembers(ctx, rao.treeID, "  lAKsh ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lakshmi Rao"}, displayNames(found))

	found, err = f.uc.SearchMembers(ctx, rao.treeID, "farmer")
	require.NoError(t, err)
	assert.Equal(t, []string{"Venkat Rao"}, displayNames(found))

	found, err = f.uc.SearchMembers(ctx, rao.treeID, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = f.uc.SearchMembers(ctx, rao.treeID, "nobody")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDescribeRelation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	types, err := f.uc.DescribeRelation(ctx, rao.arjun, rao.venkat)
	require.NoError(t, err)
	assert.Equal(t, []domain.RelationType{domain.Son}, types)

	types, err = f.uc.DescribeRelation(ctx, rao.lakshmi, rao.arjun)
	require.NoError(t, err)
	assert.Empty(t, types)

	_, err = f.uc.DescribeRelation(ctx, rao.lakshmi, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadTreeWithEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	_, err := f.uc.CreateEvent(ctx, domain.EventDraft{
		TreeID: rao.treeID, Title: "Arjun born", Type: domain.EventBirth,
		Date: time.Date(1995, 3, 1, 0, 0, 0, 0, time.UTC), MemberIDs: []string{rao.arjun},
	})
	require.NoError(t, err)

	snap, err := f.uc.LoadTree(ctx, rao.treeID, true)
	require.NoError(t, err)
	assert.Equal(t, "Rao Family", snap.Tree.Name)
	assert.Len(t, snap.Members, 3)
	assert.Len(t, snap.Relations, 2)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, []string{rao.arjun}, snap.Events[0].MemberIDs)
}

func TestStatisticsUseInjectedClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rao := seedRaoFamily(t, f.uc)

	born := time.Date(1995, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.uc.UpdateMember(ctx, rao.arjun, domain.MemberPatch{DateOfBirth: &born}, 1))

	stats, err := f.uc.GetTreeStatistics(ctx, rao.treeID)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.AverageAge)
}
