package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrivA89/family-graph/internal/docstore/badgerstore"
	"github.com/AndrivA89/family-graph/internal/domain"
	"github.com/AndrivA89/family-graph/internal/metrics"
	"github.com/AndrivA89/family-graph/internal/repository"
	"github.com/AndrivA89/family-graph/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	uc := usecase.NewFamilyUseCase(repository.NewFamilyRepository(store), usecase.WithMetrics(metrics.New(reg)))
	return NewRouter(NewHandlers(uc), reg, nil)
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	do(t, router, http.MethodGet, "/v1/trees/missing/statistics", nil)
	w = do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `familygraph_operations_total{operation="tree_statistics",outcome="not_found"} 1`)
}

func TestFamilyFlowOverHTTP(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/trees", CreateTreeRequest{
		Tree: domain.TreeDraft{Name: "Rao Family", OwnerID: "user-1"},
		Root: domain.MemberDraft{FirstName: "Venkat", LastName: "Rao", Gender: domain.Male, IsAlive: true},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	treeID := decode[IDResponse](t, w).ID

	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tree := decode[domain.FamilyTree](t, w)

	w = do(t, router, http.MethodPost, "/v1/trees/"+treeID+"/members", AddMemberRequest{
		MemberDraft:  domain.MemberDraft{FirstName: "Arjun", LastName: "Rao", Gender: domain.Male, IsAlive: true, Generation: 1},
		ParentID:     tree.RootMemberID,
		RelationType: domain.Son,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	arjun := decode[IDResponse](t, w).ID

	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID+"/hierarchy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	node := decode[domain.FamilyTreeNode](t, w)
	require.Len(t, node.Children, 1)
	assert.Equal(t, arjun, node.Children[0].Member.ID)

	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID+"/connection?from="+arjun+"&to="+tree.RootMemberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	conn := decode[struct {
		Path      []domain.FamilyMember `json:"path"`
		Connected bool                  `json:"connected"`
	}](t, w)
	assert.True(t, conn.Connected)
	assert.Len(t, conn.Path, 2)

	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID+"/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[domain.TreeStatistics](t, w)
	assert.Equal(t, 2, stats.TotalMembers)
	assert.Equal(t, 2, stats.Generations)

	w = do(t, router, http.MethodGet, "/v1/members/"+arjun+"/relations/"+tree.RootMemberID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.RelationType{domain.Son}, decode[RelationTypesResponse](t, w).Types)

	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID+"/members?q=arj", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.FamilyMember](t, w), 1)

	w = do(t, router, http.MethodDelete, "/v1/members/"+arjun, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID+"/relations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.FamilyRelation](t, w))

	w = do(t, router, http.MethodDelete, "/v1/trees/"+treeID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/trees", CreateTreeRequest{
		Tree: domain.TreeDraft{Name: "Rao Family", OwnerID: "user-1"},
		Root: domain.MemberDraft{FirstName: "Venkat", Gender: domain.Male},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	treeID := decode[IDResponse](t, w).ID
	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rootID := decode[domain.FamilyTree](t, w).RootMemberID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing member", http.MethodGet, "/v1/members/ghost", nil, http.StatusNotFound, "NOT_FOUND"},
		{"invalid draft", http.MethodPost, "/v1/trees/" + treeID + "/members",
			AddMemberRequest{MemberDraft: domain.MemberDraft{FirstName: "", Gender: domain.Male}}, http.StatusBadRequest, "MALFORMED_INPUT"},
		{"stale version", http.MethodPatch, "/v1/trees/" + treeID,
			map[string]any{"name": "Renamed", "expected_version": 7}, http.StatusConflict, "VERSION_CONFLICT"},
		{"connection without params", http.MethodGet, "/v1/trees/" + treeID + "/connection", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad limit", http.MethodGet, "/v1/trees?limit=-1", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"delete root member", http.MethodDelete, "/v1/members/" + rootID, nil, http.StatusBadRequest, "MALFORMED_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHierarchyCycleIsUnprocessable(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/trees", CreateTreeRequest{
		Tree: domain.TreeDraft{Name: "Loop", OwnerID: "user-1"},
		Root: domain.MemberDraft{FirstName: "A", Gender: domain.Male},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	treeID := decode[IDResponse](t, w).ID
	tree := decode[domain.FamilyTree](t, do(t, router, http.MethodGet, "/v1/trees/"+treeID, nil))

	w = do(t, router, http.MethodPost, "/v1/trees/"+treeID+"/members", AddMemberRequest{
		MemberDraft:  domain.MemberDraft{FirstName: "B", Gender: domain.Male, Generation: 1},
		ParentID:     tree.RootMemberID,
		RelationType: domain.Son,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	b := decode[IDResponse](t, w).ID

	w = do(t, router, http.MethodPost, "/v1/trees/"+treeID+"/relations", domain.RelationDraft{
		FromMemberID: b, ToMemberID: tree.RootMemberID, Type: domain.Son,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/v1/trees/"+treeID+"/hierarchy", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "RELATION_CYCLE", decode[ErrorResponse](t, w).Code)
}

func TestAccessListRoutes(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/trees", CreateTreeRequest{
		Tree: domain.TreeDraft{Name: "Rao Family", OwnerID: "user-1"},
		Root: domain.MemberDraft{FirstName: "Venkat", Gender: domain.Male},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	treeID := decode[IDResponse](t, w).ID

	w = do(t, router, http.MethodPut, "/v1/trees/"+treeID+"/viewers/user-2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/v1/users/user-2/trees", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.FamilyTree](t, w), 1)

	w = do(t, router, http.MethodDelete, "/v1/trees/"+treeID+"/viewers/user-2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/v1/users/user-2/trees", nil)
	assert.Empty(t, decode[[]domain.FamilyTree](t, w))

	w = do(t, router, http.MethodPut, "/v1/trees/missing/collaborators/user-3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
