// Package httpapi exposes the family use case over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AndrivA89/family-graph/internal/domain"
	"github.com/AndrivA89/family-graph/internal/usecase"
)

type Handlers struct {
	uc *usecase.FamilyUseCase
}

func NewHandlers(uc *usecase.FamilyUseCase) *Handlers {
	return &Handlers{uc: uc}
}

type CreateTreeRequest struct {
	Tree domain.TreeDraft   `json:"tree"`
	Root domain.MemberDraft `json:"root"`
}

type AddMemberRequest struct {
	domain.MemberDraft
	ParentID     string              `json:"parent_id,omitempty"`
	RelationType domain.RelationType `json:"relation_type,omitempty"`
}

type UpdateTreeRequest struct {
	domain.TreePatch
	ExpectedVersion int64 `json:"expected_version"`
}

type UpdateMemberRequest struct {
	domain.MemberPatch
	ExpectedVersion int64 `json:"expected_version"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type RelationTypesResponse struct {
	Types []domain.RelationType `json:"types"`
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) HandleCreateTree(c *gin.Context) {
	var req CreateTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.uc.CreateTree(c.Request.Context(), req.Tree, req.Root)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *Handlers) HandleGetTree(c *gin.Context) {
	tree, err := h.uc.GetTree(c.Request.Context(), c.Param("treeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *Handlers) HandleListPublicTrees(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		badRequest(c, err)
		return
	}
	trees, err := h.uc.ListPublicTrees(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trees)
}

func (h *Handlers) HandleListUserTrees(c *gin.Context) {
	trees, err := h.uc.ListUserTrees(c.Request.Context(), c.Param("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trees)
}

func (h *Handlers) HandleUpdateTree(c *gin.Context) {
	var req UpdateTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.uc.UpdateTree(c.Request.Context(), c.Param("treeID"), req.TreePatch, req.ExpectedVersion); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleDeleteTree(c *gin.Context) {
	if err := h.uc.DeleteTree(c.Request.Context(), c.Param("treeID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// access adapts one of the collaborator or viewer mutations.
func (h *Handlers) access(fn func(ctx context.Context, treeID, userID string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c.Request.Context(), c.Param("treeID"), c.Param("userID")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handlers) HandleSnapshot(c *gin.Context) {
	snap, err := h.uc.LoadTree(c.Request.Context(), c.Param("treeID"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handlers) HandleHierarchy(c *gin.Context) {
	node, err := h.uc.BuildFamilyTree(c.Request.Context(), c.Param("treeID"), c.Query("root"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *Handlers) HandleConnection(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, errors.New("from and to query parameters are required"))
		return
	}
	path, err := h.uc.FindConnection(c.Request.Context(), c.Param("treeID"), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "connected": len(path) > 0})
}

func (h *Handlers) HandleStatistics(c *gin.Context) {
	stats, err := h.uc.GetTreeStatistics(c.Request.Context(), c.Param("treeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) HandleAddMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.TreeID = c.Param("treeID")
	id, err := h.uc.AddMember(c.Request.Context(), req.MemberDraft, req.ParentID, req.RelationType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *Handlers) HandleListMembers(c *gin.Context) {
	members, err := h.uc.SearchMembers(c.Request.Context(), c.Param("treeID"), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handlers) HandleGetMember(c *gin.Context) {
	m, err := h.uc.GetMember(c.Request.Context(), c.Param("memberID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handlers) HandleUpdateMember(c *gin.Context) {
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.uc.UpdateMember(c.Request.Context(), c.Param("memberID"), req.MemberPatch, req.ExpectedVersion); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleDeleteMember(c *gin.Context) {
	if err := h.uc.DeleteMember(c.Request.Context(), c.Param("memberID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleMemberRelations(c *gin.Context) {
	rels, err := h.uc.ListMemberRelations(c.Request.Context(), c.Param("memberID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rels)
}

func (h *Handlers) HandleDescribeRelation(c *gin.Context) {
	types, err := h.uc.DescribeRelation(c.Request.Context(), c.Param("memberID"), c.Param("otherID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RelationTypesResponse{Types: types})
}

func (h *Handlers) HandleCreateRelation(c *gin.Context) {
	var draft domain.RelationDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	draft.TreeID = c.Param("treeID")
	id, err := h.uc.CreateRelation(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *Handlers) HandleListRelations(c *gin.Context) {
	rels, err := h.uc.ListTreeRelations(c.Request.Context(), c.Param("treeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rels)
}

func (h *Handlers) HandleGetRelation(c *gin.Context) {
	rel, err := h.uc.GetRelation(c.Request.Context(), c.Param("relationID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (h *Handlers) HandleDeleteRelation(c *gin.Context) {
	if err := h.uc.DeleteRelation(c.Request.Context(), c.Param("relationID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleCreateEvent(c *gin.Context) {
	var draft domain.EventDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	draft.TreeID = c.Param("treeID")
	id, err := h.uc.CreateEvent(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *Handlers) HandleListEvents(c *gin.Context) {
	events, err := h.uc.ListTreeEvents(c.Request.Context(), c.Param("treeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handlers) HandleGetEvent(c *gin.Context) {
	event, err := h.uc.GetEvent(c.Request.Context(), c.Param("eventID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handlers) HandleUpdateEvent(c *gin.Context) {
	var patch domain.EventPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.uc.UpdateEvent(c.Request.Context(), c.Param("eventID"), patch); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) HandleDeleteEvent(c *gin.Context) {
	if err := h.uc.DeleteEvent(c.Request.Context(), c.Param("eventID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}
