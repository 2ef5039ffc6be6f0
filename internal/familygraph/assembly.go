// Package familygraph holds the pure algorithms run over a tree's already
// fetched members and relations: hierarchy assembly, shortest connection and
// aggregate statistics. Nothing here performs I/O.
package familygraph

import (
	"sort"

	"github.com/AndrivA89/family-graph/internal/domain"
)

// graph indexes one tree's flat lists for a single algorithm run.
type graph struct {
	members  map[string]domain.FamilyMember
	touching map[string][]domain.FamilyRelation
}

func newGraph(members []domain.FamilyMember, relations []domain.FamilyRelation) *graph {
	g := &graph{
		members:  make(map[string]domain.FamilyMember, len(members)),
		touching: make(map[string][]domain.FamilyRelation, len(members)),
	}
	for _, m := range members {
		g.members[m.ID] = m
	}
	for _, rel := range relations {
		g.touching[rel.FromMemberID] = append(g.touching[rel.FromMemberID], rel)
		if rel.ToMemberID != rel.FromMemberID {
			g.touching[rel.ToMemberID] = append(g.touching[rel.ToMemberID], rel)
		}
	}
	return g
}

// BuildTree assembles the hierarchy rooted at rootID.
//
// Children are followed through outgoing CHILD edges and expanded
// recursively. Parents (incoming PARENT edges), siblings and the spouse are
// listed flat. Edges whose other endpoint is not in members are ignored. A
// child edge leading back to a member on the current descent path fails
// with *domain.CycleError; reaching the same member through two different
// parents is allowed.
func BuildTree(rootID string, members []domain.FamilyMember, relations []domain.FamilyRelation) (*domain.FamilyTreeNode, error) {
	g := newGraph(members, relations)
	root, ok := g.members[rootID]
	if !ok {
		return nil, domain.NotFound("build tree", rootID)
	}
	b := &builder{graph: g, onPath: map[string]bool{}}
	return b.build(root)
}

type builder struct {
	*graph
	onPath map[string]bool
	path   []string
}

func (b *builder) build(member domain.FamilyMember) (*domain.FamilyTreeNode, error) {
	b.onPath[member.ID] = true
	b.path = append(b.path, member.ID)
	defer func() {
		delete(b.onPath, member.ID)
		b.path = b.path[:len(b.path)-1]
	}()

	node := &domain.FamilyTreeNode{
		Member:    member,
		Children:  []*domain.FamilyTreeNode{},
		Parents:   []domain.FamilyMember{},
		Siblings:  []domain.FamilyMember{},
		Relations: []domain.FamilyRelation{},
	}

	var children []domain.FamilyMember
	seenChild := map[string]bool{}
	for _, rel := range b.touching[member.ID] {
		node.Relations = append(node.Relations, rel)

		other, ok := b.members[rel.Other(member.ID)]
		if !ok {
			continue
		}
		switch rel.Type.Role() {
		case domain.RoleSpouse:
			if node.Spouse == nil && other.ID != member.ID {
				spouse := other
				node.Spouse = &spouse
			}
		case domain.RoleChild:
			if rel.FromMemberID != member.ID || seenChild[rel.ToMemberID] {
				continue
			}
			if b.onPath[rel.ToMemberID] {
				return nil, b.cycle(rel.ToMemberID)
			}
			seenChild[rel.ToMemberID] = true
			children = append(children, other)
		case domain.RoleParent:
			if rel.ToMemberID == member.ID && rel.FromMemberID != member.ID {
				node.Parents = append(node.Parents, other)
			}
		case domain.RoleSibling:
			if other.ID != member.ID {
				node.Siblings = append(node.Siblings, other)
			}
		}
	}

	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Generation < children[j].Generation
	})
	for _, child := range children {
		childNode, err := b.build(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

func (b *builder) cycle(memberID string) *domain.CycleError {
	path := make([]string, 0, len(b.path)+1)
	path = append(path, b.path...)
	return &domain.CycleError{MemberID: memberID, Path: append(path, memberID)}
}
