package familygraph

import "github.com/AndrivA89/family-graph/internal/domain"

// FindConnection returns the shortest chain of members linking fromID to
// toID, treating every relation as an undirected edge whatever its type.
//
// Both endpoints must be in members, otherwise the call fails with
// domain.ErrNotFound. An empty path with a nil error means the two members
// are not connected.
func FindConnection(fromID, toID string, members []domain.FamilyMember, relations []domain.FamilyRelation) ([]domain.FamilyMember, error) {
	const op = "find connection"
	g := newGraph(members, relations)
	for _, id := range []string{fromID, toID} {
		if _, ok := g.members[id]; !ok {
			return nil, domain.NotFound(op, id)
		}
	}
	if fromID == toID {
		return []domain.FamilyMember{g.members[fromID]}, nil
	}

	prev := map[string]string{fromID: ""}
	queue := []string{fromID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == toID {
			return g.trace(prev, toID), nil
		}
		for _, rel := range g.touching[current] {
			next := rel.Other(current)
			if _, seen := prev[next]; seen {
				continue
			}
			if _, ok := g.members[next]; !ok {
				continue
			}
			prev[next] = current
			queue = append(queue, next)
		}
	}
	return []domain.FamilyMember{}, nil
}

// trace walks the predecessor map back from id and returns the path in
// source-to-target order.
func (g *graph) trace(prev map[string]string, id string) []domain.FamilyMember {
	var reversed []domain.FamilyMember
	for ; id != ""; id = prev[id] {
		reversed = append(reversed, g.members[id])
	}
	path := make([]domain.FamilyMember, len(reversed))
	for i, m := range reversed {
		path[len(reversed)-1-i] = m
	}
	return path
}
