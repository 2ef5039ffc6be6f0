package familygraph

import (
	"math"
	"time"

	"github.com/AndrivA89/family-graph/internal/domain"
)

// Statistics aggregates a tree's member and relation lists. Ages are whole
// calendar years relative to now and only count living members with a
// recorded birth date.
func Statistics(members []domain.FamilyMember, relations []domain.FamilyRelation, now time.Time) domain.TreeStatistics {
	stats := domain.TreeStatistics{
		TotalMembers: len(members),
		Generations:  GenerationSpan(members),
	}

	var ageSum, aged int
	for _, m := range members {
		if !m.IsAlive {
			continue
		}
		stats.LivingMembers++
		if m.DateOfBirth != nil {
			ageSum += now.Year() - m.DateOfBirth.Year()
			aged++
		}
	}
	if aged > 0 {
		stats.AverageAge = int(math.Round(float64(ageSum) / float64(aged)))
	}

	for _, rel := range relations {
		if rel.Type.Role() == domain.RoleSpouse {
			stats.Marriages++
		}
	}
	return stats
}

// GenerationSpan is the largest absolute generation plus one, so ancestors
// and descendants at the same distance share a row. An empty tree spans 0.
func GenerationSpan(members []domain.FamilyMember) int {
	if len(members) == 0 {
		return 0
	}
	maxAbs := 0
	for _, m := range members {
		g := m.Generation
		if g < 0 {
			g = -g
		}
		if g > maxAbs {
			maxAbs = g
		}
	}
	return maxAbs + 1
}
