package domain

// FamilyTreeNode is the derived, never persisted, visualization structure
// produced by tree assembly.
type FamilyTreeNode struct {
	Member    FamilyMember      `json:"member"`
	Spouse    *FamilyMember     `json:"spouse,omitempty"`
	Children  []*FamilyTreeNode `json:"children"`
	Parents   []FamilyMember    `json:"parents"`
	Siblings  []FamilyMember    `json:"siblings"`
	Relations []FamilyRelation  `json:"relations"`
}

// Walk visits n and every descendant node depth first.
func (n *FamilyTreeNode) Walk(fn func(*FamilyTreeNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

type TreeStatistics struct {
	TotalMembers  int `json:"total_members"`
	LivingMembers int `json:"living_members"`
	Generations   int `json:"generations"`
	Marriages     int `json:"marriages"`
	AverageAge    int `json:"average_age"`
}
