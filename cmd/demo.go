package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AndrivA89/family-graph/internal/domain"
	"github.com/AndrivA89/family-graph/internal/usecase"
)

type demoResult struct {
	TreeID     string                 `json:"tree_id"`
	Hierarchy  *domain.FamilyTreeNode `json:"hierarchy"`
	Statistics domain.TreeStatistics  `json:"statistics"`
	Connection []string               `json:"connection"`
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	uc, closeStore, err := newUseCase(ctx, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := seedDemo(ctx, uc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printDemo(out, res)
	return nil
}

// seedDemo writes the Rao Family: Venkat at the root, Lakshmi as his
// spouse and Arjun as their son.
func seedDemo(ctx context.Context, uc *usecase.FamilyUseCase) (*demoResult, error) {
	treeID, err := uc.CreateTree(ctx,
		domain.TreeDraft{Name: "Rao Family", OwnerID: "demo"},
		domain.MemberDraft{FirstName: "Venkat", LastName: "Rao", Gender: domain.Male, IsAlive: true},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}
	tree, err := uc.GetTree(ctx, treeID)
	if err != nil {
		return nil, err
	}

	lakshmi, err := uc.AddMember(ctx, domain.MemberDraft{
		TreeID: treeID, FirstName: "Lakshmi", LastName: "Rao", Gender: domain.Female, IsAlive: true, CreatedBy: "demo",
	}, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to add spouse: %w", err)
	}
	if _, err = uc.CreateRelation(ctx, domain.RelationDraft{
		TreeID: treeID, FromMemberID: tree.RootMemberID, ToMemberID: lakshmi, Type: domain.Spouse, CreatedBy: "demo",
	}); err != nil {
		return nil, fmt.Errorf("failed to link spouse: %w", err)
	}
	arjun, err := uc.AddMember(ctx, domain.MemberDraft{
		TreeID: treeID, FirstName: "Arjun", LastName: "Rao", Gender: domain.Male, IsAlive: true, Generation: 1, CreatedBy: "demo",
	}, tree.RootMemberID, domain.Son)
	if err != nil {
		return nil, fmt.Errorf("failed to add son: %w", err)
	}

	res := &demoResult{TreeID: treeID}
	if res.Hierarchy, err = uc.BuildFamilyTree(ctx, treeID, ""); err != nil {
		return nil, err
	}
	if res.Statistics, err = uc.GetTreeStatistics(ctx, treeID); err != nil {
		return nil, err
	}
	path, err := uc.FindConnection(ctx, treeID, lakshmi, arjun)
	if err != nil {
		return nil, err
	}
	for _, m := range path {
		res.Connection = append(res.Connection, m.DisplayName)
	}
	return res, nil
}

func printDemo(w io.Writer, res *demoResult) {
	fmt.Fprintf(w, "Tree %s\n\n", res.TreeID)
	printNode(w, res.Hierarchy, 0)

	s := res.Statistics
	fmt.Fprintf(w, "\nMembers: %d (living %d)\nGenerations: %d\nMarriages: %d\nAverage age: %d\n",
		s.TotalMembers, s.LivingMembers, s.Generations, s.Marriages, s.AverageAge)
	fmt.Fprintf(w, "\nConnection: %s\n", strings.Join(res.Connection, " -> "))
}

func printNode(w io.Writer, n *domain.FamilyTreeNode, depth int) {
	line := strings.Repeat("  ", depth) + n.Member.DisplayName
	if n.Spouse != nil {
		line += " + " + n.Spouse.DisplayName
	}
	fmt.Fprintln(w, line)
	for _, child := range n.Children {
		printNode(w, child, depth+1)
	}
}
