package neo4jstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrivA89/family-graph/internal/docstore"
)

func TestBuildQuery(t *testing.T) {
	cypher, params, err := buildQuery("familyRelations", docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("treeId", docstore.OpEq, "t1"),
			docstore.Where("relationType", docstore.OpIn, []string{"SON", "DAUGHTER"}),
			docstore.Where("viewers", docstore.OpArrayContains, "u1"),
			docstore.Where("deletedAt", docstore.OpEq, nil),
		},
		OrderBy: []docstore.Order{{Field: "createdAt", Desc: true}},
		Limit:   10,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (n:`familyRelations`) WHERE n.`treeId` = $p0 AND n.`relationType` IN $p1 AND $p2 IN coalesce(n.`viewers`, []) AND n.`deletedAt` IS NULL"+
			" RETURN properties(n) AS props ORDER BY n.`createdAt` DESC, n.id LIMIT $limit",
		cypher)
	assert.Equal(t, "t1", params["p0"])
	assert.Equal(t, []string{"SON", "DAUGHTER"}, params["p1"])
	assert.Equal(t, "u1", params["p2"])
	assert.NotContains(t, params, "p3")
	assert.Equal(t, int64(10), params["limit"])
}

func TestBuildQueryRejectsUnsafeIdentifiers(t *testing.T) {
	_, _, err := buildQuery("members) DETACH DELETE n //", docstore.Query{})
	assert.ErrorIs(t, err, docstore.ErrInvalidValue)

	_, _, err = buildQuery("members", docstore.Query{
		Filters: []docstore.Filter{docstore.Where("a`b", docstore.OpEq, 1)},
	})
	assert.ErrorIs(t, err, docstore.ErrInvalidValue)

	_, _, err = buildQuery("members", docstore.Query{OrderBy: []docstore.Order{{Field: "x y"}}})
	assert.ErrorIs(t, err, docstore.ErrInvalidValue)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "b", "a"}))
	assert.Equal(t, []string{}, dedupe(nil))
}
