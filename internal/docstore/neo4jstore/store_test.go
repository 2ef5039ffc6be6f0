//go:build integration

package neo4jstore

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrivA89/family-graph/internal/docstore"
)

var testDriver neo4j.DriverWithContext

const testPassword = "familygraph-test"

// TestMain connects to NEO4J_TEST_URI when it is set and otherwise runs a
// throwaway Neo4j 5 container.
func TestMain(m *testing.M) {
	var (
		code int
		err  error
	)
	if uri := os.Getenv("NEO4J_TEST_URI"); uri != "" {
		testDriver, err = connect(context.Background(), uri, os.Getenv("NEO4J_TEST_PASSWORD"))
		if err != nil {
			fmt.Printf("Could not reach %s: %s\n", uri, err)
			os.Exit(1)
		}
		code = m.Run()
	} else {
		code, err = runWithContainer(m)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	_ = testDriver.Close(context.Background())
	os.Exit(code)
}

func runWithContainer(m *testing.M) (int, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return 0, fmt.Errorf("could not connect to docker: %w", err)
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "neo4j",
		Tag:        "5",
		Env:        []string{"NEO4J_AUTH=neo4j/" + testPassword},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return 0, fmt.Errorf("could not start neo4j: %w", err)
	}
	defer func() {
		if err := pool.Purge(resource); err != nil {
			fmt.Printf("Could not purge neo4j: %s\n", err)
		}
	}()

	uri := "bolt://localhost:" + resource.GetPort("7687/tcp")
	if err := pool.Retry(func() error {
		var err error
		testDriver, err = connect(context.Background(), uri, testPassword)
		return err
	}); err != nil {
		return 0, fmt.Errorf("neo4j never became ready: %w", err)
	}
	return m.Run(), nil
}

func connect(ctx context.Context, uri, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth("neo4j", password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return driver, nil
}

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]`)

// newTestStore returns a store and a label derived from the test name. Nodes
// under the label are removed when the test ends.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	label := fmt.Sprintf("T_%s_%d", nonIdentifier.ReplaceAllString(t.Name(), "_"), time.Now().UnixNano())
	t.Cleanup(func() {
		_, err := neo4j.ExecuteQuery(context.Background(), testDriver,
			"MATCH (n:"+label+") DETACH DELETE n", nil, neo4j.EagerResultTransformer)
		if err != nil {
			t.Logf("cleanup of %s failed: %v", label, err)
		}
	})
	return New(testDriver), label
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store, coll := newTestStore(t)
	require.NoError(t, store.EnsureIndexes(ctx, coll))

	born := time.Date(1958, 7, 1, 0, 0, 0, 0, time.UTC)
	id, err := store.Create(ctx, coll, "", docstore.Fields{
		"firstName":  "Venkat",
		"generation": 0,
		"isAlive":    true,
		"born":       born,
		"version":    int64(1),
		"createdAt":  docstore.ServerTimestamp{},
	})
	assert.NoError(t, err, "Create error should be nil")
	assert.NotEqual(t, "", id, "Document id should not be empty")

	doc, err := store.Get(ctx, coll, id)
	require.NoError(t, err, "Get error should be nil")
	assert.Equal(t, "Venkat", doc.Fields.String("firstName"))
	assert.Equal(t, int64(0), doc.Fields.Int64("generation"))
	assert.True(t, doc.Fields.Bool("isAlive"))
	assert.True(t, born.Equal(doc.Fields.Time("born")))
	assert.False(t, doc.Fields.Time("createdAt").IsZero())

	err = store.Update(ctx, coll, id, docstore.Fields{
		"firstName": "Venkata",
		"version":   docstore.Increment{By: 1},
		"born":      nil,
	}, docstore.Precondition{Field: "version", Equals: 1})
	assert.NoError(t, err, "Update error should be nil")

	err = store.Update(ctx, coll, id, docstore.Fields{"firstName": "stale"},
		docstore.Precondition{Field: "version", Equals: 1})
	assert.ErrorIs(t, err, docstore.ErrPreconditionFailed)

	doc, err = store.Get(ctx, coll, id)
	require.NoError(t, err)
	assert.Equal(t, "Venkata", doc.Fields.String("firstName"))
	assert.Equal(t, int64(2), doc.Fields.Int64("version"))
	_, hasBorn := doc.Fields["born"]
	assert.False(t, hasBorn)

	assert.NoError(t, store.Delete(ctx, coll, id), "Delete error should be nil")
	_, err = store.Get(ctx, coll, id)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestArrayTransforms(t *testing.T) {
	ctx := context.Background()
	store, coll := newTestStore(t)

	_, err := store.Create(ctx, coll, "t1", docstore.Fields{"viewers": []string{"u1"}})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, coll, "t1", docstore.Fields{
		"viewers":       docstore.ArrayUnion{Values: []string{"u1", "u2", "u2"}},
		"collaborators": docstore.ArrayUnion{Values: []string{"u3"}},
	}))
	doc, err := store.Get(ctx, coll, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, doc.Fields.Strings("viewers"))
	assert.Equal(t, []string{"u3"}, doc.Fields.Strings("collaborators"))

	require.NoError(t, store.Update(ctx, coll, "t1", docstore.Fields{
		"viewers": docstore.ArrayRemove{Values: []string{"u1"}},
	}))
	doc, err = store.Get(ctx, coll, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, doc.Fields.Strings("viewers"))

	docs, err := store.Query(ctx, coll, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("collaborators", docstore.OpArrayContains, "u3")},
	})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCommitRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store, coll := newTestStore(t)

	_, err := store.Create(ctx, coll, "taken", docstore.Fields{"name": "a"})
	require.NoError(t, err)

	err = store.Commit(ctx, []docstore.Write{
		docstore.CreateWrite(coll, "fresh", docstore.Fields{"name": "b"}),
		docstore.CreateWrite(coll, "taken", docstore.Fields{"name": "c"}),
	})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

	_, err = store.Get(ctx, coll, "fresh")
	assert.ErrorIs(t, err, docstore.ErrNotFound, "no write of a failed batch may be visible")
}

func TestQueryOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	store, coll := newTestStore(t)

	for id, gen := range map[string]int{"a": 2, "b": 0, "c": 1, "d": -1} {
		_, err := store.Create(ctx, coll, id, docstore.Fields{"treeId": "t1", "generation": gen})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, coll, "x", docstore.Fields{"treeId": "t2", "generation": 0})
	require.NoError(t, err)

	docs, err := store.Query(ctx, coll, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("treeId", docstore.OpEq, "t1")},
		OrderBy: []docstore.Order{{Field: "generation"}},
	})
	require.NoError(t, err)
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids)

	docs, err = store.Query(ctx, coll, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("treeId", docstore.OpIn, []string{"t1", "t2"})},
		OrderBy: []docstore.Order{{Field: "generation", Desc: true}},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[1].ID)
}
