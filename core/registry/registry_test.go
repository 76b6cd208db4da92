package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sqlbase/core/csql"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	db, err := csql.Open(csql.SQLite, filepath.Join(t.TempDir(), "registry.db"), "")
	require.NoError(t, err)
	defer db.Close()

	type foo struct {
		A string
		B string
	}

	write := foo{
		A: "Hello",
		B: "World",
	}

	testRegistry := MustNew(ctx, db).Accessor("_test_")

	// test non-existing key
	var something interface{}
	createdAt, err := testRegistry.Read(ctx, "key does not exist", &something)
	require.NoError(t, err)
	assert.True(t, createdAt.IsZero(), "non existing key seems to exist")

	now := time.Now()
	require.NoError(t, testRegistry.Write(ctx, "test", write))

	var read foo
	createdAt, err = testRegistry.Read(ctx, "test", &read)
	require.NoError(t, err)
	assert.Equal(t, write, read)
	assert.WithinDuration(t, now, createdAt, time.Second)

	// overwrite
	write.B = "Again"
	require.NoError(t, testRegistry.Write(ctx, "test", write))
	_, err = testRegistry.Read(ctx, "test", &read)
	require.NoError(t, err)
	assert.Equal(t, "Again", read.B)

	// prefixes separate keys
	var other foo
	createdAt, err = MustNew(ctx, db).Accessor("_other_").Read(ctx, "test", &other)
	require.NoError(t, err)
	assert.True(t, createdAt.IsZero())

	require.NoError(t, testRegistry.Delete(ctx, "test"))
	createdAt, err = testRegistry.Read(ctx, "test", &read)
	require.NoError(t, err)
	assert.True(t, createdAt.IsZero())
}
