package tests

import (
	"errors"
	"sort"
	"testing"

	"github.com/elvinchan/dbfixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend describes how to exercise one driver implementation.
type Backend struct {
	// New opens a driver whose users and roles collections exist.
	New func() (dbfixture.Driver, error)
	// Find reads a collection back. It is only called while no driver
	// returned by New is open.
	Find func(collection string) ([]map[string]interface{}, error)
}

var (
	users = []interface{}{
		map[string]interface{}{"name": "alice"},
		map[string]interface{}{"name": "bob"},
		map[string]interface{}{"name": "carol"},
	}
	roles = []interface{}{
		map[string]interface{}{"desig": "a"},
		map[string]interface{}{"desig": "b"},
	}
)

func openDriver(t *testing.T, b Backend) dbfixture.Driver {
	t.Helper()
	d, err := b.New()
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func find(t *testing.T, b Backend, collection string) []map[string]interface{} {
	t.Helper()
	docs, err := b.Find(collection)
	require.NoError(t, err)
	return docs
}

func str(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

func values(docs []map[string]interface{}, field string) []string {
	vs := make([]string, 0, len(docs))
	for _, doc := range docs {
		vs = append(vs, str(doc[field]))
	}
	sort.Strings(vs)
	return vs
}

func TestTruncate(t *testing.T, b Backend) {
	t.Run("OnlyNamedCollections", func(t *testing.T) {
		d := openDriver(t, b)
		require.NoError(t, d.Truncate([]string{"users", "roles"}))
		require.NoError(t, d.InsertFixtures("users", users))
		require.NoError(t, d.InsertFixtures("roles", roles))

		require.NoError(t, d.Truncate([]string{"users"}))
		require.NoError(t, d.Close())

		assert.Empty(t, find(t, b, "users"))
		assert.Len(t, find(t, b, "roles"), 2)
	})

	t.Run("Empty", func(t *testing.T) {
		d := openDriver(t, b)
		defer func() {
			require.NoError(t, d.Close())
		}()
		assert.NoError(t, d.Truncate(nil))
		assert.NoError(t, d.Truncate([]string{}))
	})

	t.Run("Duplicates", func(t *testing.T) {
		d := openDriver(t, b)
		require.NoError(t, d.InsertFixtures("roles", roles))
		require.NoError(t, d.Truncate([]string{"roles", "users", "roles"}))
		require.NoError(t, d.Close())

		assert.Empty(t, find(t, b, "users"))
		assert.Empty(t, find(t, b, "roles"))
	})
}

func TestInsertFixtures(t *testing.T, b Backend) {
	t.Run("Normal", func(t *testing.T) {
		d := openDriver(t, b)
		require.NoError(t, d.Truncate([]string{"roles"}))
		require.NoError(t, d.InsertFixtures("roles", roles))
		require.NoError(t, d.Close())

		docs := find(t, b, "roles")
		assert.Len(t, docs, 2)
		assert.Equal(t, []string{"a", "b"}, values(docs, "desig"))
	})

	t.Run("ZeroDocuments", func(t *testing.T) {
		d := openDriver(t, b)
		require.NoError(t, d.Truncate([]string{"roles"}))
		assert.NoError(t, d.InsertFixtures("roles", nil))
		assert.NoError(t, d.InsertFixtures("roles", []interface{}{}))
		require.NoError(t, d.Close())

		assert.Empty(t, find(t, b, "roles"))
	})
}

func TestApply(t *testing.T, b Backend) {
	d := openDriver(t, b)
	require.NoError(t, d.InsertFixtures("users", users))
	set := dbfixture.Set{
		{Collection: "users", Documents: users[:1]},
		{Collection: "roles", Documents: roles},
	}
	require.NoError(t, dbfixture.Apply(d, set))
	require.NoError(t, d.Close())

	assert.Equal(t, []string{"alice"}, values(find(t, b, "users"), "name"))
	assert.Equal(t, []string{"a", "b"}, values(find(t, b, "roles"), "desig"))
}

func TestClose(t *testing.T, b Backend) {
	d := openDriver(t, b)
	require.NoError(t, d.Close())

	err := d.Truncate([]string{"roles"})
	assert.Error(t, err)
	var te *dbfixture.TruncationError
	assert.False(t, errors.As(err, &te), "closed driver must fail with the driver error")

	assert.Error(t, d.InsertFixtures("roles", roles))

	assert.NoError(t, d.Truncate(nil))
	assert.NoError(t, d.InsertFixtures("roles", nil))
}
