package dbfixture_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/elvinchan/dbfixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordDriver struct {
	truncated [][]string
	inserted  []dbfixture.Fixtures
	failOn    string
}

func (d *recordDriver) Truncate(collections []string) error {
	d.truncated = append(d.truncated, collections)
	return nil
}

func (d *recordDriver) InsertFixtures(collection string, docs []interface{}) error {
	if collection == d.failOn {
		return &dbfixture.FixtureInsertionError{Collection: collection}
	}
	d.inserted = append(d.inserted, dbfixture.Fixtures{
		Collection: collection, Documents: docs,
	})
	return nil
}

func (d *recordDriver) Close() error { return nil }

const sampleFixtures = `
users:
  - name: alice
    age: 30
  - name: bob
roles:
  - desig: a
  - desig: b
empty: []
`

func TestDecode(t *testing.T) {
	t.Run("Normal", func(t *testing.T) {
		set, err := dbfixture.Decode(strings.NewReader(sampleFixtures))
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "roles", "empty"}, set.Collections())
		require.Len(t, set[0].Documents, 2)
		assert.Equal(t, map[string]interface{}{"name": "alice", "age": 30},
			set[0].Documents[0])
		assert.Empty(t, set[2].Documents)
	})

	t.Run("JSON", func(t *testing.T) {
		set, err := dbfixture.Decode(strings.NewReader(
			`{"roles": [{"desig": "a"}, {"desig": "b"}]}`))
		require.NoError(t, err)
		require.Len(t, set, 1)
		assert.Len(t, set[0].Documents, 2)
	})

	t.Run("ExtendedJSON", func(t *testing.T) {
		set, err := dbfixture.Decode(strings.NewReader(`{
			"users": [{
				"_id": {"$oid": "5f1b2c3d4e5f6a7b8c9d0e1f"},
				"joined": {"$date": "2020-01-02T03:04:05Z"},
				"age": {"$numberLong": "30"}
			}],
			"audit": []
		}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "audit"}, set.Collections())
		require.Len(t, set[0].Documents, 1)
		doc, ok := set[0].Documents[0].(map[string]interface{})
		require.True(t, ok)
		id, err := primitive.ObjectIDFromHex("5f1b2c3d4e5f6a7b8c9d0e1f")
		require.NoError(t, err)
		assert.Equal(t, id, doc["_id"])
		assert.Equal(t, primitive.NewDateTimeFromTime(
			time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)), doc["joined"])
		assert.Equal(t, int64(30), doc["age"])
		assert.Empty(t, set[1].Documents)
	})

	t.Run("MultiDocument", func(t *testing.T) {
		set, err := dbfixture.Decode(strings.NewReader(
			"users:\n  - name: alice\n---\n---\nroles:\n  - desig: a\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "roles"}, set.Collections())
		assert.Equal(t, []interface{}{map[string]interface{}{"desig": "a"}},
			set[1].Documents)

		_, err = dbfixture.Decode(strings.NewReader(
			"users: []\n---\n- a\n"))
		assert.True(t, errors.Is(err, dbfixture.ErrInvalidFixtureFile))
	})

	t.Run("Empty", func(t *testing.T) {
		set, err := dbfixture.Decode(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, set)
	})

	t.Run("Abnormal", func(t *testing.T) {
		for _, in := range []string{
			"- a\n- b\n",
			"users: a\n",
			"users:\n  - 1\n",
			`{"users": "a"}`,
			`{"users": [1]}`,
			`{"users": [{"_id": {"$oid": "xyz"}}]}`,
		} {
			_, err := dbfixture.Decode(strings.NewReader(in))
			assert.True(t, errors.Is(err, dbfixture.ErrInvalidFixtureFile),
				"input %q: %v", in, err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixtures), 0o600))
	set, err := dbfixture.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, set, 3)

	_, err = dbfixture.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestApply(t *testing.T) {
	set, err := dbfixture.Decode(strings.NewReader(sampleFixtures))
	require.NoError(t, err)

	d := &recordDriver{}
	require.NoError(t, dbfixture.Apply(d, set))
	assert.Equal(t, [][]string{{"users", "roles", "empty"}}, d.truncated)
	require.Len(t, d.inserted, 3)
	assert.Equal(t, "roles", d.inserted[1].Collection)

	d = &recordDriver{failOn: "roles"}
	err = dbfixture.Apply(d, set)
	var fe *dbfixture.FixtureInsertionError
	assert.True(t, errors.As(err, &fe))
	assert.Len(t, d.inserted, 1)
}
