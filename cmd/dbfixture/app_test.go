package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/elvinchan/dbfixture"
	"github.com/elvinchan/dbfixture/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
	app := NewApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	return app.Run(append([]string{"dbfixture"}, args...))
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAndTruncate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leveldb.db")
	fixtures := writeFile(t, "fixtures.yaml", `
users:
  - name: alice
  - name: bob
roles:
  - desig: a
`)
	require.NoError(t, run(t, "--driver", "leveldb", "--uri", db, "load", fixtures))
	// loading again replaces instead of appending
	require.NoError(t, run(t, "--driver", "leveldb", "--uri", db, "load", fixtures))

	users, err := leveldb.ReadCollection(db, "users")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, run(t, "--driver", "leveldb", "--uri", db,
		"load", "--no-truncate", fixtures))
	roles, err := leveldb.ReadCollection(db, "roles")
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	require.NoError(t, run(t, "--driver", "leveldb", "--uri", db,
		"--verbosity", "DEBUG", "truncate", "users"))
	users, err = leveldb.ReadCollection(db, "users")
	require.NoError(t, err)
	assert.Empty(t, users)
	roles, err = leveldb.ReadCollection(db, "roles")
	require.NoError(t, err)
	assert.Len(t, roles, 2)
}

func TestConfigFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leveldb.db")
	config := writeFile(t, "config.yaml",
		"driver: leveldb\nuri: "+db+"\nconcurrency: 1\n")
	fixtures := writeFile(t, "fixtures.json", `{"roles": [{"desig": "a"}]}`)
	require.NoError(t, run(t, "--config", config, "load", fixtures))

	roles, err := leveldb.ReadCollection(db, "roles")
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "leveldb.db")

	assert.Error(t, run(t, "--driver", "leveldb", "--uri", db, "truncate"))
	assert.Error(t, run(t, "--driver", "leveldb", "--uri", db, "load"))
	assert.Error(t, run(t, "--driver", "bogus", "--uri", db, "truncate", "users"))
	assert.Error(t, run(t, "--driver", "leveldb", "truncate", "users"))
	assert.Error(t, run(t, "--driver", "rpc", "--uri", "unix:///x.sock", "serve"))

	bad := writeFile(t, "bad.yaml", "- a\n")
	err := run(t, "--driver", "leveldb", "--uri", db, "load", bad)
	assert.True(t, errors.Is(err, dbfixture.ErrInvalidFixtureFile))
}

func TestParseRPCAddress(t *testing.T) {
	network, address, err := parseRPCAddress("unix:///tmp/fixture.sock")
	require.NoError(t, err)
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/tmp/fixture.sock", address)

	network, address, err = parseRPCAddress("tcp://127.0.0.1:7300")
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "127.0.0.1:7300", address)

	for _, uri := range []string{"http://x", "tcp://", "unix://"} {
		_, _, err = parseRPCAddress(uri)
		assert.Error(t, err, uri)
	}
}
