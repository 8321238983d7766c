package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRankList(t *testing.T) {
	assert.Equal(t, []uint16{1, 2, 3}, CreateRankList(3))
	assert.Empty(t, CreateRankList(0))
	assert.Empty(t, CreateRankList(-2))
}

func TestFormatWithCommas(t *testing.T) {
	testCases := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		12345:    "12,345",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
		-12:      "-12",
	}
	for n, want := range testCases {
		assert.Equal(t, want, FormatWithCommas(n))
	}
}

func TestJoinIDs(t *testing.T) {
	assert.Equal(t, "-", JoinIDs(nil, 5))
	assert.Equal(t, "1 2 3", JoinIDs([]uint32{1, 2, 3}, 0))
	assert.Equal(t, "1 2 ... (+3)", JoinIDs([]uint32{1, 2, 3, 4, 5}, 2))
}

func TestSeenFilter(t *testing.T) {
	f := NewSeenFilter(strings.ToLower, "Alice")
	assert.False(t, f.ShouldInclude("alice"))
	assert.True(t, f.ShouldInclude("Bob"))
	assert.False(t, f.ShouldInclude("BOB"))

	plain := NewSeenFilter(nil)
	assert.True(t, plain.ShouldInclude("x"))
	assert.True(t, plain.ShouldInclude("X"))
	assert.False(t, plain.ShouldInclude("x"))
}

func TestTOMLRoundTripAndRecovery(t *testing.T) {
	type section struct {
		Limit int    `toml:"limit"`
		Name  string `toml:"name"`
	}
	type doc struct {
		Main section `toml:"main"`
	}

	path := filepath.Join(t.TempDir(), "sub", "c.toml")
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, SaveTOMLFile(doc{Main: section{Limit: 3, Name: "x"}}, path))
	assert.True(t, FileExists(path))

	var got doc
	require.NoError(t, LoadTOMLFile(path, &got))
	assert.Equal(t, 3, got.Main.Limit)

	raw, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	main, ok := ExtractSection(raw, "main")
	require.True(t, ok)

	limit, ok := ExtractInt64(main, "limit")
	assert.True(t, ok)
	assert.Equal(t, 3, limit)

	name, ok := ExtractString(main, "name")
	assert.True(t, ok)
	assert.Equal(t, "x", name)

	f, ok := ExtractFloat64(main, "limit")
	assert.True(t, ok)
	assert.InDelta(t, 3.0, f, 1e-9)

	_, ok = ExtractBool(main, "limit")
	assert.False(t, ok)
}

func TestCheckDirStatus(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "new")
	res := CheckDirStatus(dir)
	assert.True(t, res.Exists)
	assert.True(t, res.Writable)
	assert.NoError(t, res.Error)
}

func TestResolveDatabase(t *testing.T) {
	cwd := t.TempDir()
	exe := t.TempDir()
	cfgDir := t.TempDir()
	pr := &PathResolver{workingDir: cwd, executableDir: exe, homeDir: "/home/u"}

	assert.Equal(t, "/abs/g.db", pr.ResolveDatabase("/abs/g.db", cfgDir))
	assert.Equal(t, filepath.Join("/home/u", "g.db"), pr.ResolveDatabase("~/g.db", cfgDir))

	// nothing exists yet, create next to the working directory
	assert.Equal(t, filepath.Join(cwd, "g.db"), pr.ResolveDatabase("g.db", cfgDir))

	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "g.db"), nil, 0644))
	assert.Equal(t, filepath.Join(cfgDir, "g.db"), pr.ResolveDatabase("g.db", cfgDir))

	require.NoError(t, os.WriteFile(filepath.Join(exe, "g.db"), nil, 0644))
	assert.Equal(t, filepath.Join(exe, "g.db"), pr.ResolveDatabase("g.db", cfgDir))
}
