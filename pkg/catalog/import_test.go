package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCommissionsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[commission]]
id = 1
character = "Alice"
creator = "AZKi"
creator_aliases = ["あずき"]
date = " 20250914 "
keywords = ["blue hair"]
keyword_text = "猫耳、blue hair"

[[commission]]
id = 2
character = "Bob"
alias_text = "bobby; Bobby"
`), 0644))

	list, err := LoadCommissionsTOML(path)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, Commission{
		ID:             1,
		Character:      "Alice",
		Creator:        "AZKi",
		CreatorAliases: []string{"あずき"},
		Date:           "20250914",
		Keywords:       []string{"blue hair", "猫耳"},
	}, list[0])
	assert.Equal(t, []string{"bobby"}, list[1].CreatorAliases)
	assert.Empty(t, list[1].Keywords)
}

func TestLoadCommissionsTOMLErrors(t *testing.T) {
	_, err := LoadCommissionsTOML(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[commission]]\nid = \"one\"\n"), 0644))
	_, err = LoadCommissionsTOML(path)
	assert.Error(t, err)
}
