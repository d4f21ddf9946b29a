package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/glassline/admin-dashboard/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"serve", "migrate", "seed", "hash-password"})
}

func TestHashPassword(t *testing.T) {
	t.Run("from argument", func(t *testing.T) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"hash-password", "--cost", "4", "tempered-glass"})

		require.NoError(t, root.Execute())

		hash := strings.TrimSpace(out.String())
		assert.NoError(t, auth.NewBcryptHasher(4).Compare(hash, "tempered-glass"))
	})

	t.Run("from stdin", func(t *testing.T) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetIn(strings.NewReader("aluminum-frame\n"))
		root.SetArgs([]string{"hash-password", "-c", "4"})

		require.NoError(t, root.Execute())

		hash := strings.TrimSpace(out.String())
		assert.NoError(t, auth.NewBcryptHasher(4).Compare(hash, "aluminum-frame"))
	})

	t.Run("empty stdin", func(t *testing.T) {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetIn(strings.NewReader(""))
		root.SetArgs([]string{"hash-password"})

		err := root.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password is required")
	})
}

func TestReadPassword(t *testing.T) {
	got, err := readPassword(strings.NewReader("ignored\n"), []string{"from-args"})
	require.NoError(t, err)
	assert.Equal(t, "from-args", got)

	got, err = readPassword(strings.NewReader("windows-line\r\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "windows-line", got)
}
