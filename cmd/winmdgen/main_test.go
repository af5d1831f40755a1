package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winmdgen/internal/config"
	"winmdgen/internal/errors"
	"winmdgen/internal/metadata"
	"winmdgen/internal/pipeline"
)

const snapshot = `
namespaces:
  Windows.Win32.Foundation:
    - name: RECT
      extends: System.ValueType
      fields:
        - {name: left, type: i32}
  Windows.Win32.Graphics.Gdi:
    - name: POINT
      extends: System.ValueType
      fields:
        - {name: x, type: i32}
  Other:
    - {name: Thing, extends: System.ValueType, fields: [{name: v, type: u8}]}
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "win32.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o644))
	return path
}

func TestAllCommand(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{
		"all",
		"--snapshot", writeSnapshot(t),
		"--filter", "Windows.Win32",
		"--exclude", "Windows.Win32.Graphics",
		"--config", "flatten",
		"--config", "package=example.com/win32",
		"--go-out", filepath.Join(dir, "go"),
		"--idl-out", filepath.Join(dir, "win32.idl"),
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	flat, err := os.ReadFile(filepath.Join(dir, "go", "win32.go"))
	require.NoError(t, err)
	assert.Contains(t, string(flat), "package win32")
	assert.Contains(t, string(flat), "RECT")
	assert.NotContains(t, string(flat), "POINT")

	idl, err := os.ReadFile(filepath.Join(dir, "win32.idl"))
	require.NoError(t, err)
	assert.Contains(t, string(idl), "RECT")
	assert.NotContains(t, string(idl), "Other")
}

func TestGenerateValidatesBeforeLoading(t *testing.T) {
	source = sourceFlags{snapshotPath: filepath.Join(t.TempDir(), "missing.yaml")}
	t.Cleanup(func() { source = sourceFlags{} })

	err := generate(context.Background(), pipeline.Target{
		Backend: config.BackendIDL,
		Values:  map[string]string{config.KeyMinimal: ""},
		Out:     filepath.Join(t.TempDir(), "out.idl"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestFilter(t *testing.T) {
	reader, err := metadata.ParseSnapshot([]byte(snapshot))
	require.NoError(t, err)

	rules := filepath.Join(t.TempDir(), "rules.txt")
	require.NoError(t, os.WriteFile(rules, []byte("# rules\n!Windows.Win32.Graphics\n"), 0o644))

	tests := []struct {
		name     string
		flags    sourceFlags
		included []string
		excluded []string
	}{
		{
			name:     "no rules",
			included: []string{"Windows.Win32.Foundation", "Windows.Win32.Graphics.Gdi", "Other"},
		},
		{
			name:     "exclusions only",
			flags:    sourceFlags{inputPath: rules},
			included: []string{"Windows.Win32.Foundation", "Other"},
			excluded: []string{"Windows.Win32.Graphics.Gdi"},
		},
		{
			name:     "include and exclude",
			flags:    sourceFlags{include: []string{"Windows"}, exclude: []string{"Windows.Win32.Foundation"}},
			included: []string{"Windows.Win32.Graphics.Gdi"},
			excluded: []string{"Windows.Win32.Foundation", "Other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := tt.flags.filter(reader)
			require.NoError(t, err)
			for _, namespace := range tt.included {
				assert.True(t, filter.Includes(namespace, "X"), namespace)
			}
			for _, namespace := range tt.excluded {
				assert.False(t, filter.Includes(namespace, "X"), namespace)
			}
		})
	}
}

func TestValues(t *testing.T) {
	file := filepath.Join(t.TempDir(), "go.yaml")
	require.NoError(t, os.WriteFile(file, []byte("sys: true\npackage: example.com/a\n"), 0o644))

	flags := sourceFlags{configFile: file, configPairs: []string{"package=example.com/b", "minimal"}}
	values, err := flags.values()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sys": "true", "package": "example.com/b", "minimal": ""}, values)
}
