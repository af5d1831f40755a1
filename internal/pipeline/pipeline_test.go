package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winmdgen/internal/config"
	"winmdgen/internal/errors"
	"winmdgen/internal/idl"
	"winmdgen/internal/metadata"
	"winmdgen/internal/model"
	"winmdgen/internal/tree"
)

const snapshot = `
namespaces:
  Windows.Win32.Foundation:
    - name: WIN32_ERROR
      extends: System.Enum
      fields:
        - {name: value__, type: u32}
        - {name: ERROR_SUCCESS, type: Windows.Win32.Foundation.WIN32_ERROR, value: 0}
    - name: RECT
      extends: System.ValueType
      fields:
        - {name: left, type: i32}
        - {name: top, type: i32}
  Windows.Win32.Graphics.Gdi:
    - name: POINT
      extends: System.ValueType
      fields:
        - {name: x, type: i32}
        - {name: y, type: i32}
`

// Valid for the IDL backend, unsupported for Go: a two field struct passed
// by value to a DLL function.
const byValue = `
namespaces:
  A:
    - {name: P, extends: System.ValueType, fields: [{name: x, type: i32}, {name: y, type: i32}]}
    - name: Apis
      extends: System.Object
      methods:
        - {name: Move, import: user32.dll, params: [{name: p, type: A.P}]}
`

func reader(t *testing.T, doc string) metadata.Reader {
	t.Helper()
	r, err := metadata.ParseSnapshot([]byte(doc))
	require.NoError(t, err)
	return r
}

// listFiles returns every file below dir, slash separated and relative.
func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestRunAllTargets(t *testing.T) {
	dir := t.TempDir()
	goOut := filepath.Join(dir, "go")
	idlOut := filepath.Join(dir, "idl", "win32.idl")

	result, err := Run(context.Background(), Request{
		Reader: reader(t, snapshot),
		Targets: []Target{
			{Backend: config.BackendGo, Values: map[string]string{config.KeyPackage: "example.com/win32"}, Out: goOut},
			{Backend: config.BackendIDL, Out: idlOut},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Written, 2)

	assert.ElementsMatch(t, []string{
		"windows/win32/foundation/foundation.go",
		"windows/win32/graphics/gdi/gdi.go",
	}, listFiles(t, goOut))
	assert.Len(t, result.Written[0], 2)
	assert.Equal(t, []string{idlOut}, result.Written[1])

	// Written IDL is byte-identical to a direct render.
	r := reader(t, snapshot)
	root, err := tree.Build(r, metadata.All)
	require.NoError(t, err)
	expected, err := idl.Generate(model.New(r), root)
	require.NoError(t, err)
	actual, err := os.ReadFile(idlOut)
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(actual))

	gdi, err := os.ReadFile(filepath.Join(goOut, "windows", "win32", "graphics", "gdi", "gdi.go"))
	require.NoError(t, err)
	assert.Contains(t, string(gdi), "package gdi")
}

func TestRunFilter(t *testing.T) {
	out := t.TempDir()
	_, err := Run(context.Background(), Request{
		Reader:  reader(t, snapshot),
		Filter:  metadata.NewFilter([]string{"Windows.Win32"}, []string{"Windows.Win32.Graphics"}),
		Targets: []Target{{Backend: config.BackendGo, Out: out}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"windows/win32/foundation/foundation.go"}, listFiles(t, out))
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Request{
		Reader: reader(t, snapshot),
		Targets: []Target{
			{Backend: config.BackendGo, Out: filepath.Join(dir, "go")},
			{Backend: config.BackendIDL, Values: map[string]string{"minimal": ""}, Out: filepath.Join(dir, "out.idl")},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
	assert.Empty(t, listFiles(t, dir))
}

func TestRunFailedTargetWritesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Request{
		Reader: reader(t, byValue),
		Targets: []Target{
			{Backend: config.BackendIDL, Out: filepath.Join(dir, "out.idl")},
			{Backend: config.BackendGo, Out: filepath.Join(dir, "go")},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.IsUnsupported(err))
	assert.Contains(t, err.Error(), "go target")
	assert.Empty(t, listFiles(t, dir))
}

func TestRunFailedWriteLeavesOutputsUntouched(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Run(context.Background(), Request{
		Reader: reader(t, snapshot),
		Targets: []Target{
			{Backend: config.BackendGo, Out: filepath.Join(dir, "go")},
			{Backend: config.BackendIDL, Out: filepath.Join(blocker, "out.idl")},
		},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"blocker"}, listFiles(t, dir))
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Request{
		Reader:  reader(t, snapshot),
		Targets: []Target{{Backend: config.BackendIDL, Out: filepath.Join(dir, "out.idl")}},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, listFiles(t, dir))
}

func TestRunNoTargets(t *testing.T) {
	_, err := Run(context.Background(), Request{Reader: reader(t, snapshot)})
	assert.Error(t, err)
}

func TestRunNonEmptyOutput(t *testing.T) {
	out := t.TempDir()
	stale := filepath.Join(out, "stale.go")
	require.NoError(t, os.WriteFile(stale, []byte("package stale\n"), 0o644))

	request := Request{
		Reader:  reader(t, snapshot),
		Targets: []Target{{Backend: config.BackendGo, Out: out}},
	}

	_, err := Run(context.Background(), request)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "--force-clean")
	assert.FileExists(t, stale)

	request.Confirm = func(string) bool { return false }
	_, err = Run(context.Background(), request)
	require.Error(t, err)
	assert.FileExists(t, stale)

	request.ForceClean = true
	_, err = Run(context.Background(), request)
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.Len(t, listFiles(t, out), 2)
}

func TestRunDeterministic(t *testing.T) {
	render := func() map[string]string {
		out := t.TempDir()
		_, err := Run(context.Background(), Request{
			Reader:  reader(t, snapshot),
			Targets: []Target{{Backend: config.BackendGo, Out: out}, {Backend: config.BackendIDL, Out: filepath.Join(out, "x.idl")}},
		})
		require.NoError(t, err)
		contents := make(map[string]string)
		for _, file := range listFiles(t, out) {
			data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(file)))
			require.NoError(t, err)
			contents[file] = string(data)
		}
		return contents
	}
	assert.Equal(t, render(), render())
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.go")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, []string{"file.go"}, listFiles(t, filepath.Dir(path)))
}

func TestPromptConfirm(t *testing.T) {
	var out bytes.Buffer
	confirm := PromptConfirm(strings.NewReader("y\nn\nY\n"), &out)

	assert.True(t, confirm("a"))
	assert.False(t, confirm("b"))
	assert.True(t, confirm("c"))
	assert.False(t, confirm("d"))
	assert.Contains(t, out.String(), "Output directory a is not empty")
}
