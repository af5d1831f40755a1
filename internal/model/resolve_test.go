package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winmdgen/internal/errors"
	"winmdgen/internal/metadata"
)

var namespaces = []string{
	"",
	"A",
	"A.B",
	"A.B.C",
	"A.X",
	"A.X.Y.Z",
	"B",
	"Windows.Win32.Foundation",
	"Windows.Win32.UI.Shell",
	"Windows.Win32.UI.WindowsAndMessaging",
}

func split(namespace string) []string {
	if namespace == "" {
		return nil
	}
	return strings.Split(namespace, ".")
}

func TestRelativeSteps(t *testing.T) {
	for _, from := range namespaces {
		for _, to := range namespaces {
			if to == "" {
				continue
			}
			t.Run(from+"->"+to, func(t *testing.T) {
				n1, n2 := split(from), split(to)
				k := 0
				for k < len(n1) && k < len(n2) && n1[k] == n2[k] {
					k++
				}

				q := Relative(from, to)
				assert.Equal(t, len(n1)-k, q.Up)
				if len(n2) == k {
					assert.Empty(t, q.Down)
				} else {
					assert.Equal(t, n2[k:], q.Down)
				}
				assert.Equal(t, to, q.Apply(from))
			})
		}
	}
}

func TestRelativeIsReflexive(t *testing.T) {
	for _, namespace := range namespaces {
		assert.True(t, Relative(namespace, namespace).IsEmpty(), namespace)

		expr, err := Resolve(namespace, metadata.Named{TypeName: metadata.TypeName{Namespace: namespace, Name: "T"}})
		require.NoError(t, err)
		assert.True(t, expr.(Named).Qualifier.IsEmpty())
	}
}

func TestQualifierSegments(t *testing.T) {
	q := Relative("Windows.Win32.UI.Shell", "Windows.Win32.Foundation")
	assert.Equal(t, []string{"super", "super", "Foundation"}, q.Segments("super"))
	assert.Empty(t, Qualifier{}.Segments("super"))
}

func TestResolve(t *testing.T) {
	ctx := "A.B"
	tests := []struct {
		name     string
		input    metadata.Type
		expected Expr
	}{
		{"char", metadata.Char, Primitive{Kind: metadata.Char}},
		{"const pointer", metadata.Pointer{Elem: metadata.U8}, Pointer{Elem: Primitive{Kind: metadata.U8}}},
		{"array", metadata.Array{Elem: metadata.F32, Len: 4}, Array{Elem: Primitive{Kind: metadata.F32}, Len: 4}},
		{
			"generic",
			metadata.Named{
				TypeName: metadata.TypeName{Namespace: "A.C", Name: "List"},
				Generics: []metadata.Type{metadata.I32, metadata.Named{TypeName: metadata.TypeName{Namespace: "A.B", Name: "Item"}}},
			},
			Named{
				Qualifier: Qualifier{Up: 1, Down: []string{"C"}},
				Namespace: "A.C",
				Name:      "List",
				Generics:  []Expr{Primitive{Kind: metadata.I32}, Named{Namespace: "A.B", Name: "Item"}},
			},
		},
		{
			"no generics",
			metadata.Named{TypeName: metadata.TypeName{Namespace: "A", Name: "T"}},
			Named{Qualifier: Qualifier{Up: 1}, Namespace: "A", Name: "T"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Resolve(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, expr)
		})
	}
}

func TestResolveRejectsUnsupported(t *testing.T) {
	for _, input := range []metadata.Type{
		metadata.Unsupported{Tag: "OBJECT"},
		metadata.Primitive(200),
		metadata.Pointer{Elem: metadata.Unsupported{Tag: "STRING"}},
		metadata.Named{TypeName: metadata.TypeName{Namespace: "A", Name: "G"}, Generics: []metadata.Type{metadata.Unsupported{Tag: "VAR"}}},
		nil,
	} {
		_, err := Resolve("A", input)
		require.Error(t, err)
		assert.True(t, errors.IsUnsupported(err), "%v", input)
	}
}
