package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foundationSnapshot = `
namespaces:
  Windows.Win32.Foundation:
    - name: WIN32_ERROR
      extends: System.Enum
      fields:
        - {name: value__, type: u32}
        - {name: ERROR_SUCCESS, type: Windows.Win32.Foundation.WIN32_ERROR, value: 0}
        - {name: ERROR_INVALID_FUNCTION, type: Windows.Win32.Foundation.WIN32_ERROR, value: 0x1}
    - name: RECT
      extends: System.ValueType
      requires: [x86_64]
      fields:
        - {name: left, type: i32}
        - {name: points, type: "[*const Windows.Win32.Foundation.POINT; 2]"}
    - name: Apis
      extends: System.Object
      fields:
        - {name: MAX_PATH, type: u32, value: 260}
        - {name: NEG, type: i16, value: -2}
        - {name: NAME, type: string, value: hello}
      methods:
        - name: CloseHandle
          import: kernel32.dll
          params:
            - {name: hObject, type: Windows.Win32.Foundation.HANDLE}
          return: Windows.Win32.Foundation.BOOL
        - name: Sleep
          params:
            - {name: ms, type: u32}
  Windows.Win32.Graphics:
    - name: IUnknown
`

func TestSnapshotReader(t *testing.T) {
	snapshot, err := ParseSnapshot([]byte(foundationSnapshot))
	require.NoError(t, err)

	assert.Equal(t, []string{"Windows.Win32.Foundation", "Windows.Win32.Graphics"}, snapshot.Namespaces())

	defs := snapshot.NamespaceTypes("Windows.Win32.Foundation", All)
	require.Len(t, defs, 3)
	assert.Equal(t, "WIN32_ERROR", snapshot.TypeDefName(defs[0]))
	assert.Equal(t, "RECT", snapshot.TypeDefName(defs[1]))

	t.Run("filter applies per type", func(t *testing.T) {
		only := NewFilter([]string{"Windows.Win32.Foundation.RECT"}, nil)
		assert.Equal(t, []TypeDef{defs[1]}, snapshot.NamespaceTypes("Windows.Win32.Foundation", only))
	})

	t.Run("extends", func(t *testing.T) {
		base, ok := snapshot.TypeDefExtends(defs[0])
		require.True(t, ok)
		assert.Equal(t, SystemEnum, base)

		iunknown, ok := snapshot.FindType(TypeName{"Windows.Win32.Graphics", "IUnknown"})
		require.True(t, ok)
		_, ok = snapshot.TypeDefExtends(iunknown)
		assert.False(t, ok)
	})

	t.Run("enum constants take the underlying kind", func(t *testing.T) {
		fields := snapshot.TypeDefFields(defs[0])
		require.Len(t, fields, 3)
		assert.False(t, snapshot.FieldIsLiteral(fields[0]))

		value, ok := snapshot.FieldConstant(fields[2])
		require.True(t, ok)
		assert.Equal(t, Value{Kind: U32, Uint: 1}, value)
	})

	t.Run("field types", func(t *testing.T) {
		fields := snapshot.TypeDefFields(defs[1])
		assert.Equal(t, I32, snapshot.FieldType(fields[0]))
		assert.Equal(t, Array{
			Elem: Pointer{Elem: Named{TypeName: TypeName{"Windows.Win32.Foundation", "POINT"}}},
			Len:  2,
		}, snapshot.FieldType(fields[1]))
		assert.Equal(t, []string{"x86_64"}, snapshot.TypeDefRequirements(defs[1]))
	})

	t.Run("api constants and methods", func(t *testing.T) {
		fields := snapshot.TypeDefFields(defs[2])
		neg, _ := snapshot.FieldConstant(fields[1])
		assert.Equal(t, "-2", neg.Literal())
		assert.True(t, neg.IsNegative())
		name, _ := snapshot.FieldConstant(fields[2])
		assert.Equal(t, `"hello"`, name.Literal())

		methods := snapshot.TypeDefMethods(defs[2])
		require.Len(t, methods, 2)
		library, ok := snapshot.MethodImport(methods[0])
		assert.True(t, ok)
		assert.Equal(t, "kernel32.dll", library)

		signature := snapshot.MethodSignature(methods[1])
		assert.Equal(t, Void, signature.Return)
		assert.Equal(t, []Param{{Name: "ms", Type: U32}}, signature.Params)
		_, ok = snapshot.MethodImport(methods[1])
		assert.False(t, ok)
	})
}

func TestSnapshotRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad type", "namespaces: {A: [{name: T, fields: [{name: f, type: '[i32'}]}]}"},
		{"bad constant", "namespaces: {A: [{name: T, fields: [{name: f, type: u8, value: x}]}]}"},
		{"duplicate type", "namespaces: {A: [{name: T}, {name: T}]}"},
		{"unnamed type", "namespaces: {A: [{extends: System.Enum}]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSnapshot([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
	}{
		{"usize", USize},
		{"*mut void", Pointer{Mutable: true, Elem: Void}},
		{"*const *mut u16", Pointer{Elem: Pointer{Mutable: true, Elem: U16}}},
		{"[u8; 16]", Array{Elem: U8, Len: 16}},
		{"string", Unsupported{Tag: "string"}},
		{"A.B.List<i32, A.Item>", Named{
			TypeName: TypeName{"A.B", "List"},
			Generics: []Type{I32, Named{TypeName: TypeName{"A", "Item"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, err := ParseType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, typ)
		})
	}

	for _, bad := range []string{"", "[u8; x]", "A.B<i32", "i32 i32"} {
		_, err := ParseType(bad)
		assert.Error(t, err, bad)
	}
}

func TestValueLiteral(t *testing.T) {
	assert.Equal(t, "-128", IntValue(I8, 0x80).Literal())
	assert.Equal(t, "4294967295", IntValue(U32, 0xFFFFFFFF).Literal())
	assert.Equal(t, "1.5", Value{Kind: F64, Float: 1.5}.Literal())
	assert.Equal(t, "2.0", Value{Kind: F32, Float: 2}.Literal())
	assert.Equal(t, uint64(1)<<63, Value{Kind: I64, Int: -1 << 63}.Magnitude())
}

func TestSnapshotScalarConstants(t *testing.T) {
	reader, err := ParseSnapshot([]byte(`
namespaces:
  A:
    - name: Apis
      fields:
        - {name: X, type: i32, value: 1}
        - {name: Y, type: i32, value: -2}
        - {name: Z, type: i32}
`))
	require.NoError(t, err)

	def, ok := reader.FindType(TypeName{Namespace: "A", Name: "Apis"})
	require.True(t, ok)
	fields := reader.TypeDefFields(def)
	require.Len(t, fields, 3)

	x, ok := reader.FieldConstant(fields[0])
	require.True(t, ok)
	assert.Equal(t, int64(1), x.Int)

	y, ok := reader.FieldConstant(fields[1])
	require.True(t, ok)
	assert.Equal(t, int64(-2), y.Int)
	assert.True(t, y.IsNegative())

	assert.False(t, reader.FieldIsLiteral(fields[2]))
	_, ok = reader.FieldConstant(fields[2])
	assert.False(t, ok)
}
