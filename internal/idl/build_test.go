package idl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winmdgen/internal/errors"
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
        - {name: ERROR_INVALID_FUNCTION, type: Windows.Win32.Foundation.WIN32_ERROR, value: 1}
    - name: HRESULT
      extends: System.ValueType
      fields:
        - {name: Value, type: i32}
  Windows.Win32.Storage.FileSystem:
    - name: MOVE_FILE_FLAGS
      extends: System.Enum
      flags: true
      fields:
        - {name: value__, type: i32}
        - {name: MOVEFILE_COPY_ALLOWED, type: i32, value: 2}
        - {name: MOVEFILE_NEGATIVE, type: i32, value: -8}
    - name: FILE_ID_128
      extends: System.ValueType
      requires: [amd64]
      fields:
        - {name: Identifier, type: "[u8; 16]"}
        - {name: Id, type: "*const System.Guid"}
        - {name: Result, type: Windows.Win32.Foundation.HRESULT}
    - name: LPPROGRESS_ROUTINE
      extends: System.MulticastDelegate
      methods:
        - name: Invoke
          params:
            - {name: data, type: "*mut void"}
          return: u32
    - name: Apis
      extends: System.Object
      fields:
        - {name: MAX_SIZE, type: u32, value: 16}
      methods:
        - name: MoveFileExW
          import: KERNEL32.dll
          params:
            - {name: flags, type: Windows.Win32.Storage.FileSystem.MOVE_FILE_FLAGS}
          return: Windows.Win32.Foundation.HRESULT
`

func generate(t *testing.T, doc string) ([]byte, error) {
	t.Helper()
	reader, err := metadata.ParseSnapshot([]byte(doc))
	require.NoError(t, err)
	root, err := tree.Build(reader, metadata.All)
	require.NoError(t, err)
	return Generate(model.New(reader), root)
}

func TestGenerate(t *testing.T) {
	expected := `use System::Guid;
mod Windows {
    mod Win32 {
        mod Foundation {
            struct HRESULT {
                Value: i32,
            }
            #[repr(u32)]
            enum WIN32_ERROR {
                ERROR_SUCCESS = 0,
                ERROR_INVALID_FUNCTION = 1,
            }
        }
        mod Storage {
            mod FileSystem {
                #[features("Win32_Foundation")]
                class Apis {
                    const MAX_SIZE: u32 = 16;
                    #[import("KERNEL32.dll")]
                    fn MoveFileExW(flags: MOVE_FILE_FLAGS) -> super::super::Foundation::HRESULT;
                }
                #[features("Win32_Foundation", "amd64")]
                struct FILE_ID_128 {
                    Identifier: [u8; 16],
                    Id: *const super::super::super::super::Guid,
                    Result: super::super::Foundation::HRESULT,
                }
                #[delegate]
                interface LPPROGRESS_ROUTINE {
                    fn Invoke(data: *mut void) -> u32;
                }
                #[repr(i32)]
                #[flags]
                enum MOVE_FILE_FLAGS {
                    MOVEFILE_COPY_ALLOWED = 2,
                    MOVEFILE_NEGATIVE = -8,
                }
            }
        }
    }
}
`

	text, err := generate(t, snapshot)
	require.NoError(t, err)
	if diff := cmp.Diff(expected, string(text)); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateExternalTypesUseRootImports(t *testing.T) {
	reader, err := metadata.ParseSnapshot([]byte(snapshot))
	require.NoError(t, err)
	root, err := tree.Build(reader, metadata.NewFilter([]string{"Windows"}, []string{"Windows.Win32.Foundation"}))
	require.NoError(t, err)
	out, err := Generate(model.New(reader), root)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "use System::Guid;\nuse Windows::Win32::Foundation::HRESULT;\nmod Windows {")
	assert.Contains(t, text, "Result: super::super::super::super::HRESULT,")
	assert.Contains(t, text, "fn MoveFileExW(flags: MOVE_FILE_FLAGS) -> super::super::super::super::HRESULT;")
	assert.NotContains(t, text, "::Foundation::HRESULT,")
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := generate(t, snapshot)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := generate(t, snapshot)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGenerateFailsFast(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"float discriminant", `
namespaces:
  A.B:
    - name: E
      extends: System.Enum
      fields:
        - {name: value__, type: i32}
        - {name: X, type: f32, value: 1.5}
`},
		{"string discriminant", `
namespaces:
  A.B:
    - name: E
      extends: System.Enum
      fields:
        - {name: value__, type: i32}
        - {name: S, type: string, value: oops}
`},
		{"unmapped field type", `
namespaces:
  A.B:
    - name: S
      extends: System.ValueType
      fields:
        - {name: text, type: string}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := generate(t, tt.doc)
			require.Error(t, err)
			assert.True(t, errors.IsUnsupported(err))
			assert.Nil(t, text)
		})
	}
}
