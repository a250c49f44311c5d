package reflector

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name string
}

type testIface interface{ Foo() }

const testStructName = "github.com/codewandler/evcorr/internal/reflector.testStruct"

func TestTypeInfoOf(t *testing.T) {
	ti := TypeInfoOf(testStruct{Name: "test"})
	require.Equal(t, testStructName, ti.Name)
	require.Equal(t, "reflector.testStruct", ti.Short)
	require.Equal(t, "testStruct", ti.Type.Name())
}

func TestTypeInfoOf_pointer(t *testing.T) {
	ti := TypeInfoOf(&testStruct{})
	require.Equal(t, testStructName, ti.Name)
	require.NotEqual(t, reflect.Pointer, ti.Type.Kind())
}

func TestTypeInfoFor(t *testing.T) {
	require.Equal(t, testStructName, TypeInfoFor[testStruct]().Name)
	require.Equal(t, testStructName, TypeInfoFor[*testStruct]().Name)
	require.Equal(t, "github.com/codewandler/evcorr/internal/reflector.testIface", TypeInfoFor[testIface]().Name)
	require.Equal(t, "[]uint8", TypeInfoFor[[]byte]().Name)
}

func TestTypeInfoOf_nil(t *testing.T) {
	ti := TypeInfoOf(nil)
	require.Equal(t, "<nil>", ti.Name)
	require.Nil(t, ti.Type)
}

func TestTypeInfo_concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Equal(t, testStructName, TypeInfoOf(testStruct{}).Name)
				_ = TypeInfoFor[string]()
			}
		}()
	}
	wg.Wait()
}
