// Package reflector resolves and caches display names of Go types, used for
// error messages and metric labels.
package reflector

import (
	"reflect"
	"sync"
)

var cache sync.Map // reflect.Type -> TypeInfo

// TypeInfo names a reflected type. Pointer types are described by their
// element type.
type TypeInfo struct {
	Name  string // "pkg/path.TypeName"
	Short string // "pkg.TypeName"
	Type  reflect.Type
}

// TypeInfoOf describes the dynamic type of x. A nil x yields "<nil>".
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

// TypeInfoFor describes the type parameter T.
func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{Name: "<nil>", Short: "<nil>"}
	}
	if ti, ok := cache.Load(t); ok {
		return ti.(TypeInfo)
	}

	elem := t
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	ti := TypeInfo{Name: elem.String(), Short: elem.String(), Type: elem}
	if elem.Name() != "" && elem.PkgPath() != "" {
		ti.Name = elem.PkgPath() + "." + elem.Name()
	}

	actual, _ := cache.LoadOrStore(t, ti)
	return actual.(TypeInfo)
}
