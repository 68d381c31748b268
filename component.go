package ecr

import (
	"reflect"
	"sync"
)

// componentInfo describes everything the registry needs to know about a
// component type without knowing it at compile time: how to build a fresh
// column for it, how big one element is (for LiveStats' memory estimate),
// and its display name (for the snapshot interface's type_name lookups).
type componentInfo struct {
	key       TypeKey
	name      string
	size      uintptr
	newColumn func(segmentSize int) column
}

var (
	componentInfoMu sync.RWMutex
	componentInfos  = map[TypeKey]*componentInfo{}
)

// registerComponentType records T's componentInfo on first use and returns
// its TypeKey. Safe to call repeatedly; idempotent after the first call.
func registerComponentType[T any]() TypeKey {
	key := TypeKeyOf[T]()

	componentInfoMu.RLock()
	_, ok := componentInfos[key]
	componentInfoMu.RUnlock()
	if ok {
		return key
	}

	var zero T
	info := &componentInfo{
		key:  key,
		name: reflect.TypeOf(zero).String(),
		size: reflect.TypeOf(zero).Size(),
		newColumn: func(segmentSize int) column {
			return newSegmentedColumn[T](segmentSize)
		},
	}

	componentInfoMu.Lock()
	if _, ok := componentInfos[key]; !ok {
		componentInfos[key] = info
	}
	componentInfoMu.Unlock()
	return key
}

func lookupComponentInfo(key TypeKey) (*componentInfo, bool) {
	componentInfoMu.RLock()
	defer componentInfoMu.RUnlock()
	info, ok := componentInfos[key]
	return info, ok
}

// registerComponentValue registers the runtime type of an arbitrary value
// (used by the reflection-based bulk-insert path, mirroring the teacher's
// entity.go reflect.TypeOf(value) idiom in AddComponentWithValue).
func registerComponentValue(v any) TypeKey {
	t := reflect.TypeOf(v)
	key := typeKeyForReflectType(t)

	componentInfoMu.RLock()
	_, ok := componentInfos[key]
	componentInfoMu.RUnlock()
	if ok {
		return key
	}

	info := &componentInfo{
		key:  key,
		name: t.String(),
		size: t.Size(),
		newColumn: func(segmentSize int) column {
			return newSegmentedColumnOfType(t, segmentSize)
		},
	}
	componentInfoMu.Lock()
	if _, ok := componentInfos[key]; !ok {
		componentInfos[key] = info
	}
	componentInfoMu.Unlock()
	return key
}
