package ecr

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// TypeKey is a stable 64-bit identity for a component type. Two TypeKeys
// compare equal iff they were derived from the same Go type.
type TypeKey uint64

// TagKey is a plain 64-bit integer supplied by the caller. Tag keys occupy
// the same key space as TypeKeys (both partition a Signature) but carry no
// associated storage.
type TagKey uint64

var (
	typeKeyMu    sync.RWMutex
	typeKeyCache = map[reflect.Type]TypeKey{}
)

// TypeKeyOf returns the stable TypeKey for T, computing and caching it on
// first use. The key is derived from the type's fully-qualified name via
// xxhash, so it is reproducible within a process and stable across calls,
// matching spec.md §3's "hash of the language's type identity".
func TypeKeyOf[T any]() TypeKey {
	var zero T
	t := reflect.TypeOf(zero)
	return typeKeyForReflectType(t)
}

func typeKeyForReflectType(t reflect.Type) TypeKey {
	typeKeyMu.RLock()
	if k, ok := typeKeyCache[t]; ok {
		typeKeyMu.RUnlock()
		return k
	}
	typeKeyMu.RUnlock()

	typeKeyMu.Lock()
	defer typeKeyMu.Unlock()
	if k, ok := typeKeyCache[t]; ok {
		return k
	}
	name := t.PkgPath() + "." + t.Name()
	if t.Name() == "" {
		name = t.String()
	}
	k := TypeKey(xxhash.Sum64String(name))
	typeKeyCache[t] = k
	return k
}

func typeKeyOfValue(v any) TypeKey {
	return typeKeyForReflectType(reflect.TypeOf(v))
}

func reflectValueOf(v any) reflect.Value {
	return reflect.ValueOf(v)
}
