package aposd

import (
	"github.com/unbound-force/sounding/internal/naming"
)

// IdiomPolicy decides which delegating functions are intentional and
// must not be reported as pass-through. Names are compared in their
// snake_case form so the same tables serve Go and snake_case sources.
type IdiomPolicy struct {
	// Builtin enables the conventional naming tables below.
	Builtin bool

	// Prefixes and Methods are caller-supplied exclusions. They apply
	// whether or not Builtin is set.
	Prefixes []string
	Methods  []string
}

// DefaultIdiomPolicy enables the built-in tables with no custom
// exclusions.
func DefaultIdiomPolicy() IdiomPolicy {
	return IdiomPolicy{Builtin: true}
}

// idiomPrefixes cover conversion, accessor, builder and constructor
// naming conventions.
var idiomPrefixes = []string{
	// conversions
	"as_", "into_", "from_", "to_",
	// accessors
	"get_", "set_",
	// builders
	"with_", "and_",
	// constructors
	"new_",
}

var idiomSuffixes = []string{"_ref", "_mut"}

// idiomMethods are exact names of standard interface and trait
// methods whose implementations conventionally delegate.
var idiomMethods = map[string]bool{
	// trait-style
	"deref": true, "deref_mut": true, "as_ref": true, "as_mut": true,
	"borrow": true, "borrow_mut": true, "clone": true, "default": true,
	"eq": true, "ne": true, "partial_cmp": true, "cmp": true,
	"hash": true, "fmt": true, "drop": true, "index": true, "index_mut": true,

	// standard Go interfaces
	"string": true, "error": true, "unwrap": true, "is": true, "as": true,
	"less": true, "swap": true, "format": true, "go_string": true,
	"marshal_json": true, "unmarshal_json": true,
	"marshal_text": true, "unmarshal_text": true,
	"marshal_yaml": true, "unmarshal_yaml": true,
	"read": true, "write": true, "close": true, "serve_http": true,
	"value": true, "scan": true,

	// iterator adaptors
	"iter": true, "iter_mut": true, "into_iter": true,
	"all": true, "keys": true, "values": true,

	// simple accessors
	"len": true, "is_empty": true, "capacity": true, "cap": true,
	"inner": true, "get": true, "new": true,
}

// Excludes reports whether a function named name is an idiomatic
// delegation.
func (p IdiomPolicy) Excludes(name string) bool {
	snake := naming.SnakeCase(name)
	if p.Builtin {
		if naming.HasAnyPrefix(snake, idiomPrefixes) ||
			naming.HasAnySuffix(snake, idiomSuffixes) ||
			idiomMethods[snake] {
			return true
		}
	}
	return p.customExcludes(name, snake)
}

func (p IdiomPolicy) customExcludes(name, snake string) bool {
	if naming.HasAnyPrefix(snake, p.Prefixes) || naming.HasAnyPrefix(name, p.Prefixes) {
		return true
	}
	for _, m := range p.Methods {
		if m == name || m == snake {
			return true
		}
	}
	return false
}
