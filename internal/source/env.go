package source

import (
	"slices"
	"strings"
)

// Env is the ambient key/value environment of a run.
type Env map[string]string

// FromEnviron converts os.Environ-style "KEY=value" pairs.
func FromEnviron(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Has reports whether key is present, even with an empty value.
func (e Env) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Get returns the value of key, or "".
func (e Env) Get(key string) string {
	return e[key]
}

// First returns the first non-empty value among keys.
func (e Env) First(keys ...string) string {
	for _, k := range keys {
		if v := e[k]; v != "" {
			return v
		}
	}
	return ""
}

// Keys returns the sorted key names. Values are never exposed.
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// With returns a copy of e with the given pairs added.
func (e Env) With(pairs ...string) Env {
	out := make(Env, len(e)+len(pairs)/2)
	for k, v := range e {
		out[k] = v
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = pairs[i+1]
	}
	return out
}

func (e Env) nonEmpty() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
