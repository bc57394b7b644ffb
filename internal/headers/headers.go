// Package headers implements the case-insensitive, order-preserving field
// store used by parsed requests and built responses (spec §4.1, the
// "Header Map"). It holds only storage semantics; wire-level parsing with
// DoS limits lives in internal/request, and serialization lives in
// internal/response.
package headers

import "strings"

// Headers is a case-insensitive, order-preserving map from header field
// name to field value. The zero value is ready to use.
type Headers struct {
	order []string          // canonical (lowercase) names, insertion order
	store map[string]string // lowercase name -> value
	disp  map[string]string // lowercase name -> first-seen display casing
}

// New returns an empty Headers ready for use.
func New() Headers {
	return Headers{
		store: make(map[string]string),
		disp:  make(map[string]string),
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

func (h *Headers) ensure() {
	if h.store == nil {
		h.store = make(map[string]string)
		h.disp = make(map[string]string)
	}
}

// Get returns the value stored for name, case-insensitively, and whether it
// was present.
func (h Headers) Get(name string) (string, bool) {
	if h.store == nil {
		return "", false
	}
	v, ok := h.store[key(name)]
	return v, ok
}

// Value is a convenience wrapper around Get that returns "" for a missing
// header.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Has reports whether name is present, case-insensitively.
func (h Headers) Has(name string) bool {
	if h.store == nil {
		return false
	}
	_, ok := h.store[key(name)]
	return ok
}

// Set inserts or overwrites the value stored for name. Overwriting an
// existing name (under any case) leaves the map's size unchanged and
// preserves that name's original iteration position. Values are stored
// verbatim; trimming optional whitespace is the parser's job.
func (h *Headers) Set(name, value string) {
	h.ensure()
	k := key(name)
	if _, exists := h.store[k]; !exists {
		h.order = append(h.order, k)
		h.disp[k] = name
	}
	h.store[k] = value
}

// Delete removes name, case-insensitively. Deleting an absent name is a
// no-op.
func (h *Headers) Delete(name string) {
	if h.store == nil {
		return
	}
	k := key(name)
	if _, ok := h.store[k]; !ok {
		return
	}
	delete(h.store, k)
	delete(h.disp, k)
	for i, n := range h.order {
		if n == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Names yields each stored name exactly once, in stable insertion order,
// rendered with the casing first used to set it.
func (h Headers) Names() []string {
	out := make([]string, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.disp[k])
	}
	return out
}

// Len reports the number of distinct field names stored.
func (h Headers) Len() int {
	return len(h.order)
}

// Clone returns a deep copy safe for independent mutation.
func (h Headers) Clone() Headers {
	out := New()
	for _, k := range h.order {
		out.Set(h.disp[k], h.store[k])
	}
	return out
}
