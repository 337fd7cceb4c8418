package native

import "sort"

// Well-known property list keys
const (
	PropApplicationName     = "application.name"
	PropApplicationID       = "application.id"
	PropApplicationVersion  = "application.version"
	PropApplicationLanguage = "application.language"
	PropMediaName           = "media.name"
	PropMediaRole           = "media.role"
	PropEventID             = "event.id"
)

// UpdateMode controls how a proplist update is merged on the server
type UpdateMode uint32

const (
	// UpdateSet replaces the entire property list
	UpdateSet UpdateMode = iota
	// UpdateMerge adds only keys not yet present
	UpdateMerge
	// UpdateReplace adds new keys and overwrites existing ones
	UpdateReplace
)

// Proplist is a set of string-keyed properties attached to a client,
// stream or sample. Values are stored with a trailing NUL on the wire.
type Proplist map[string]string

// Keys returns the property names in sorted order for stable encoding
func (p Proplist) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of the property list
func (p Proplist) Clone() Proplist {
	out := make(Proplist, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
