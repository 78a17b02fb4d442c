package permissions

import (
	"maps"

	"github.com/victorivanov/permcast/internal/snowflake"
)

// State is the tri-state value of a single flag within an overwrite.
type State int

const (
	StateInherit State = iota
	StateAllow
	StateDeny
)

func (s State) String() string {
	switch s {
	case StateAllow:
		return "ALLOW"
	case StateDeny:
		return "DENY"
	default:
		return "DEFAULT"
	}
}

// Overwrite is a per-role permission overwrite: a pair of bitfields.
// A flag set in Allow is explicitly allowed, in Deny explicitly denied,
// and in neither inherited. A flag is never set in both.
type Overwrite struct {
	Allow Permission
	Deny  Permission
}

// IsZero reports whether the overwrite has no explicit entries, which
// is equivalent to no overwrite at all.
func (o Overwrite) IsZero() bool {
	return o.Allow == 0 && o.Deny == 0
}

// StateOf returns the tri-state value of a single flag.
func (o Overwrite) StateOf(flag Permission) State {
	switch {
	case o.Allow.Has(flag):
		return StateAllow
	case o.Deny.Has(flag):
		return StateDeny
	default:
		return StateInherit
	}
}

// WithState returns a copy of o with the flag set to the given state.
func (o Overwrite) WithState(flag Permission, s State) Overwrite {
	o.Allow = o.Allow.Remove(flag)
	o.Deny = o.Deny.Remove(flag)
	switch s {
	case StateAllow:
		o.Allow = o.Allow.Add(flag)
	case StateDeny:
		o.Deny = o.Deny.Add(flag)
	}
	return o
}

// Merge applies requested flag values onto current and returns the
// result. Flags not mentioned in requested keep their prior state.
// Names not in the catalog are dropped, never stored.
func Merge(current Overwrite, requested map[string]bool) Overwrite {
	out := current
	for name, allow := range requested {
		bit, ok := FlagBit(name)
		if !ok {
			continue
		}
		if allow {
			out = out.WithState(bit, StateAllow)
		} else {
			out = out.WithState(bit, StateDeny)
		}
	}
	return out
}

// Flags returns the explicitly set flags as a name -> allowed map.
// Inherited flags are absent, so the result round-trips via FromFlags.
func (o Overwrite) Flags() map[string]bool {
	out := make(map[string]bool)
	for _, e := range catalog {
		switch o.StateOf(e.bit) {
		case StateAllow:
			out[e.name] = true
		case StateDeny:
			out[e.name] = false
		}
	}
	return out
}

// FromFlags builds an overwrite from a name -> allowed map, dropping
// unknown names.
func FromFlags(flags map[string]bool) Overwrite {
	return Merge(Overwrite{}, flags)
}

// OverwriteMap is a channel's full overwrite set, keyed by role ID.
type OverwriteMap map[snowflake.ID]Overwrite

// Clone returns a copy that shares no state with m.
func (m OverwriteMap) Clone() OverwriteMap {
	if m == nil {
		return OverwriteMap{}
	}
	return maps.Clone(m)
}

// Equal reports whether both maps hold the same explicit overwrites.
// Zero-valued records count the same as absent ones.
func (m OverwriteMap) Equal(other OverwriteMap) bool {
	for id, o := range m {
		if o.IsZero() {
			continue
		}
		if other[id] != o {
			return false
		}
	}
	for id, o := range other {
		if o.IsZero() {
			continue
		}
		if m[id] != o {
			return false
		}
	}
	return true
}
