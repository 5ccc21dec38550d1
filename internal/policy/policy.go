// Package policy decides whether a set of role grants allows a permission.
//
// A Grant is either explicit (a finite set of codes) or unrestricted. The
// evaluator is pure: no I/O, no caching, no shared mutable state.
package policy

import (
	"sort"

	"go-pos-access/internal/permission"
)

// Grant is the permission set carried by one role.
type Grant struct {
	unrestricted bool
	codes        map[permission.Code]struct{}
}

// Unrestricted returns a grant that allows every code, including codes added
// to the registry later.
func Unrestricted() Grant {
	return Grant{unrestricted: true}
}

// Explicit returns a grant allowing exactly codes.
func Explicit(codes ...permission.Code) Grant {
	set := make(map[permission.Code]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return Grant{codes: set}
}

func (g Grant) IsUnrestricted() bool { return g.unrestricted }

// Contains reports literal membership. Unrestricted grants contain every code.
func (g Grant) Contains(code permission.Code) bool {
	if g.unrestricted {
		return true
	}
	_, ok := g.codes[code]
	return ok
}

// Codes returns the explicit codes sorted. It is empty for unrestricted
// grants; callers must check IsUnrestricted first.
func (g Grant) Codes() []permission.Code {
	out := make([]permission.Code, 0, len(g.codes))
	for c := range g.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsAllowed reports whether any grant allows code. An unrestricted grant
// short-circuits to true. The code is not checked against the registry, so a
// misspelled code is simply denied.
func IsAllowed(grants []Grant, code permission.Code) bool {
	for _, g := range grants {
		if g.unrestricted {
			return true
		}
		if _, ok := g.codes[code]; ok {
			return true
		}
	}
	return false
}

// AllowsAny reports whether grants allow at least one of codes. With no
// codes it denies.
func AllowsAny(grants []Grant, codes ...permission.Code) bool {
	for _, code := range codes {
		if IsAllowed(grants, code) {
			return true
		}
	}
	return false
}

// Effective folds grants into their union.
func Effective(grants []Grant) Grant {
	set := make(map[permission.Code]struct{})
	for _, g := range grants {
		if g.unrestricted {
			return Unrestricted()
		}
		for c := range g.codes {
			set[c] = struct{}{}
		}
	}
	return Grant{codes: set}
}

// Covers reports whether g allows everything other allows. Only an
// unrestricted grant covers an unrestricted one.
func (g Grant) Covers(other Grant) bool {
	if g.unrestricted {
		return true
	}
	if other.unrestricted {
		return false
	}
	for c := range other.codes {
		if _, ok := g.codes[c]; !ok {
			return false
		}
	}
	return true
}
