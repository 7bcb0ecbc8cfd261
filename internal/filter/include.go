// Package filter implements the include-pattern matcher that decides which
// systems, containers, components and people a merge brings in.
//
// Pattern grammar (case-sensitive literal tokens):
//
//	*                        everything at every level
//	<level>                  everything at <level>
//	<level>.*                everything at <level>
//	<level>.[*]              everything at <level>
//	<level>.[<Name>]         exactly <Name> at <level>
//
// Any other token is ignored. Levels are softwareSystem, container,
// component and person.
package filter

import (
	"sort"
	"strings"
)

// Level names one tier of the element hierarchy in include patterns.
type Level string

const (
	LevelSoftwareSystem Level = "softwareSystem"
	LevelContainer      Level = "container"
	LevelComponent      Level = "component"
	LevelPerson         Level = "person"
)

// Wildcard is the token that allows everything.
const Wildcard = "*"

// AllowSet is the set of literal names allowed at one level, or the
// wildcard marker.
type AllowSet struct {
	all   bool
	names map[string]struct{}
}

// All reports whether the set contains the wildcard marker.
func (a AllowSet) All() bool {
	return a.all
}

// Contains reports whether name is allowed. The wildcard allows every name,
// regardless of other literal entries.
func (a AllowSet) Contains(name string) bool {
	if a.all {
		return true
	}
	_, ok := a.names[name]
	return ok
}

// Names returns the literal entries sorted, with "*" first when the
// wildcard is present. Used in skip diagnostics.
func (a AllowSet) Names() []string {
	names := make([]string, 0, len(a.names)+1)
	if a.all {
		names = append(names, Wildcard)
	}
	literal := make([]string, 0, len(a.names))
	for name := range a.names {
		literal = append(literal, name)
	}
	sort.Strings(literal)
	return append(names, literal...)
}

// String renders the set like "[*, Orders]".
func (a AllowSet) String() string {
	return "[" + strings.Join(a.Names(), ", ") + "]"
}

// Filter holds the include tokens and the allow set derived for each level.
type Filter struct {
	tokens []string
	sets   map[Level]AllowSet
}

// New builds a Filter from a flat list of include tokens. An empty list
// allows nothing.
func New(tokens []string) *Filter {
	f := &Filter{sets: make(map[Level]AllowSet)}
	for _, token := range tokens {
		f.tokens = append(f.tokens, strings.TrimSpace(token))
	}
	return f
}

// Everything returns the Filter used when no include list is supplied.
func Everything() *Filter {
	return New([]string{Wildcard})
}

// Parse builds a Filter from a comma separated parameter value. When the
// parameter is absent (present == false) everything is included.
func Parse(value string, present bool) *Filter {
	if !present {
		return Everything()
	}
	if strings.TrimSpace(value) == "" {
		return New(nil)
	}
	return New(strings.Split(value, ","))
}

// Tokens returns the trimmed include tokens.
func (f *Filter) Tokens() []string {
	return f.tokens
}

// AllowSet returns the names allowed at level. Results are computed once
// per level.
func (f *Filter) AllowSet(level Level) AllowSet {
	if set, ok := f.sets[level]; ok {
		return set
	}
	set := allowSetFor(f.tokens, level)
	f.sets[level] = set
	return set
}

// Allows reports whether name passes the filter at level.
func (f *Filter) Allows(level Level, name string) bool {
	return f.AllowSet(level).Contains(name)
}

func allowSetFor(tokens []string, level Level) AllowSet {
	prefix := string(level)
	set := AllowSet{names: make(map[string]struct{})}
	for _, token := range tokens {
		switch {
		case token == Wildcard, token == prefix, token == prefix+".*", token == prefix+".[*]":
			set.all = true
		case strings.HasPrefix(token, prefix+".[") && strings.HasSuffix(token, "]") && len(token) > len(prefix)+3:
			// softwareSystem.[Order Service] -> Order Service
			set.names[token[len(prefix)+2:len(token)-1]] = struct{}{}
		}
	}
	return set
}
