// Package goal decides which support actions a faction needs in a star system.
//
// A goal is one of a closed set of variants. Evaluate dispatches on the variant
// and returns zero or more directives for a single presence.
package goal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Thresholds are influence fractions (0.0-1.0).
const (
	ControlLowerThreshold = 0.55
	ControlUpperThreshold = 0.65
)

var ErrUnknownGoal = errors.New("unknown goal")

type Goal int

const (
	Control Goal = iota
	Retreat
	Ignore
	Maintain
)

// Default is used for assignments without a goal override unless the
// project configuration names another one.
const Default = Control

var registry = map[string]Goal{
	"control":  Control,
	"retreat":  Retreat,
	"ignore":   Ignore,
	"maintain": Maintain,
}

func (g Goal) String() string {
	switch g {
	case Control:
		return "control"
	case Retreat:
		return "retreat"
	case Ignore:
		return "ignore"
	case Maintain:
		return "maintain"
	default:
		return fmt.Sprintf("goal(%d)", int(g))
	}
}

// Lookup resolves a goal name case-insensitively.
func Lookup(name string) (Goal, error) {
	g, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGoal, name)
	}
	return g, nil
}

// Resolve returns the goal named by override, or fallback when override is nil.
func Resolve(override *string, fallback Goal) (Goal, error) {
	if override == nil {
		return fallback, nil
	}
	return Lookup(*override)
}

// Names lists the registered goal names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Kind string

const (
	Pro  Kind = "pro"
	Anti Kind = "anti"
)

type Directive struct {
	Kind      Kind
	Goal      Goal
	Region    string
	Faction   string
	Influence float64
}

// Presence is the slice of stored state a goal looks at.
type Presence struct {
	Region    string
	Faction   string
	Influence float64
	States    []string
}

func Evaluate(g Goal, p Presence) []Directive {
	switch g {
	case Control:
		return evaluateControl(p)
	case Retreat:
		return evaluateRetreat(p)
	case Ignore, Maintain:
		return nil
	default:
		return nil
	}
}

func evaluateControl(p Presence) []Directive {
	switch {
	case p.Influence < ControlLowerThreshold:
		return []Directive{directive(Pro, Control, p)}
	case p.Influence > ControlUpperThreshold:
		return []Directive{directive(Anti, Control, p)}
	default:
		return nil
	}
}

// A faction with a presence row has not retreated yet, so every stored
// presence still needs suppression however low its influence. The row only
// disappears once the feed stops listing it.
func evaluateRetreat(p Presence) []Directive {
	return []Directive{directive(Anti, Retreat, p)}
}

func directive(kind Kind, g Goal, p Presence) Directive {
	return Directive{
		Kind:      kind,
		Goal:      g,
		Region:    p.Region,
		Faction:   p.Faction,
		Influence: p.Influence,
	}
}
