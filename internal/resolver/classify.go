package resolver

import (
	"github.com/robert-at-pretension-io/bsv-synth/internal/catalog"
	"github.com/robert-at-pretension-io/bsv-synth/internal/design"
)

// Action is what the closure does with a reference.
type Action int

const (
	// ActionIgnore: engine-internal type, never resolvable.
	ActionIgnore Action = iota
	// ActionFail: blocked primitive.
	ActionFail
	// ActionLoad: known primitive not loaded yet in this run.
	ActionLoad
	// ActionSkip: known primitive already loaded in this run.
	ActionSkip
	// ActionDefer: not a primitive; checked once the closure is done.
	ActionDefer
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionFail:
		return "fail"
	case ActionLoad:
		return "load"
	case ActionSkip:
		return "skip"
	case ActionDefer:
		return "defer"
	default:
		return "invalid"
	}
}

// Classify decides what to do with an undefined reference. For ActionFail
// the blocked reason is returned as well.
func Classify(c *catalog.Catalog, name string, seen map[string]bool) (Action, string) {
	if design.IsInternal(name) {
		return ActionIgnore, ""
	}
	if reason, ok := c.BlockReason(name); ok {
		return ActionFail, reason
	}
	if c.IsKnown(name) {
		if seen[name] {
			return ActionSkip, ""
		}
		return ActionLoad, ""
	}
	return ActionDefer, ""
}
