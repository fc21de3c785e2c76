package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path + "|" + strconv.Itoa(r.Modules)
	})
	out.Modules = diffRows(from.Modules, to.Modules, func(r ModuleRow) string {
		return r.Name + "|" + r.File + "|" + strconv.Itoa(r.Line) + "|" + strconv.FormatBool(r.Primitive)
	})
	out.Cells = diffRows(from.Cells, to.Cells, func(r CellRow) string {
		return r.Module + "|" + r.Name + "|" + r.Type + "|" + strconv.Itoa(r.Line)
	})
	out.Primitives = diffRows(from.Primitives, to.Primitives, func(r PrimitiveRow) string {
		return r.Name + "|" + r.Status + "|" + r.Path + "|" + strconv.Itoa(r.Pass)
	})

	return out
}

func emptyTables() Tables {
	return Tables{
		Files:      []FileRow{},
		Modules:    []ModuleRow{},
		Cells:      []CellRow{},
		Primitives: []PrimitiveRow{},
	}
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}
