package facts

// FilterTablesByModules returns the rows that belong to the given modules.
// Files are kept when they define at least one selected module; primitive rows
// are kept when the primitive itself is selected.
func FilterTablesByModules(tables Tables, modules map[string]bool) Tables {
	out := emptyTables()
	if len(modules) == 0 {
		return out
	}

	files := make(map[string]int)
	for _, row := range tables.Modules {
		if modules[row.Name] {
			out.Modules = append(out.Modules, row)
			if row.File != "" {
				files[row.File]++
			}
		}
	}
	for _, row := range tables.Files {
		if n, ok := files[row.Path]; ok {
			out.Files = append(out.Files, FileRow{Path: row.Path, Modules: n})
		}
	}
	for _, row := range tables.Cells {
		if modules[row.Module] {
			out.Cells = append(out.Cells, row)
		}
	}
	for _, row := range tables.Primitives {
		if modules[row.Name] {
			out.Primitives = append(out.Primitives, row)
		}
	}
	return out
}

// Reachable returns the modules instantiated, directly or not, from top,
// including top itself. Types not defined in the tables are included so that
// their primitive rows survive filtering.
func Reachable(tables Tables, top string) map[string]bool {
	children := make(map[string][]string)
	for _, c := range tables.Cells {
		if !c.Internal {
			children[c.Module] = append(children[c.Module], c.Type)
		}
	}
	seen := map[string]bool{top: true}
	stack := []string{top}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[name] {
			if !seen[child] {
				seen[child] = true
				stack = append(stack, child)
			}
		}
	}
	return seen
}
