package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nebari-dev/crmkit/internal/models"
)

// lessModule orders modules by display order, then name, then slug.
func lessModule(a, b *models.Module) bool {
	if a.DisplayOrder != b.DisplayOrder {
		return a.DisplayOrder < b.DisplayOrder
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Slug < b.Slug
}

// moduleGraph is the dependency graph of one module selection. Edges run from
// a dependency to the modules that depend on it; everything is keyed by slug
// and rebuilt per operation.
type moduleGraph struct {
	nodes      map[string]*models.Module
	dependents map[string][]string
	inDegree   map[string]int
}

func newModuleGraph(selection []*models.Module) *moduleGraph {
	g := &moduleGraph{
		nodes:      make(map[string]*models.Module, len(selection)),
		dependents: make(map[string][]string),
		inDegree:   make(map[string]int, len(selection)),
	}
	for _, m := range selection {
		g.nodes[m.Slug] = m
		g.inDegree[m.Slug] = 0
	}
	for _, m := range selection {
		for _, dep := range uniqueStrings(m.DependsOn) {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			g.dependents[dep] = append(g.dependents[dep], m.Slug)
			g.inDegree[m.Slug]++
		}
	}
	return g
}

// order runs Kahn's algorithm. The ready set is kept sorted so the result is
// deterministic for a given selection.
func (g *moduleGraph) order() ([]*models.Module, error) {
	inDegree := make(map[string]int, len(g.inDegree))
	var ready []*models.Module
	for slug, n := range g.inDegree {
		inDegree[slug] = n
		if n == 0 {
			ready = append(ready, g.nodes[slug])
		}
	}
	sortModules(ready)

	ordered := make([]*models.Module, 0, len(g.nodes))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		released := false
		for _, dependent := range g.dependents[next.Slug] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, g.nodes[dependent])
				released = true
			}
		}
		if released {
			sortModules(ready)
		}
	}

	if len(ordered) < len(g.nodes) {
		return nil, badRequest("circular module dependencies detected")
	}
	return ordered, nil
}

// ResolveTemplateSelection selects the modules to install from a template's
// module list and returns them in install order. Core modules are always
// selected. It performs no writes.
func ResolveTemplateSelection(all []models.Module, requested []string, installAll bool) ([]*models.Module, error) {
	bySlug := make(map[string]*models.Module, len(all))
	for i := range all {
		bySlug[all[i].Slug] = &all[i]
	}

	selected := make(map[string]*models.Module)
	if installAll {
		for slug, m := range bySlug {
			selected[slug] = m
		}
	} else {
		for slug, m := range bySlug {
			if m.IsCore {
				selected[slug] = m
			}
		}
		var missing []string
		for _, slug := range uniqueStrings(requested) {
			m, ok := bySlug[slug]
			if !ok {
				missing = append(missing, slug)
				continue
			}
			selected[slug] = m
		}
		if len(missing) > 0 {
			return nil, notFound(fmt.Sprintf("modules not found in template: %s", strings.Join(missing, ", ")))
		}
	}

	selection := make([]*models.Module, 0, len(selected))
	for _, m := range selected {
		selection = append(selection, m)
	}
	sortModules(selection)

	if err := checkObjectAPINames(selection); err != nil {
		return nil, err
	}
	if err := checkDependencies(selection, selected); err != nil {
		return nil, err
	}
	if err := checkConflicts(selection, selected); err != nil {
		return nil, err
	}

	return newModuleGraph(selection).order()
}

// checkObjectAPINames rejects selections where two blueprint objects share an
// api name. Associations are identified per module and are not checked.
func checkObjectAPINames(selection []*models.Module) error {
	seen := make(map[string]bool)
	var dupes []string
	reported := make(map[string]bool)
	for _, m := range selection {
		for _, obj := range m.BlueprintObjects {
			if seen[obj.APIName] && !reported[obj.APIName] {
				dupes = append(dupes, obj.APIName)
				reported[obj.APIName] = true
			}
			seen[obj.APIName] = true
		}
	}
	if len(dupes) > 0 {
		return badRequest(fmt.Sprintf("duplicate object api names across selected modules: %s", strings.Join(dupes, ", ")))
	}
	return nil
}

func checkDependencies(selection []*models.Module, selected map[string]*models.Module) error {
	var missing []string
	for _, m := range selection {
		for _, dep := range uniqueStrings(m.DependsOn) {
			if _, ok := selected[dep]; !ok {
				missing = append(missing, fmt.Sprintf("%s -> %s", m.Slug, dep))
			}
		}
	}
	if len(missing) > 0 {
		return badRequest(fmt.Sprintf("missing module dependencies: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func checkConflicts(selection []*models.Module, selected map[string]*models.Module) error {
	var pairs []string
	reported := make(map[[2]string]bool)
	for _, m := range selection {
		for _, other := range uniqueStrings(m.ConflictsWith) {
			if _, ok := selected[other]; !ok {
				continue
			}
			key := [2]string{m.Slug, other}
			if other < m.Slug {
				key = [2]string{other, m.Slug}
			}
			if reported[key] {
				continue
			}
			reported[key] = true
			pairs = append(pairs, fmt.Sprintf("%s x %s", m.Slug, other))
		}
	}
	if len(pairs) > 0 {
		return badRequest(fmt.Sprintf("conflicting modules selected: %s", strings.Join(pairs, ", ")))
	}
	return nil
}

// ValidateIncremental checks that target can be added to a company that
// already has the installed modules: its dependencies must all be installed
// and no conflict may exist in either direction.
func ValidateIncremental(target *models.Module, installed []models.Module) error {
	installedSlugs := make(map[string]bool, len(installed))
	for _, m := range installed {
		installedSlugs[m.Slug] = true
	}

	var missing []string
	for _, dep := range uniqueStrings(target.DependsOn) {
		if !installedSlugs[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return badRequest(fmt.Sprintf("module %s is missing dependencies: %s", target.Slug, strings.Join(missing, ", ")))
	}

	var conflicts []string
	seen := make(map[string]bool)
	for _, slug := range uniqueStrings(target.ConflictsWith) {
		if installedSlugs[slug] {
			conflicts = append(conflicts, slug)
			seen[slug] = true
		}
	}
	for _, m := range installed {
		if seen[m.Slug] {
			continue
		}
		for _, slug := range m.ConflictsWith {
			if slug == target.Slug {
				conflicts = append(conflicts, m.Slug)
				seen[m.Slug] = true
				break
			}
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return badRequest(fmt.Sprintf("module %s conflicts with installed modules: %s", target.Slug, strings.Join(conflicts, ", ")))
	}
	return nil
}

func sortModules(modules []*models.Module) {
	sort.SliceStable(modules, func(i, j int) bool { return lessModule(modules[i], modules[j]) })
}

// uniqueStrings drops empty and repeated entries, keeping first-seen order.
func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
