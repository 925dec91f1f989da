package blueprint

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nebari-dev/crmkit/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate checks a definition for problems that would otherwise surface only
// at install time. All problems are reported together.
func (d *Definition) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !slugPattern.MatchString(d.Slug) {
		add("template slug %q is invalid", d.Slug)
	}
	if len(d.Modules) == 0 {
		add("template %s has no modules", d.Slug)
	}

	modules := make(map[string]bool, len(d.Modules))
	for _, md := range d.Modules {
		if !slugPattern.MatchString(md.Slug) {
			add("module slug %q is invalid", md.Slug)
			continue
		}
		if modules[md.Slug] {
			add("duplicate module slug %s", md.Slug)
		}
		modules[md.Slug] = true
	}

	for _, md := range d.Modules {
		for _, dep := range md.DependsOn {
			if dep == md.Slug {
				add("module %s depends on itself", md.Slug)
			} else if !modules[dep] {
				add("module %s depends on unknown module %s", md.Slug, dep)
			}
		}
		for _, other := range md.ConflictsWith {
			if other == md.Slug {
				add("module %s conflicts with itself", md.Slug)
			} else if !modules[other] {
				add("module %s conflicts with unknown module %s", md.Slug, other)
			}
		}

		objects := make(map[string]bool, len(md.Objects))
		for _, od := range md.Objects {
			if od.APIName == "" {
				add("module %s has an object without api_name", md.Slug)
				continue
			}
			if objects[od.APIName] {
				add("module %s declares object %s twice", md.Slug, od.APIName)
			}
			objects[od.APIName] = true
			if !validProtection(od.Protection) {
				add("object %s has invalid protection %q", od.APIName, od.Protection)
			}

			fields := make(map[string]bool, len(od.Fields))
			for _, fd := range od.Fields {
				if fd.APIName == "" || fd.Type == "" {
					add("object %s has a field without api_name or type", od.APIName)
					continue
				}
				if fields[fd.APIName] {
					add("object %s declares field %s twice", od.APIName, fd.APIName)
				}
				fields[fd.APIName] = true
				if !validProtection(fd.Protection) {
					add("field %s.%s has invalid protection %q", od.APIName, fd.APIName, fd.Protection)
				}
			}
		}

		associations := make(map[string]bool, len(md.Associations))
		for _, ad := range md.Associations {
			if ad.APIName == "" || ad.Source == "" || ad.Target == "" {
				add("module %s has an association without api_name, source or target", md.Slug)
				continue
			}
			if associations[ad.APIName] {
				add("module %s declares association %s twice", md.Slug, ad.APIName)
			}
			associations[ad.APIName] = true
			for _, c := range []string{ad.SourceCardinality, ad.TargetCardinality} {
				if c != "" && !models.Cardinality(strings.ToUpper(c)).Valid() {
					add("association %s has invalid cardinality %q", ad.APIName, c)
				}
			}
			if !validProtection(ad.Protection) {
				add("association %s has invalid protection %q", ad.APIName, ad.Protection)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid template %s: %w", d.Slug, errors.Join(errs...))
	}
	return nil
}

func validProtection(p string) bool {
	return p == "" || models.Protection(p).Valid()
}
