// Package blueprint loads template definitions authored as YAML or TOML
// files and syncs them into the blueprint catalog.
//
// A definition file describes one template:
//
//	slug: sales
//	name: Sales CRM
//	modules:
//	  - slug: core
//	    core: true
//	    objects:
//	      - api_name: _contact
//	        fields:
//	          - api_name: email
//	            type: email
//	  - slug: deals
//	    depends_on: [core]
//	    objects:
//	      - api_name: _deal
//	    associations:
//	      - api_name: deal_contact
//	        source: _deal
//	        target: _contact
package blueprint

import (
	"strings"

	"github.com/nebari-dev/crmkit/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Definition is one template as authored on disk.
type Definition struct {
	Slug        string      `yaml:"slug" toml:"slug"`
	Name        string      `yaml:"name" toml:"name"`
	Description string      `yaml:"description" toml:"description"`
	Icon        string      `yaml:"icon" toml:"icon"`
	Active      *bool       `yaml:"active" toml:"active"`
	Modules     []ModuleDef `yaml:"modules" toml:"modules"`

	// Source is the file the definition was loaded from.
	Source string `yaml:"-" toml:"-"`
}

// ModuleDef describes a module and the blueprints it carries.
type ModuleDef struct {
	Slug          string           `yaml:"slug" toml:"slug"`
	Name          string           `yaml:"name" toml:"name"`
	Description   string           `yaml:"description" toml:"description"`
	Core          bool             `yaml:"core" toml:"core"`
	DependsOn     []string         `yaml:"depends_on" toml:"depends_on"`
	ConflictsWith []string         `yaml:"conflicts_with" toml:"conflicts_with"`
	DisplayOrder  *int             `yaml:"display_order" toml:"display_order"`
	Objects       []ObjectDef      `yaml:"objects" toml:"objects"`
	Associations  []AssociationDef `yaml:"associations" toml:"associations"`
}

// ObjectDef describes a blueprint object.
type ObjectDef struct {
	APIName      string     `yaml:"api_name" toml:"api_name"`
	Name         string     `yaml:"name" toml:"name"`
	Description  string     `yaml:"description" toml:"description"`
	Icon         string     `yaml:"icon" toml:"icon"`
	Protection   string     `yaml:"protection" toml:"protection"`
	DisplayOrder *int       `yaml:"display_order" toml:"display_order"`
	Fields       []FieldDef `yaml:"fields" toml:"fields"`
}

// FieldDef describes a blueprint field.
type FieldDef struct {
	APIName      string                 `yaml:"api_name" toml:"api_name"`
	Name         string                 `yaml:"name" toml:"name"`
	Type         string                 `yaml:"type" toml:"type"`
	Required     bool                   `yaml:"required" toml:"required"`
	Protection   string                 `yaml:"protection" toml:"protection"`
	DisplayOrder *int                   `yaml:"display_order" toml:"display_order"`
	Shape        map[string]interface{} `yaml:"shape" toml:"shape"`
	Config       map[string]interface{} `yaml:"config" toml:"config"`
}

// AssociationDef describes a blueprint association between two object api
// names, which may belong to different modules of the template.
type AssociationDef struct {
	APIName           string `yaml:"api_name" toml:"api_name"`
	Name              string `yaml:"name" toml:"name"`
	Source            string `yaml:"source" toml:"source"`
	Target            string `yaml:"target" toml:"target"`
	SourceCardinality string `yaml:"source_cardinality" toml:"source_cardinality"`
	TargetCardinality string `yaml:"target_cardinality" toml:"target_cardinality"`
	Bidirectional     bool   `yaml:"bidirectional" toml:"bidirectional"`
	Protection        string `yaml:"protection" toml:"protection"`
	DisplayOrder      *int   `yaml:"display_order" toml:"display_order"`
}

// DisplayName derives a human-readable name from an api name or slug:
// "_sales_order" becomes "Sales Order".
func DisplayName(apiName string) string {
	s := strings.Trim(apiName, "_- ")
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	// Casers are stateful; one per call keeps this safe for concurrent use.
	return cases.Title(language.English).String(s)
}

func orDefault(name, fallback string) string {
	if name != "" {
		return name
	}
	return DisplayName(fallback)
}

// order returns the explicit display order, or the entry's position.
func order(explicit *int, position int) int {
	if explicit != nil {
		return *explicit
	}
	return position
}

// ToModel converts the definition to a template tree ready to insert.
func (d *Definition) ToModel() *models.Template {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	t := &models.Template{
		Name:        orDefault(d.Name, d.Slug),
		Slug:        d.Slug,
		Description: d.Description,
		Icon:        d.Icon,
		IsActive:    active,
	}
	for i, md := range d.Modules {
		t.Modules = append(t.Modules, md.toModel(i))
	}
	return t
}

func (md ModuleDef) toModel(position int) models.Module {
	m := models.Module{
		Name:          orDefault(md.Name, md.Slug),
		Slug:          md.Slug,
		Description:   md.Description,
		IsCore:        md.Core,
		DependsOn:     md.DependsOn,
		ConflictsWith: md.ConflictsWith,
		DisplayOrder:  order(md.DisplayOrder, position),
	}
	for i, od := range md.Objects {
		bo := models.BlueprintObject{
			Name:         orDefault(od.Name, od.APIName),
			APIName:      od.APIName,
			Description:  od.Description,
			Icon:         od.Icon,
			Protection:   models.Protection(od.Protection),
			DisplayOrder: order(od.DisplayOrder, i),
		}
		for j, fd := range od.Fields {
			bo.Fields = append(bo.Fields, models.BlueprintField{
				Name:         orDefault(fd.Name, fd.APIName),
				APIName:      fd.APIName,
				FieldType:    fd.Type,
				Shape:        fd.Shape,
				ConfigShape:  fd.Config,
				IsRequired:   fd.Required,
				Protection:   models.Protection(fd.Protection),
				DisplayOrder: order(fd.DisplayOrder, j),
			})
		}
		m.BlueprintObjects = append(m.BlueprintObjects, bo)
	}
	for i, ad := range md.Associations {
		m.BlueprintAssociations = append(m.BlueprintAssociations, models.BlueprintAssociation{
			Name:                orDefault(ad.Name, ad.APIName),
			APIName:             ad.APIName,
			SourceObjectAPIName: ad.Source,
			TargetObjectAPIName: ad.Target,
			SourceCardinality:   models.Cardinality(strings.ToUpper(ad.SourceCardinality)),
			TargetCardinality:   models.Cardinality(strings.ToUpper(ad.TargetCardinality)),
			IsBidirectional:     ad.Bidirectional,
			Protection:          models.Protection(ad.Protection),
			DisplayOrder:        order(ad.DisplayOrder, i),
		})
	}
	return m
}
