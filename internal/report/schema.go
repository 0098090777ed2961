package report

import (
	"fmt"
	"strings"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

// FieldKind is the logical type of a schema field, used to validate
// and coerce filter values.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// Field is one scalar column of an entity.
type Field struct {
	Name   string
	Column string
	Kind   FieldKind
	// Hidden fields exist in storage but are never resolvable or
	// listed, e.g. password hashes.
	Hidden bool
}

// Relation is a to-one edge to another entity, traversable in
// dot-paths and realized as a LEFT JOIN.
type Relation struct {
	Name          string
	Target        string
	LocalColumn   string
	ForeignColumn string
	// TargetEntity is linked by NewRegistry.
	TargetEntity *Entity
}

// Entity describes one reportable entity.
type Entity struct {
	Name  string
	Table string
	// SoftDelete marks tables carrying an is_deleted flag; deleted
	// rows are always excluded.
	SoftDelete bool
	Fields     []Field
	Relations  []Relation
	// DefaultColumns render when the request names none.
	DefaultColumns []string
	// AvailableColumns is the allow-list offered by the catalog. A
	// path outside it resolves but is not advertised.
	AvailableColumns []string
	DefaultSort      []SortClause
	// HasAnswers enables dynamic answers.* column expansion.
	HasAnswers bool
}

// HasField reports whether the entity declares a visible field.
func (e *Entity) HasField(name string) bool {
	for i := range e.Fields {
		if e.Fields[i].Name == name && !e.Fields[i].Hidden {
			return true
		}
	}
	return false
}

func (e *Entity) field(name string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name && !e.Fields[i].Hidden {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

func (e *Entity) relation(name string) (*Relation, bool) {
	for i := range e.Relations {
		if e.Relations[i].Name == name {
			return &e.Relations[i], true
		}
	}
	return nil, false
}

// ResolvedField is the result of walking a dot-path through the
// schema graph.
type ResolvedField struct {
	Path string
	// Hops holds the relations traversed before the terminal field,
	// in order.
	Hops  []*Relation
	Field *Field
	// Entity owning the terminal field.
	Entity *Entity
}

// Registry holds every reportable entity schema.
type Registry struct {
	entities map[string]*Entity
	order    []string
}

// NewRegistry builds a registry from entity schemas, preserving the
// given order for "all" expansion.
func NewRegistry(entities ...*Entity) *Registry {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		r.entities[e.Name] = e
		r.order = append(r.order, e.Name)
	}
	for _, e := range entities {
		for i := range e.Relations {
			e.Relations[i].TargetEntity = r.entities[e.Relations[i].Target]
		}
	}
	return r
}

// Entity looks up a schema by name.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Names lists registered entity names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// AnswersPrefix marks dynamic answer columns in requested paths.
const AnswersPrefix = "answers."

// Resolve walks a dot-path from the given entity. Every segment
// before the last must name a to-one relation; the last must name a
// visible field. Dynamic answers.* paths resolve only on
// answer-bearing entities.
func (r *Registry) Resolve(entity *Entity, path string) (*ResolvedField, error) {
	if strings.HasPrefix(path, AnswersPrefix) {
		if !entity.HasAnswers {
			return nil, appErrors.Detail(appErrors.ErrUnknownField,
				fmt.Errorf("%s does not carry submitted answers", entity.Name))
		}
		if strings.TrimPrefix(path, AnswersPrefix) == "" {
			return nil, appErrors.Detail(appErrors.ErrUnknownField,
				fmt.Errorf("empty answer column in %q", path))
		}
		return &ResolvedField{Path: path, Entity: entity}, nil
	}

	segments := strings.Split(path, ".")
	current := entity
	var hops []*Relation
	for i, seg := range segments {
		last := i == len(segments)-1
		if last {
			f, ok := current.field(seg)
			if !ok {
				if _, isRel := current.relation(seg); isRel {
					return nil, appErrors.Detail(appErrors.ErrUnknownField,
						fmt.Errorf("path %q ends on relation %q, not a scalar field", path, seg))
				}
				return nil, unknownField(entity.Name, path, seg)
			}
			return &ResolvedField{Path: path, Hops: hops, Field: f, Entity: current}, nil
		}
		rel, ok := current.relation(seg)
		if !ok {
			return nil, unknownField(entity.Name, path, seg)
		}
		next, ok := r.entities[rel.Target]
		if !ok {
			return nil, fmt.Errorf("relation %s.%s targets unregistered entity %s",
				current.Name, rel.Name, rel.Target)
		}
		hops = append(hops, rel)
		current = next
	}
	return nil, unknownField(entity.Name, path, path)
}

func unknownField(entity, path, segment string) error {
	return appErrors.Detail(appErrors.ErrUnknownField,
		fmt.Errorf("%s has no field or relation %q in path %q", entity, segment, path))
}
