// Package schema implements the schema registry (spec.md §4.1): the table
// of known tables/views, keyed by canonical name, that table references
// resolve against. Entries arrive two ways — "imported" from the caller's
// SchemaMetadata before analysis starts, and "implied" by the analyzer the
// first time it sees a reference to a name the caller never declared (and
// CREATE TABLE/VIEW statements within the batch).
package schema

import (
	"fmt"
	"strings"

	"github.com/pondpilot/flowscope/internal/helpers"
	"github.com/pondpilot/flowscope/model"
)

// Entry is one table/view known to the registry.
type Entry struct {
	Catalog            string
	Schema             string
	Name               string
	Canonical          string
	Origin             model.ResolutionSource
	Columns            []model.ColumnSchema
	Temporary          bool
	SourceStatementIdx *int
}

// Registry resolves table references to Entry values, applying the batch's
// default catalog/schema, search path and case-sensitivity policy.
type Registry struct {
	defaultCatalog  string
	defaultSchema   string
	searchPath      []model.SearchPathEntry
	caseSensitivity model.CaseSensitivity
	allowImplied    bool

	byCanonical map[string]*Entry
	order       []string // insertion order, for deterministic iteration

	hadImportedTables bool
}

// HadImportedTables reports whether the caller supplied any schema tables
// at all. When false, the batch has no schema metadata to validate
// against, so an unresolved reference should not be flagged as suspicious
// — everything is equally "unknown", which is the expected common case.
func (r *Registry) HadImportedTables() bool { return r.hadImportedTables }

// New builds a Registry from caller-supplied SchemaMetadata. A nil meta
// yields an empty registry that implies everything it sees (spec.md §4.1:
// "absent schema metadata means every reference is implied").
func New(meta *model.SchemaMetadata) *Registry {
	r := &Registry{
		caseSensitivity: model.CasePreserve,
		allowImplied:    true,
		byCanonical:     make(map[string]*Entry),
	}
	if meta == nil {
		return r
	}
	if meta.DefaultCatalog != nil {
		r.defaultCatalog = *meta.DefaultCatalog
	}
	if meta.DefaultSchema != nil {
		r.defaultSchema = *meta.DefaultSchema
	}
	r.searchPath = meta.SearchPath
	if meta.CaseSensitivity != "" {
		r.caseSensitivity = meta.CaseSensitivity
	}
	r.allowImplied = meta.AllowImplied
	r.hadImportedTables = len(meta.Tables) > 0
	for _, t := range meta.Tables {
		catalog := ""
		if t.Catalog != nil {
			catalog = *t.Catalog
		}
		sch := ""
		if t.Schema != nil {
			sch = *t.Schema
		} else {
			sch = r.defaultSchema
		}
		r.registerImported(catalog, sch, t.Name, t.Columns)
	}
	return r
}

// AllowImplied reports whether unresolved references may synthesize an
// implied entry, or must instead resolve as UnresolvedReference.
func (r *Registry) AllowImplied() bool { return r.allowImplied }

// NormalizeIdentifier applies the registry's case-sensitivity policy.
func (r *Registry) NormalizeIdentifier(name string) string {
	return helpers.NormalizeIdentifier(name, r.caseSensitivity)
}

func (r *Registry) canonicalize(catalog, sch, name string) string {
	c := r.NormalizeIdentifier(catalog)
	s := r.NormalizeIdentifier(sch)
	n := r.NormalizeIdentifier(name)
	return helpers.QualifiedName(c, s, n)
}

func (r *Registry) registerImported(catalog, sch, name string, columns []model.ColumnSchema) *Entry {
	canonical := r.canonicalize(catalog, sch, name)
	e := &Entry{
		Catalog:   catalog,
		Schema:    sch,
		Name:      name,
		Canonical: canonical,
		Origin:    model.ResolutionImported,
		Columns:   columns,
	}
	r.put(canonical, e)
	return e
}

func (r *Registry) put(canonical string, e *Entry) {
	if _, exists := r.byCanonical[canonical]; !exists {
		r.order = append(r.order, canonical)
	}
	r.byCanonical[canonical] = e
}

// CanonicalizeTableReference resolves a possibly-qualified table reference
// (`name`, `schema.name`, or `catalog.schema.name`) against the default
// schema/catalog, returning the canonical key used to look the entry up.
// The search path is not consulted here; Resolve does that.
//
// parts has length 1, 2, or 3 (name; schema.name; catalog.schema.name).
func (r *Registry) CanonicalizeTableReference(parts []string) string {
	switch len(parts) {
	case 1:
		return r.canonicalize(r.defaultCatalog, r.defaultSchema, parts[0])
	case 2:
		return r.canonicalize(r.defaultCatalog, parts[0], parts[1])
	default:
		return r.canonicalize(parts[0], parts[1], parts[2])
	}
}

// Resolve looks up a (possibly unqualified) table reference, trying the
// default schema first and then each search-path entry in order. It
// returns nil if nothing imported or previously implied matches.
func (r *Registry) Resolve(parts []string) *Entry {
	if len(parts) != 1 {
		canonical := r.CanonicalizeTableReference(parts)
		return r.byCanonical[canonical]
	}
	name := parts[0]
	if e := r.byCanonical[r.canonicalize(r.defaultCatalog, r.defaultSchema, name)]; e != nil {
		return e
	}
	for _, sp := range r.searchPath {
		catalog := r.defaultCatalog
		if sp.Catalog != nil {
			catalog = *sp.Catalog
		}
		if e := r.byCanonical[r.canonicalize(catalog, sp.Schema, name)]; e != nil {
			return e
		}
	}
	return nil
}

// RegisterImplied synthesizes an Entry the first time a reference to parts
// is seen with no prior match, recording sourceStatementIdx. If an entry
// with the same canonical key already exists (imported or previously
// implied), it is returned unchanged.
func (r *Registry) RegisterImplied(parts []string, statementIdx int) *Entry {
	canonical := r.CanonicalizeTableReference(parts)
	if e, ok := r.byCanonical[canonical]; ok {
		return e
	}
	catalog, sch, name := r.splitParts(parts)
	idx := statementIdx
	e := &Entry{
		Catalog:            catalog,
		Schema:             sch,
		Name:               name,
		Canonical:          canonical,
		Origin:             model.ResolutionImplied,
		SourceStatementIdx: &idx,
	}
	r.put(canonical, e)
	return e
}

// RegisterCreatedTable records a table/view created within the batch
// (CREATE TABLE / CREATE VIEW / CREATE TABLE AS). Created relations are
// always registered as Implied: they did not come from caller-supplied
// schema metadata, even though they are now known with certainty.
func (r *Registry) RegisterCreatedTable(name string, columns []model.ColumnSchema, temporary bool, statementIdx int) *Entry {
	canonical := r.canonicalize(r.defaultCatalog, r.defaultSchema, name)
	idx := statementIdx
	e := &Entry{
		Catalog:            r.defaultCatalog,
		Schema:             r.defaultSchema,
		Name:               name,
		Canonical:          canonical,
		Origin:             model.ResolutionImplied,
		Columns:            columns,
		Temporary:          temporary,
		SourceStatementIdx: &idx,
	}
	r.put(canonical, e)
	return e
}

// Remove deletes an implied entry by canonical name; imported entries are
// never removed (DROP TABLE on an imported table only removes the
// analyzer's bookkeeping of it, never the caller's declared schema —
// spec.md §4.6 DROP semantics).
func (r *Registry) Remove(parts []string) {
	canonical := r.CanonicalizeTableReference(parts)
	e, ok := r.byCanonical[canonical]
	if !ok || e.Origin != model.ResolutionImplied {
		return
	}
	delete(r.byCanonical, canonical)
	for i, c := range r.order {
		if c == canonical {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) splitParts(parts []string) (catalog, sch, name string) {
	switch len(parts) {
	case 1:
		return r.defaultCatalog, r.defaultSchema, parts[0]
	case 2:
		return r.defaultCatalog, parts[0], parts[1]
	default:
		return parts[0], parts[1], parts[2]
	}
}

// Snapshot returns every currently-registered entry as a
// model.ResolvedSchemaEntry, in insertion order, matching spec.md §6's
// "resolved_schema" output.
func (r *Registry) Snapshot() []model.ResolvedSchemaEntry {
	out := make([]model.ResolvedSchemaEntry, 0, len(r.order))
	for _, canonical := range r.order {
		e := r.byCanonical[canonical]
		entry := model.ResolvedSchemaEntry{
			Name:               e.Name,
			Canonical:          e.Canonical,
			Origin:             e.Origin,
			Columns:            e.Columns,
			Temporary:          e.Temporary,
			SourceStatementIdx: e.SourceStatementIdx,
		}
		if e.Catalog != "" {
			c := e.Catalog
			entry.Catalog = &c
		}
		if e.Schema != "" {
			s := e.Schema
			entry.Schema = &s
		}
		out = append(out, entry)
	}
	return out
}

// String renders an Entry for debugging/log output.
func (e *Entry) String() string {
	return fmt.Sprintf("%s(%s)", e.Canonical, e.Origin)
}

// ParseQualifiedName splits a dotted reference like "db.schema.table" into
// its parts. Empty segments (from a stray leading/trailing dot) are
// dropped, matching how callers already split identifiers before reaching
// the registry.
func ParseQualifiedName(ref string) []string {
	raw := strings.Split(ref, ".")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
