package schema

import (
	"testing"

	"github.com/pondpilot/flowscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestRegistryResolveImported(t *testing.T) {
	r := New(&model.SchemaMetadata{
		DefaultSchema: strp("public"),
		AllowImplied:  true,
		Tables: []model.SchemaTable{
			{Name: "orders", Columns: []model.ColumnSchema{{Name: "id"}, {Name: "customer_id"}}},
		},
	})
	e := r.Resolve([]string{"orders"})
	require.NotNil(t, e)
	assert.Equal(t, model.ResolutionImported, e.Origin)
	assert.Equal(t, "public.orders", e.Canonical)
}

func TestRegistryImpliedOnMiss(t *testing.T) {
	r := New(&model.SchemaMetadata{AllowImplied: true})
	assert.Nil(t, r.Resolve([]string{"mystery"}))
	e := r.RegisterImplied([]string{"mystery"}, 0)
	assert.Equal(t, model.ResolutionImplied, e.Origin)
	// second reference resolves to the same entry, not a new one
	again := r.RegisterImplied([]string{"mystery"}, 1)
	assert.Same(t, e, again)
}

func TestRegistryCaseSensitivity(t *testing.T) {
	r := New(&model.SchemaMetadata{
		CaseSensitivity: model.CaseLower,
		Tables:          []model.SchemaTable{{Name: "Orders"}},
	})
	e := r.Resolve([]string{"ORDERS"})
	require.NotNil(t, e)
}

func TestRegistryRemoveOnlyDropsImplied(t *testing.T) {
	r := New(&model.SchemaMetadata{
		AllowImplied: true,
		Tables:       []model.SchemaTable{{Name: "orders"}},
	})
	r.Remove([]string{"orders"})
	assert.NotNil(t, r.Resolve([]string{"orders"}), "imported entries survive DROP")

	r.RegisterImplied([]string{"temp_scratch"}, 0)
	r.Remove([]string{"temp_scratch"})
	assert.Nil(t, r.Resolve([]string{"temp_scratch"}))
}

func TestRegistrySearchPath(t *testing.T) {
	r := New(&model.SchemaMetadata{
		DefaultSchema: strp("app"),
		SearchPath:    []model.SearchPathEntry{{Schema: "shared"}},
		Tables: []model.SchemaTable{
			{Schema: strp("shared"), Name: "lookup"},
		},
	})
	e := r.Resolve([]string{"lookup"})
	require.NotNil(t, e)
	assert.Equal(t, "shared.lookup", e.Canonical)
}

func TestParseQualifiedName(t *testing.T) {
	assert.Equal(t, []string{"db", "sch", "tbl"}, ParseQualifiedName("db.sch.tbl"))
	assert.Equal(t, []string{"tbl"}, ParseQualifiedName("tbl"))
}
