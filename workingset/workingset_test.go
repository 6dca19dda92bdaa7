package workingset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tenant-server/workingset"
)

func supplier(id, tenantID, name string) workingset.Record {
	return workingset.Record{
		ID:       id,
		TenantID: tenantID,
		Attrs:    map[string]string{"name": name},
	}
}

func TestAppendFindReplaceRemove(t *testing.T) {
	registry := workingset.NewRegistry()
	set := registry.ForTenant("tenant-a")

	set.Append(workingset.Suppliers, supplier("sup-1", "tenant-a", "Acme"))
	set.Append(workingset.Suppliers, supplier("sup-2", "tenant-a", "Globex"))

	found, ok := set.Find(workingset.Suppliers, "sup-1")
	require.True(t, ok)
	require.Equal(t, "Acme", found.Attrs["name"])

	ok = set.Replace(workingset.Suppliers, "sup-1", supplier("sup-1", "tenant-a", "Acme Ltd"))
	require.True(t, ok)
	found, _ = set.Find(workingset.Suppliers, "sup-1")
	require.Equal(t, "Acme Ltd", found.Attrs["name"])

	require.False(t, set.Replace(workingset.Suppliers, "missing", supplier("missing", "tenant-a", "x")))

	require.True(t, set.Remove(workingset.Suppliers, "sup-1"))
	require.False(t, set.Remove(workingset.Suppliers, "sup-1"))
	require.Equal(t, 1, set.Len(workingset.Suppliers))
}

func TestListPreservesOrderAndCopies(t *testing.T) {
	registry := workingset.NewRegistry()
	set := registry.ForTenant("tenant-a")

	set.Append(workingset.Suppliers, supplier("sup-1", "tenant-a", "Acme"))
	set.Append(workingset.Suppliers, supplier("sup-2", "tenant-a", "Globex"))

	list := set.List(workingset.Suppliers)
	require.Equal(t, []string{"sup-1", "sup-2"}, []string{list[0].ID, list[1].ID})

	// Mutating the returned slice must not touch the working set.
	list[0].ID = "tampered"
	found, ok := set.Find(workingset.Suppliers, "sup-1")
	require.True(t, ok)
	require.Equal(t, "sup-1", found.ID)
}

func TestTenantIsolation(t *testing.T) {
	registry := workingset.NewRegistry()

	setA := registry.ForTenant("tenant-a")
	setB := registry.ForTenant("tenant-b")

	setA.Append(workingset.Suppliers, supplier("sup-1", "tenant-a", "Acme"))

	_, ok := setB.Find(workingset.Suppliers, "sup-1")
	require.False(t, ok)
	require.Empty(t, setB.List(workingset.Suppliers))
	require.Equal(t, 1, setA.Len(workingset.Suppliers))
}

func TestForTenantCreatesSkeletonOnce(t *testing.T) {
	registry := workingset.NewRegistry()

	set1 := registry.ForTenant("tenant-a")
	set1.Append(workingset.Suppliers, supplier("sup-1", "tenant-a", "Acme"))

	set2 := registry.ForTenant("tenant-a")
	require.Equal(t, 1, set2.Len(workingset.Suppliers))
	require.Equal(t, 1, registry.Len())
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	registry := workingset.NewRegistry()

	workingset.SeedDemo(registry)
	seeded := registry.ForTenant(workingset.DemoTenantID).Len(workingset.Suppliers)
	require.Greater(t, seeded, 0)

	workingset.SeedDemo(registry)
	require.Equal(t, seeded, registry.ForTenant(workingset.DemoTenantID).Len(workingset.Suppliers))
}

func TestRecordRowEncodesAttrs(t *testing.T) {
	record := supplier("sup-1", "tenant-a", "Acme")

	row, err := record.Row()
	require.NoError(t, err)
	require.Equal(t, "sup-1", row["id"])
	require.Equal(t, "tenant-a", row["tenant_id"])
	require.JSONEq(t, `{"name":"Acme"}`, row["attrs"].(string))
}
