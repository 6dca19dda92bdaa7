package workingset

import "time"

// SeedDemo populates the shared demo tenant's working set with sample
// records. Called once at startup; the demo set is never hydrated from the
// durable store and never written back.
func SeedDemo(r *Registry) {
	set := r.ForTenant(DemoTenantID)
	if set.Len(Suppliers) > 0 {
		return // already seeded
	}

	seededAt := time.Now().UTC()
	demo := func(c Collection, id string, attrs map[string]string) {
		set.Append(c, Record{
			ID:        id,
			TenantID:  DemoTenantID,
			Attrs:     attrs,
			UpdatedAt: seededAt,
		})
	}

	demo(Suppliers, "demo-sup-1", map[string]string{"name": "Acme Fasteners", "rating": "A"})
	demo(Suppliers, "demo-sup-2", map[string]string{"name": "Globex Metals", "rating": "B"})
	demo(StockItems, "demo-stk-1", map[string]string{"sku": "BOLT-M8", "qty": "1200", "location": "A-01"})
	demo(StockItems, "demo-stk-2", map[string]string{"sku": "PLATE-3MM", "qty": "80", "location": "B-04"})
	demo(BOMLines, "demo-bom-1", map[string]string{"assembly": "BRACKET-KIT", "component": "BOLT-M8", "qty": "4"})
	demo(NonConformances, "demo-nc-1", map[string]string{"ref": "NC-0001", "severity": "minor", "status": "open"})
}
