package workingset

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Collection names one of the fixed record collections in a tenant working
// set. Each collection maps to one durable table of the same name.
type Collection string

const (
	Suppliers       Collection = "suppliers"
	BOMLines        Collection = "bom_lines"
	StockItems      Collection = "stock_items"
	NonConformances Collection = "non_conformances"
)

// Collections lists every collection in hydration order.
var Collections = []Collection{Suppliers, BOMLines, StockItems, NonConformances}

// Table returns the durable table backing the collection.
func (c Collection) Table() string {
	return string(c)
}

// Record is a business record as the cache sees it: the id and tenant-scoping
// fields are typed because this core routes on them, everything the business
// layer cares about stays opaque in Attrs.
type Record struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	GroupID   string            `json:"group_id,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Row encodes the record for a durable upsert.
func (r Record) Row() (map[string]any, error) {
	attrs, err := json.Marshal(r.Attrs)
	if err != nil {
		return nil, errors.Wrap(err, "[Record.Row] marshal attrs")
	}
	return map[string]any{
		"id":         r.ID,
		"tenant_id":  r.TenantID,
		"group_id":   r.GroupID,
		"attrs":      string(attrs),
		"updated_at": r.UpdatedAt.UTC().UnixMilli(),
	}, nil
}
