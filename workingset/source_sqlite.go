package workingset

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tenant-server/store"
)

var _ Source = (*GatewaySource)(nil)

// GatewaySource loads collections through the durable store gateway. Reads
// are always filtered by tenant id; invited users carry a group id as a
// secondary scope, applied when present.
type GatewaySource struct {
	db *store.Gateway
}

func NewGatewaySource(db *store.Gateway) *GatewaySource {
	return &GatewaySource{db: db}
}

func (s *GatewaySource) LoadCollection(ctx context.Context, c Collection, tenantID, groupID string) ([]Record, error) {
	query := "SELECT id, tenant_id, group_id, attrs, updated_at FROM " + c.Table() + " WHERE tenant_id = ?"
	args := []any{tenantID}
	if groupID != "" {
		query += " AND (group_id = ? OR group_id = '')"
		args = append(args, groupID)
	}
	query += " ORDER BY updated_at, id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "[GatewaySource.LoadCollection] %s", c)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record    Record
			attrs     string
			updatedAt int64
		)
		if err := rows.Scan(&record.ID, &record.TenantID, &record.GroupID, &attrs, &updatedAt); err != nil {
			return nil, errors.Wrapf(err, "[GatewaySource.LoadCollection] scan %s", c)
		}
		if attrs != "" {
			if err := json.Unmarshal([]byte(attrs), &record.Attrs); err != nil {
				return nil, errors.Wrapf(err, "[GatewaySource.LoadCollection] decode attrs %s/%s", c, record.ID)
			}
		}
		record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "[GatewaySource.LoadCollection] rows %s", c)
	}
	return records, nil
}
