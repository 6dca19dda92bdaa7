package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/store"
	"github.com/jrsteele09/go-tenant-server/workingset"
)

const durableWarning = "saved locally; durable sync failed"

type recordRequest struct {
	Attrs map[string]string `json:"attrs"`
}

type recordResponse struct {
	Record   workingset.Record `json:"record"`
	Warning  string            `json:"warning,omitempty"`
	Attempts int               `json:"attempts,omitempty"`
}

type listResponse struct {
	Records []workingset.Record `json:"records"`
}

// promotedColumns names attrs that have been promoted to real columns on
// their table. When a payload carries one, the column is ensured before the
// dependent write so new fields roll out without a deployment step.
var promotedColumns = map[workingset.Collection]map[string]store.ColumnSpec{
	workingset.StockItems: {
		"supplier_ref": {Name: "supplier_ref", Legacy: "supplier_id"},
	},
	workingset.NonConformances: {
		"corrective_action": {Name: "corrective_action"},
	},
}

func (s *Server) listRecordsHandler(c workingset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromContext(r.Context())
		set := s.deps.Registry.ForTenant(tenantID)
		writeJSON(w, http.StatusOK, listResponse{Records: set.List(c)})
	}
}

func (s *Server) getRecordHandler(c workingset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromContext(r.Context())
		set := s.deps.Registry.ForTenant(tenantID)

		record, ok := set.Find(c, r.PathValue("id"))
		if !ok {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, recordResponse{Record: record})
	}
}

func (s *Server) createRecordHandler(c workingset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		session := sessionFromContext(r.Context())
		tenantID := tenantIDFromContext(r.Context())

		record := workingset.Record{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			GroupID:   session.GroupID,
			Attrs:     req.Attrs,
			UpdatedAt: s.nowTime().UTC(),
		}

		// Optimistic local write first; durability is a side effect.
		set := s.deps.Registry.ForTenant(tenantID)
		set.Append(c, record)
		s.deps.Registry.MarkWritten(tenantID)

		s.respondAfterPersist(w, r, c, record, http.StatusCreated)
	}
}

func (s *Server) updateRecordHandler(c workingset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tenantID := tenantIDFromContext(r.Context())
		set := s.deps.Registry.ForTenant(tenantID)

		id := r.PathValue("id")
		existing, ok := set.Find(c, id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}

		updated := existing
		updated.Attrs = req.Attrs
		updated.UpdatedAt = s.nowTime().UTC()
		set.Replace(c, id, updated)
		s.deps.Registry.MarkWritten(tenantID)

		s.respondAfterPersist(w, r, c, updated, http.StatusOK)
	}
}

func (s *Server) deleteRecordHandler(c workingset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromContext(r.Context())
		set := s.deps.Registry.ForTenant(tenantID)

		id := r.PathValue("id")
		if !set.Remove(c, id) {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		s.deps.Registry.MarkWritten(tenantID)

		if tenantID == workingset.DemoTenantID {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		outcome := s.deps.Writer.Delete(r.Context(), c.Table(), id)
		if !outcome.Success {
			writeJSON(w, http.StatusOK, map[string]any{
				"warning":  durableWarning,
				"attempts": outcome.Attempts,
			})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// respondAfterPersist runs the durable side of a create/update: opportunistic
// schema evolution for promoted attrs, then the bounded-retry write. A failed
// durable write still reports overall success with a warning flag; the
// working set keeps the record either way.
func (s *Server) respondAfterPersist(w http.ResponseWriter, r *http.Request, c workingset.Collection, record workingset.Record, okStatus int) {
	// Demo tenant state is shared, in-memory only, never written back.
	if record.TenantID == workingset.DemoTenantID {
		writeJSON(w, okStatus, recordResponse{Record: record})
		return
	}

	row, err := record.Row()
	if err != nil {
		s.log.Error().Err(err).Str("collection", string(c)).Msg("record encode failed")
		writeJSON(w, okStatus, recordResponse{Record: record, Warning: durableWarning})
		return
	}

	var specs []store.ColumnSpec
	for attr, spec := range promotedColumns[c] {
		if value, ok := record.Attrs[attr]; ok {
			specs = append(specs, spec)
			row[spec.Name] = value
		}
	}
	if len(specs) > 0 {
		if err := s.deps.Evolver.EnsureColumns(r.Context(), c.Table(), specs); err != nil {
			// A structural migration failure is a hard failure: retrying the
			// dependent write blindly will not self-heal it.
			s.log.Error().Err(err).Str("table", c.Table()).Msg("schema evolution failed")
			writeJSONError(w, http.StatusInternalServerError, apperrors.ErrMigrationFailed.Error())
			return
		}
	}

	outcome := s.deps.Writer.Persist(r.Context(), c.Table(), row)
	response := recordResponse{Record: record, Attempts: outcome.Attempts}
	if !outcome.Success {
		response.Warning = durableWarning
	}
	writeJSON(w, okStatus, response)
}
