package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-tenant-server/workingset"
)

// resourcePaths maps URL resources to working-set collections.
var resourcePaths = map[string]workingset.Collection{
	"suppliers": workingset.Suppliers,
	"bom":       workingset.BOMLines,
	"stock":     workingset.StockItems,
	"quality":   workingset.NonConformances,
}

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	authed := s.APIMiddleware(s.RequireSession())

	s.RegisterRouteFunc("POST /auth/register", ChainMiddleware(s.registerHandler, api...))
	s.RegisterRouteFunc("POST /auth/login", ChainMiddleware(s.loginHandler, api...))
	s.RegisterRouteFunc("POST /auth/logout", ChainMiddleware(s.logoutHandler, api...))

	for path, collection := range resourcePaths {
		s.RegisterRouteFunc("GET /api/"+path, ChainMiddleware(s.listRecordsHandler(collection), authed...))
		s.RegisterRouteFunc("GET /api/"+path+"/{id}", ChainMiddleware(s.getRecordHandler(collection), authed...))
		s.RegisterRouteFunc("POST /api/"+path, ChainMiddleware(s.createRecordHandler(collection), authed...))
		s.RegisterRouteFunc("PUT /api/"+path+"/{id}", ChainMiddleware(s.updateRecordHandler(collection), authed...))
		s.RegisterRouteFunc("DELETE /api/"+path+"/{id}", ChainMiddleware(s.deleteRecordHandler(collection), authed...))
	}

	s.RegisterRouteFunc("GET /healthz", s.healthHandler)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
