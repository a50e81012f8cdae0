// Package api exposes stored lattices over HTTP: listing, import,
// element tables, survey statistics and the synoptic chart.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tomerten/latticeconstructor/internal/latticedb"
	"github.com/tomerten/latticeconstructor/internal/monitor"
	"github.com/tomerten/latticeconstructor/lattice"
	"github.com/tomerten/latticeconstructor/parse"
)

// maxImportBytes bounds the accepted lattice file size.
const maxImportBytes = 8 << 20

type Server struct {
	store *latticedb.Store
}

func NewServer(store *latticedb.Store) *Server {
	return &Server{store: store}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/lattices", s.listLattices)
	mux.HandleFunc("/lattices/", s.latticeSubresource)
	mux.HandleFunc("/import", s.importLattice)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("latticeconstructor API\n"))
}

func (s *Server) listLattices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metas, err := s.store.ListLattices()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list lattices: %v", err))
		return
	}
	if metas == nil {
		metas = []latticedb.Meta{}
	}
	writeJSON(w, metas)
}

// latticeSubresource routes /lattices/{id}/(table|survey|synoptic) and
// DELETE /lattices/{id}.
func (s *Server) latticeSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/lattices/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if sub == "" && r.Method == http.MethodDelete {
		if err := s.store.DeleteLattice(id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	b, meta, err := s.store.GetLattice(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	switch sub {
	case "":
		writeJSON(w, meta)
	case "table":
		table, err := b.BuildTable()
		if err != nil {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, table)
	case "survey":
		table, err := b.BuildTable()
		if err != nil {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		survey, err := table.Survey()
		if err != nil {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, survey)
	case "synoptic":
		table, err := b.BuildTable()
		if err != nil {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := monitor.RenderSynoptic(w, table); err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		}
	default:
		http.NotFound(w, r)
	}
}

// importLattice accepts a lattice file in the request body. Query
// parameters: format (lte|madx, required), name (optional override),
// file (optional source filename recorded in metadata).
func (s *Server) importLattice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSONError(w, http.StatusBadRequest, "missing format query parameter (lte or madx)")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}

	res, err := parse.String(string(body), format)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("parse failed: %v", err))
		return
	}

	b := lattice.NewBuilder()
	if err := res.Apply(b); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("load failed: %v", err))
		return
	}
	table, err := b.BuildTable()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = b.Name()
	}
	id, err := s.store.SaveLattice(b, latticedb.Meta{
		Name:         name,
		SourceFormat: format,
		SourceFile:   r.URL.Query().Get("file"),
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store lattice: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"lattice_id": id,
		"name":       name,
		"elements":   len(table.Rows),
		"length":     table.Length(),
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, latticedb.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
