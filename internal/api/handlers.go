package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/roach88/liftlog/internal/logstore"
	"github.com/roach88/liftlog/internal/record"
)

type updateRequest struct {
	Original record.LogRecord `json:"original"`
	Updated  record.LogRecord `json:"updated"`
}

type renameRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type columnRequest struct {
	Name string `json:"name"`
}

// decodeBody reads a JSON body into v, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, r, fmt.Errorf("decode body: %w", err), http.StatusBadRequest, codeBadRequest)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  s.store.CacheStats(),
	})
}

// parseFilter builds filter criteria from query parameters. It returns nil
// when no filter parameter is present.
func parseFilter(r *http.Request) (*logstore.FilterCriteria, error) {
	q := r.URL.Query()
	c := &logstore.FilterCriteria{
		Exercise: q.Get("exercise"),
		Workout:  q.Get("workout"),
	}
	if v := q.Get("exact"); v != "" {
		exact, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("exact: %w", err)
		}
		c.ExactMatch = exact
	}
	for _, v := range q["protocol"] {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			proto := record.Protocol(p)
			if !proto.Valid() {
				return nil, fmt.Errorf("unknown protocol %q", p)
			}
			c.Protocols = append(c.Protocols, proto)
		}
	}
	if c.Exercise == "" && c.Workout == "" && len(c.Protocols) == 0 {
		return nil, nil
	}
	return c, nil
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest, codeBadRequest)
		return
	}
	recs, err := s.store.GetLogData(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var entry record.LogRecord
	if !s.decodeBody(w, r, &entry) {
		return
	}
	stored, err := s.store.AddEntry(r.Context(), entry)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.store.UpdateEntry(r.Context(), req.Original, req.Updated); err != nil {
		respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	var rec record.LogRecord
	if !s.decodeBody(w, r, &rec) {
		return
	}
	if err := s.store.DeleteEntry(r.Context(), rec); err != nil {
		respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.Exercises(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleLastEntry(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		respondError(w, r, fmt.Errorf("name is required"), http.StatusBadRequest, codeBadRequest)
		return
	}
	rec, ok, err := s.store.LastEntryForExercise(r.Context(), name)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %s", errNoEntry, name), http.StatusNotFound, codeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	n, err := s.store.RenameExercise(r.Context(), req.Old, req.New)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	var (
		cols []string
		err  error
	)
	if custom, _ := strconv.ParseBool(r.URL.Query().Get("custom")); custom {
		cols, err = s.store.CustomColumns(r.Context())
	} else {
		cols, err = s.store.Columns(r.Context())
	}
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if cols == nil {
		cols = []string{}
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.store.EnsureColumnExists(r.Context(), req.Name); err != nil {
		respondStoreError(w, r, err)
		return
	}
	cols, err := s.store.Columns(r.Context())
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.store.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
