package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/ledger"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
)

// collection resolves the {collection} wildcard. Unknown names are 404 so
// that /api/anything behaves like a missing route.
func collection(r *http.Request) (ledger.Collection, error) {
	c := ledger.Collection(r.PathValue("collection"))
	if !c.Valid() {
		return "", fmt.Errorf("%w: collection %q", common.ErrNotFound, c)
	}
	return c, nil
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	c, err := collection(r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	recs, err := s.records.List(r.Context(), userID, c, q)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	c, err := collection(r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	out, err := s.records.Create(r.Context(), userID, c, body)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeRaw(w, http.StatusCreated, out)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	c, err := collection(r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	out, err := s.records.Update(r.Context(), userID, c, r.PathValue("id"), body)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeRaw(w, http.StatusOK, out)
}

// archiveRecord soft-deletes; any body the client sends is ignored.
func (s *Server) archiveRecord(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	c, err := collection(r)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	out, err := s.records.Archive(r.Context(), userID, c, r.PathValue("id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeRaw(w, http.StatusOK, out)
}

// parseQuery reads from, to (YYYY-MM-DD) and all (include archived).
func parseQuery(r *http.Request) (models.RecordQuery, error) {
	v := r.URL.Query()
	q := models.RecordQuery{From: v.Get("from"), To: v.Get("to")}

	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(ledger.DateLayout, d); err != nil {
			return q, fmt.Errorf("%w: bad date %q", common.ErrValidation, d)
		}
	}
	if all := v.Get("all"); all != "" {
		b, err := strconv.ParseBool(all)
		if err != nil {
			return q, fmt.Errorf("%w: bad all flag %q", common.ErrValidation, all)
		}
		q.IncludeArchived = b
	}
	return q, nil
}
