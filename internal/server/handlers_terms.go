package server

import (
	"net/http"

	"github.com/bobmcallan/medterms/internal/auth"
	"github.com/bobmcallan/medterms/internal/models"
	"github.com/bobmcallan/medterms/internal/services/glossary"
)

// termDetail is the response for a single term page.
type termDetail struct {
	Term    *models.Term         `json:"term"`
	Blocks  []models.Block       `json:"blocks"`
	HTML    string               `json:"html"`
	Related []models.RelatedTerm `json:"related"`
	Form    models.TermInput     `json:"form"`
}

// requireAdmin writes 401 and returns false unless the request carries the
// admin credential, or 429 when authorized writes exceed the rate limit.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.app.AuthPolicy == nil || !s.app.AuthPolicy.Authorize(r.Header.Get(auth.HeaderName)) {
		s.logger.Info().Str("path", r.URL.Path).Str("method", r.Method).Msg("Rejected unauthorized write")
		WriteErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", string(models.KindAuthorization))
		return false
	}
	// Only authorized writes spend tokens.
	return s.writes.Allow(w)
}

// handleTermList handles GET /api/terms.
func (s *Server) handleTermList(w http.ResponseWriter, r *http.Request) {
	terms, err := s.app.GlossaryService.ListTerms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, map[string]interface{}{"terms": terms})
}

// handleTermCreate handles POST /api/terms.
func (s *Server) handleTermCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var input models.TermInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	term, err := s.app.GlossaryService.CreateTerm(r.Context(), input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"term": term})
}

// handleTermGet handles GET /api/terms/{slug}.
func (s *Server) handleTermGet(w http.ResponseWriter, r *http.Request, slug string) {
	ctx := r.Context()

	term, err := s.app.GlossaryService.FindBySlug(ctx, slug)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if term == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "Term not found.", string(models.KindNotFound))
		return
	}

	related, err := s.app.GlossaryService.ResolveRelated(ctx, term)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if related == nil {
		related = []models.RelatedTerm{}
	}

	blocks := glossary.RenderExplanation(term.Explanation)
	if blocks == nil {
		blocks = []models.Block{}
	}

	WriteJSON(w, http.StatusOK, termDetail{
		Term:    term,
		Blocks:  blocks,
		HTML:    glossary.RenderHTML(blocks),
		Related: related,
		Form:    glossary.FormFields(term),
	})
}

// handleTermUpdate handles PUT /api/terms/{slug}.
func (s *Server) handleTermUpdate(w http.ResponseWriter, r *http.Request, slug string) {
	if !s.requireAdmin(w, r) {
		return
	}

	var input models.TermInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	term, err := s.app.GlossaryService.UpdateTerm(r.Context(), slug, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"term": term})
}
