package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/services/glossary"
	"github.com/bobmcallan/medterms/internal/storage"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Terms
	mux.HandleFunc("/api/terms/", s.routeTerms)
	mux.HandleFunc("/api/terms", s.routeTermsRoot)

	// Browsing
	mux.HandleFunc("/api/browse/", s.handleBrowse)
	mux.HandleFunc("/api/letters", s.handleLetters)
	mux.HandleFunc("/api/search", s.handleSearch)

	// Uploads
	mux.HandleFunc("/api/uploads", s.handleUpload)

	images := s.app.Config.Storage.Images
	if base := strings.Trim(images.URLPrefix, "/"); base != "" && (images.Backend == "" || images.Backend == storage.BackendFile) {
		prefix := "/" + base + "/"
		mux.Handle(prefix, staticFiles(prefix, images.Path))
	}
}

// staticFiles serves uploaded images without directory listings.
func staticFiles(prefix, dir string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}

// routeTermsRoot dispatches /api/terms by method.
func (s *Server) routeTermsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleTermList(w, r)
	case http.MethodPost:
		s.handleTermCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPost)
	}
}

// routeTerms dispatches /api/terms/{slug} by method.
func (s *Server) routeTerms(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(r, "/api/terms/")
	if !ok {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if slug == "" {
		s.routeTermsRoot(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleTermGet(w, r, slug)
	case http.MethodPut:
		s.handleTermUpdate(w, r, slug)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodHead, http.MethodPut)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// handleBrowse handles GET /api/browse/{letter}.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	raw, ok := PathParam(r, "/api/browse/")
	if !ok {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	letter := strings.ToLower(glossary.FirstLetter(raw))
	terms, err := s.app.GlossaryService.FindByLetter(r.Context(), letter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"letter": letter,
		"terms":  terms,
	})
}

// handleLetters handles GET /api/letters.
func (s *Server) handleLetters(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	index, err := s.app.GlossaryService.LetterIndex(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"letters": index})
}

// handleSearch handles GET /api/search?q=&limit=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	q := r.URL.Query().Get("q")

	limit := glossary.DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteErrorWithCode(w, http.StatusBadRequest, "limit must be a positive integer", "validation")
			return
		}
		limit = n
	}

	terms, err := s.app.GlossaryService.Search(r.Context(), q, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query": q,
		"terms": terms,
	})
}
