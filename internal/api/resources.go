package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/langdocs/pkg/foundation"
)

// respond writes the value of opt, 404 when it is None and 500 when the
// artifact could not be read.
func respond[T any](s *Server, w http.ResponseWriter, r *http.Request, opt foundation.Option[T], err error, what string) {
	if err != nil {
		s.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	v, ok := opt.Get()
	if !ok {
		s.Error(w, r, http.StatusNotFound, what+" not found")
		return
	}
	s.Success(w, http.StatusOK, v)
}

func (s *Server) handleSupported(w http.ResponseWriter, r *http.Request) {
	m, err := s.resolver.Supported()
	if err != nil {
		s.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.Success(w, http.StatusOK, m)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.resolver.Languages()
	if err != nil {
		s.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.Success(w, http.StatusOK, langs)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	lang := r.URL.Query().Get("lang")
	if path == "" || lang == "" {
		s.Error(w, r, http.StatusBadRequest, "path and lang are required")
		return
	}
	res, err := s.resolver.Resolve(path, lang)
	if err != nil {
		s.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.Success(w, http.StatusOK, res)
}

// handleDoc serves any rendered page: /docs/en/api, /docs/en/guides/intro.
func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := s.resolver.Doc(chi.URLParam(r, "lang"), chi.URLParam(r, "*"))
	respond(s, w, r, doc, err, "page")
}

func (s *Server) handleGuides(w http.ResponseWriter, r *http.Request) {
	entries, err := s.resolver.Guides(chi.URLParam(r, "lang"))
	respond(s, w, r, entries, err, "guide directory")
}

func (s *Server) handleTutorialDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := s.resolver.TutorialDirectory(chi.URLParam(r, "lang"))
	respond(s, w, r, dir, err, "tutorial directory")
}

func (s *Server) handleTutorial(w http.ResponseWriter, r *http.Request) {
	lesson, err := s.resolver.Tutorial(chi.URLParam(r, "lang"), chi.URLParam(r, "lesson"))
	respond(s, w, r, lesson, err, "lesson")
}

func (s *Server) handleExamplesDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := s.resolver.ExamplesDirectory(chi.URLParam(r, "lang"))
	respond(s, w, r, dir, err, "example directory")
}

func (s *Server) handleExample(w http.ResponseWriter, r *http.Request) {
	ex, err := s.resolver.Example(chi.URLParam(r, "lang"), chi.URLParam(r, "id"))
	respond(s, w, r, ex, err, "example")
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.Error(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		s.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.Success(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	respond(s, w, r, run, err, "run")
}
