package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// InvalidParamError reports a path or query parameter that failed to bind.
type InvalidParamError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamError) Error() string {
	return "invalid format for parameter " + e.ParamName + ": " + e.Err.Error()
}

func (e *InvalidParamError) Unwrap() error { return e.Err }

// Routes mounts the API on r. Middleware must be attached to r beforehand.
func Routes(r chi.Router, s *Server) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/duplicates/check", s.CheckDuplicates)
		r.Post("/resolutions", s.Resolve)
		r.Post("/modifications", s.ProposeModification)
		r.Post("/alternatives", s.SuggestAlternatives)

		r.Post("/topics", s.SubmitTopic)
		r.Get("/topics/{id}", s.getTopic)
		r.Get("/semesters/{id}/topics", s.listSemesterTopics)

		r.Route("/index", func(r chi.Router) {
			r.Get("/topics", s.listIndexEntries)
			r.Put("/topics/{id}", s.indexTopic)
			r.Delete("/topics/{id}", s.removeIndexEntry)
			r.Get("/stats", s.IndexStats)
			r.Post("/reset", s.ResetIndex)
			r.Post("/rebuild", s.RebuildIndex)
		})

		r.Get("/stats", s.GetStats)
	})
}

func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	var id int64
	if !bindPath(w, r, "id", &id) {
		return
	}
	s.GetTopic(w, r, id)
}

func (s *Server) listSemesterTopics(w http.ResponseWriter, r *http.Request) {
	var id int
	if !bindPath(w, r, "id", &id) {
		return
	}
	s.ListSemesterTopics(w, r, id)
}

func (s *Server) indexTopic(w http.ResponseWriter, r *http.Request) {
	var id int64
	if !bindPath(w, r, "id", &id) {
		return
	}
	var versionID *int64
	if !bindQuery(w, r, "version_id", &versionID) {
		return
	}
	s.IndexTopic(w, r, id, versionID)
}

func (s *Server) removeIndexEntry(w http.ResponseWriter, r *http.Request) {
	var id string
	if !bindPath(w, r, "id", &id) {
		return
	}
	s.RemoveIndexEntry(w, r, id)
}

func (s *Server) listIndexEntries(w http.ResponseWriter, r *http.Request) {
	var semesterID, offset, limit *int
	if !bindQuery(w, r, "semester_id", &semesterID) ||
		!bindQuery(w, r, "offset", &offset) ||
		!bindQuery(w, r, "limit", &limit) {
		return
	}
	s.ListIndexEntries(w, r, semesterID, offset, limit)
}

func bindPath(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		paramError(w, &InvalidParamError{ParamName: name, Err: err})
		return false
	}
	return true
}

// bindQuery binds an optional form-style query parameter into a pointer destination.
func bindQuery(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		paramError(w, &InvalidParamError{ParamName: name, Err: err})
		return false
	}
	return true
}

func paramError(w http.ResponseWriter, err *InvalidParamError) {
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid parameter "+err.ParamName)
}
