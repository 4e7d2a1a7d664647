package api

import (
	"net/http"
	"time"

	"royaltyhub/src/api/handlers"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
}

func NewServer(handler *handlers.Handler) *Server {
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handler,
	}
	server.InitRoutes()
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Get("/alive", handlers.Healthcheck)

	s.Router.Route("/api/report-templates", func(r chi.Router) {
		r.Get("/", s.Handler.GetAllTemplates)
		r.Post("/", s.Handler.CreateTemplate)
		r.Get("/{id}", s.Handler.GetTemplateByID)
		r.Put("/{id}", s.Handler.UpdateTemplate)
		r.Delete("/{id}", s.Handler.DeleteTemplate)
		r.Get("/{id}/preview", s.Handler.PreviewTemplate)
	})

	s.Router.Route("/api/scheduled-reports", func(r chi.Router) {
		r.Get("/", s.Handler.GetAllScheduledReports)
		r.Post("/", s.Handler.CreateScheduledReport)
		r.Get("/{id}", s.Handler.GetScheduledReportByID)
		r.Put("/{id}", s.Handler.UpdateScheduledReport)
		r.Delete("/{id}", s.Handler.DeleteScheduledReport)
		r.Post("/{id}/execute", s.Handler.ExecuteScheduledReport)
	})
}

func NewHTTPServer(server *Server, port string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		Handler:      server,
	}
}
