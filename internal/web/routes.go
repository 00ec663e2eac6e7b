package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/geoface/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	galleryHandler := handlers.NewGalleryHandler(s.service.Matcher())
	attendanceHandler := handlers.NewAttendanceHandler(s.service, s.records, s.logger)

	s.router.Get("/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Get("/gallery", galleryHandler.Get)
		r.Post("/recognize", attendanceHandler.Recognize)

		r.Post("/attendance", attendanceHandler.Attend)
		r.Get("/attendance", attendanceHandler.List)
	})
}
