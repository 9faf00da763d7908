package http

import (
	"log/slog"
	"net/http"

	"registrationintake/internal/delivery/http/controllers"
	"registrationintake/internal/delivery/http/helpers"
	"registrationintake/internal/delivery/http/middleware"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "registrationintake/docs"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(registrations *controllers.RegistrationController, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// API Routes
	mux.HandleFunc("GET /api/registration", registrations.ListRegistrations)
	mux.HandleFunc("POST /api/registration", registrations.CreateRegistration)
	mux.HandleFunc("GET /api/registration/{id}", registrations.GetRegistration)
	mux.HandleFunc("GET /api/registration/{id}/download", registrations.DownloadFile)

	// Operations
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// WithMiddleware wraps h so that every request gets a request ID, is logged and carries CORS headers.
func WithMiddleware(h http.Handler, logger *slog.Logger, allowedOrigins []string) http.Handler {
	return middleware.RequestID(middleware.Logging(logger, middleware.CORS(allowedOrigins, h)))
}
