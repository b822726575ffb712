package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"socialrisk/internal/catalog"
	"socialrisk/internal/service"
	"socialrisk/internal/transport/rest/handler"
	"socialrisk/internal/transport/rest/middleware"
	"socialrisk/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	SurveyService *service.SurveyService
	GatingCatalog *catalog.Catalog
	DetailCatalog *catalog.Catalog
	WSHub         *ws.Hub
	CORSOrigins   []string
	Logger        zerolog.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	catalogHandler := handler.NewCatalogHandler(c.GatingCatalog, c.DetailCatalog)
	sessionHandler := handler.NewSessionHandler(c.SurveyService)
	resultHandler := handler.NewResultHandler(c.SurveyService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(c.Logger))
	r.Use(middleware.Recovery(c.Logger))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/patient", authHandler.Patient).Methods("POST", "OPTIONS")
	v1.HandleFunc("/catalog/gating", catalogHandler.Gating).Methods("GET", "OPTIONS")
	v1.HandleFunc("/catalog/detail", catalogHandler.Detail).Methods("GET", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/session", wsHandler.SessionWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Patient routes (require patient auth)
	patientRoutes := v1.NewRoute().Subrouter()
	patientRoutes.Use(authMW.RequirePatient)

	patientRoutes.HandleFunc("/session", sessionHandler.Get).Methods("GET", "OPTIONS")
	patientRoutes.HandleFunc("/session", sessionHandler.Reset).Methods("DELETE", "OPTIONS")
	patientRoutes.HandleFunc("/session/gating", sessionHandler.SetGating).Methods("PUT", "OPTIONS")
	patientRoutes.HandleFunc("/session/answers/{questionId}", sessionHandler.SetAnswer).Methods("PUT", "OPTIONS")
	patientRoutes.HandleFunc("/session/answers/{questionId}/toggle", sessionHandler.Toggle).Methods("POST", "OPTIONS")
	patientRoutes.HandleFunc("/session/validate", sessionHandler.Validate).Methods("POST", "OPTIONS")
	patientRoutes.HandleFunc("/session/submit", sessionHandler.Submit).Methods("POST", "OPTIONS")

	// Staff routes (require staff auth)
	staffRoutes := v1.NewRoute().Subrouter()
	staffRoutes.Use(authMW.RequireStaff)

	staffRoutes.HandleFunc("/results/{patientId}", resultHandler.List).Methods("GET", "OPTIONS")
	staffRoutes.HandleFunc("/results/{patientId}/latest", resultHandler.Latest).Methods("GET", "OPTIONS")
	staffRoutes.HandleFunc("/triage", resultHandler.Triage).Methods("GET", "OPTIONS")
	staffRoutes.HandleFunc("/stats", resultHandler.Stats).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(origins))
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Authorization", "X-Request-ID"}, ", "))

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
