package http

import (
	"net/http"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter assembles the HTTP surface: identity endpoints, health check and
// the websocket session endpoint.
func NewRouter(service *app.QuizService, authSvc *auth.Service, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	authHandlers := NewAuthHandlers(authSvc)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandlers.SignUp)
		r.Post("/signin", authHandlers.SignIn)
		r.Post("/signout", authHandlers.SignOut)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(authSvc))
			r.Get("/me", authHandlers.Me)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	wsHandler := NewWSHandler(service, authSvc)
	r.Get("/ws", wsHandler.ServeWS)

	return r
}
