package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aosc-dev/pakreq/internal/config"
	"github.com/aosc-dev/pakreq/internal/service"
)

func SetupRoutes(cfg *config.Config, svc *service.Service) (*mux.Router, error) {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	sessions := NewSessions(cfg.JWTSecret, 0)
	h, err := NewHandler(svc, sessions)
	if err != nil {
		return nil, err
	}

	r.HandleFunc("/", h.index).Methods("GET")
	r.HandleFunc("/requests", h.requestsHTML).Methods("GET")
	r.HandleFunc("/requests.json", h.requestsJSON).Methods("GET")
	r.HandleFunc("/request/{id:[0-9]+}", h.requestJSON).Methods("GET")
	r.HandleFunc("/detail/{id:[0-9]+}", h.detailHTML).Methods("GET")

	r.HandleFunc("/login", h.loginForm).Methods("GET")
	r.HandleFunc("/login", h.login).Methods("POST")
	r.HandleFunc("/logout", h.logout).Methods("GET")
	r.HandleFunc("/account", h.account).Methods("GET")

	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	r.NotFoundHandler = http.HandlerFunc(h.notFound)

	return r, nil
}
