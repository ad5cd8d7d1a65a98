package statusapi

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// NewServer assembles the HTTP server with permissive CORS so a
// browser-hosted presentation layer can reach it.
func NewServer(h *Handler, actions *ActionsHandler, port string) *http.Server {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	actions.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}
}
