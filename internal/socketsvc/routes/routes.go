package routes

import (
	"github.com/avvvet/draught-services/internal/auth"
	"github.com/avvvet/draught-services/internal/socketsvc/handlers"
	"github.com/avvvet/draught-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

// SetRoutes mounts the websocket endpoint. Browsers cannot set headers on the
// upgrade request, so the token may also come as ?jwt=.
func SetRoutes(r chi.Router, ws *ws.Ws, secret string, port string) {
	tokenAuth := auth.New(secret)
	h := handlers.NewHandler(ws, port)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(tokenAuth, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader))
			r.Use(jwtauth.Authenticator)

			r.Get("/ws", h.HandleWebSocket)
		})
	})
}
