package handlers

import (
	"github.com/avvvet/draught-services/internal/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Route("/games", func(r chi.Router) {
				r.Post("/", h.CreateGame)
				r.Post("/join", h.JoinGame)
				r.Get("/lobby", h.Lobby)
				r.Get("/mine", h.MyGames)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetGame)
					r.Get("/moves", h.GameMoves)
					r.Get("/transactions", h.GameLedger)
					r.Post("/move", h.MakeMove)
					r.Post("/resign", h.ResignGame)
					r.Post("/cancel", h.CancelGame)
				})
			})

			r.Get("/me", h.Me)
			r.Get("/wallet/balance", h.Balance)
			r.Get("/wallet/transactions", h.Transactions)

			r.Get("/leaderboard/players", h.TopPlayers)
			r.Get("/leaderboard/earners", h.TopEarners)
		})
	})
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = auth.New(secret)
}
