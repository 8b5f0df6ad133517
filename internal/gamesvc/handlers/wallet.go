package handlers

import "net/http"

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	balance, err := h.balances.GetUserBalance(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "balance", map[string]string{"balance": balance.StringFixed(2)})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	txs, err := h.balances.Transactions(r.Context(), uid, pageParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "transactions", txs)
}

func (h *Handler) TopPlayers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.TopPlayers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "top players", entries)
}

func (h *Handler) TopEarners(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.TopEarners(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "top earners", entries)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := h.users.GetUser(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, "user", u)
}
