package handlers

import (
	"encoding/json"
	"net/http"
)

// RedeemHandler exchanges a promo code for tokens.
func RedeemHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}

		amount, err := s.Shop.Redeem(r.Context(), userID, req.Code)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"tokens_granted": amount})
	}
}

// BuyHandler purchases a catalog item with tokens.
func BuyHandler(s *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req struct {
			ItemID   string `json:"item_id"`
			Price    int    `json:"price"`
			Category string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" || req.Price < 0 {
			http.Error(w, "item_id and a non-negative price are required", http.StatusBadRequest)
			return
		}

		u, err := s.Shop.Buy(r.Context(), userID, req.ItemID, req.Price, req.Category)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		u.Password = ""
		writeJSON(w, http.StatusOK, u)
	}
}
