// internal/handler/subscriber_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/lostandunfounds/newsletter-backend/internal/errors"
	"github.com/lostandunfounds/newsletter-backend/internal/repository"
)

// SubscriberHandler covers the write side of the recipient store:
// subscribe and unsubscribe. The dispatcher only ever reads.
type SubscriberHandler struct {
	Repo repository.SubscriberRepositoryInterface
}

func NewSubscriberHandler(repo repository.SubscriberRepositoryInterface) *SubscriberHandler {
	return &SubscriberHandler{Repo: repo}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func (h *SubscriberHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	email := repository.NormalizeEmail(req.Email)
	if !validEmail(email) {
		http.Error(w, "invalid email address", http.StatusBadRequest)
		return
	}

	subscriber, err := h.Repo.Subscribe(email)
	if err != nil {
		http.Error(w, "failed to subscribe: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subscriber)
}

func (h *SubscriberHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	// Accept the address either as a query parameter (unsubscribe links in
	// sent mail) or in a JSON body.
	email := r.URL.Query().Get("email")
	if email == "" {
		var req subscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			email = req.Email
		}
	}

	email = repository.NormalizeEmail(email)
	if !validEmail(email) {
		http.Error(w, "invalid email address", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Unsubscribe(email); err != nil {
		var notFound *apperrors.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, "subscriber not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to unsubscribe: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"email":   email,
	})
}
