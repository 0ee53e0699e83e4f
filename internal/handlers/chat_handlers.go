package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"zipchat/internal/chat"
	"zipchat/internal/identity"
	"zipchat/internal/models"
	"zipchat/internal/store"
	"zipchat/pkg/apperrors"
	"zipchat/pkg/logger"
)

// ChatHandlers is the HTTP read surface over the core: recent chats, private
// history and favourites. Delivery never goes through here.
type ChatHandlers struct {
	identityService *identity.Service
	aggregator      *chat.ActiveChatAggregator
	router          *chat.PrivateRouter
	favourites      store.FavouriteStore
	recentLimit     int
	historyLimit    int
}

func NewChatHandlers(identityService *identity.Service, aggregator *chat.ActiveChatAggregator, router *chat.PrivateRouter, favourites store.FavouriteStore, recentLimit, historyLimit int) *ChatHandlers {
	return &ChatHandlers{
		identityService: identityService,
		aggregator:      aggregator,
		router:          router,
		favourites:      favourites,
		recentLimit:     recentLimit,
		historyLimit:    historyLimit,
	}
}

// GET /chats
func (h *ChatHandlers) RecentChats(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.aggregator.RecentChats(r.Context(), user.ID, h.recentLimit)
	if err != nil {
		logger.Error("Recent chats error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if chats == nil {
		chats = []*models.ActiveChatSummary{}
	}

	writeJSON(w, http.StatusOK, chats)
}

// POST /chats/rebuild
func (h *ChatHandlers) RebuildChats(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.aggregator.Rebuild(r.Context(), user.ID); err != nil {
		logger.Error("Chat rebuild error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("chat summaries rebuilt"))
}

// GET /messages/private?with={userId}&limit={n}
func (h *ChatHandlers) PrivateHistory(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	otherID := r.URL.Query().Get("with")
	if otherID == "" {
		http.Error(w, "missing 'with' parameter", http.StatusBadRequest)
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	msgs, err := h.router.FetchHistory(r.Context(), user.ID, otherID, limit)
	if err != nil {
		logger.Error("History error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

// GET /favourites
func (h *ChatHandlers) ListFavourites(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	favs, err := h.favourites.ListFavourites(r.Context(), user.ID)
	if err != nil {
		logger.Error("List favourites error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if favs == nil {
		favs = []*models.FavouriteRelation{}
	}

	writeJSON(w, http.StatusOK, favs)
}

// POST /favourites with body {"userId": "..."}
func (h *ChatHandlers) AddFavourite(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.favourites.AddFavourite(r.Context(), user.ID, req.UserID); err != nil {
		logger.Error("Add favourite error: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte("favourite added"))
}

// DELETE /favourites/{userId}
func (h *ChatHandlers) RemoveFavourite(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := pathSegment(r, 2)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	if err := h.favourites.RemoveFavourite(r.Context(), user.ID, targetID); err != nil {
		logger.Error("Remove favourite error: %v", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("favourite removed"))
}

// GET /favourites/{userId}
func (h *ChatHandlers) CheckFavourite(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := pathSegment(r, 2)
	if err != nil {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	isFav, err := h.favourites.IsFavourite(r.Context(), user.ID, targetID)
	if err != nil {
		logger.Error("Check favourite error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"favourite": isFav})
}

func (h *ChatHandlers) getUserFromToken(r *http.Request) (*models.User, error) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		return nil, fmt.Errorf("missing token")
	}
	return h.identityService.GetUserFromToken(r.Context(), tokenStr)
}

func pathSegment(r *http.Request, index int) (string, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) <= index || parts[index] == "" {
		return "", fmt.Errorf("invalid path")
	}
	return parts[index], nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists:
		return http.StatusConflict
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
