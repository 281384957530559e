package whatsapp

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes bot login and session management over HTTP
type Handler struct {
	clientManager  *ClientManager
	qrManager      *QRCodeManager
	sessionManager *SessionManager
	logger         *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(clientManager *ClientManager, qrManager *QRCodeManager, sessionManager *SessionManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		clientManager:  clientManager,
		qrManager:      qrManager,
		sessionManager: sessionManager,
		logger:         logger,
	}
}

// Mount registers the bot routes on router
func (h *Handler) Mount(router chi.Router) {
	qrDir := h.qrManager.config.WhatsApp.QRCodeDir
	router.Get("/qrcodes/*", func(w http.ResponseWriter, r *http.Request) {
		http.StripPrefix("/qrcodes/", http.FileServer(http.Dir(qrDir))).ServeHTTP(w, r)
	})
	router.Post("/qr", h.handleGenerateQR)
	router.Get("/sessions", h.handleListSessions)
	router.Delete("/sessions/{phone_number}/{session_id}", h.handleDeleteSession)
}

func (h *Handler) handleGenerateQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	code, path, err := h.qrManager.GenerateQRCode(r.Context(), req.PhoneNumber)
	if err != nil {
		h.logger.Error("Failed to generate QR code",
			zap.String("phone_number", req.PhoneNumber),
			zap.Error(err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"qr_code": code,
		"image":   "/qrcodes/" + filepath.Base(path),
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionManager.ListSessions()
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	phoneNumber := chi.URLParam(r, "phone_number")
	sessionID := chi.URLParam(r, "session_id")

	// Not connected is fine
	_ = h.clientManager.Disconnect(phoneNumber)

	if err := h.sessionManager.DeleteSession(phoneNumber, sessionID); err != nil {
		h.logger.Error("Failed to delete session",
			zap.String("phone_number", phoneNumber),
			zap.String("session_id", sessionID),
			zap.Error(err))
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
