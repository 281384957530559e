package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/user/etiquette-quest/config"
	"go.uber.org/zap"
)

const qrTimeout = 60 * time.Second

// QRCodeManager handles QR code generation and authentication
type QRCodeManager struct {
	clientManager *ClientManager
	config        config.Config
	logger        *zap.Logger
}

// NewQRCodeManager creates a new QR code manager
func NewQRCodeManager(clientManager *ClientManager, cfg config.Config, logger *zap.Logger) *QRCodeManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRCodeManager{
		clientManager: clientManager,
		config:        cfg,
		logger:        logger,
	}
}

// GenerateQRCode starts a fresh login for a bot number and writes its QR code as a PNG.
// It returns the raw code and the image path.
func (qm *QRCodeManager) GenerateQRCode(ctx context.Context, phoneNumber string) (string, string, error) {
	qrChan, err := qm.clientManager.GetQRChannel(phoneNumber)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(ctx, qrTimeout)
	defer cancel()

	select {
	case evt, ok := <-qrChan:
		if !ok {
			return "", "", fmt.Errorf("QR channel closed")
		}
		if evt.Event != "code" {
			return "", "", fmt.Errorf("unexpected QR event: %s", evt.Event)
		}

		path, err := qm.WriteQRCode(phoneNumber, evt.Code)
		if err != nil {
			return "", "", err
		}

		qm.logger.Info("QR code generated",
			zap.String("phone_number", phoneNumber),
			zap.String("path", path))
		return evt.Code, path, nil
	case <-ctx.Done():
		return "", "", fmt.Errorf("timeout waiting for QR code: %w", ctx.Err())
	}
}

// WriteQRCode renders code into the QR code directory
func (qm *QRCodeManager) WriteQRCode(phoneNumber, code string) (string, error) {
	qrDir := qm.config.WhatsApp.QRCodeDir
	if err := os.MkdirAll(qrDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create QR code directory: %w", err)
	}

	path := filepath.Join(qrDir, fmt.Sprintf("qr_%s.png", phoneNumber))
	if err := qrcode.WriteFile(code, qrcode.Medium, 256, path); err != nil {
		return "", fmt.Errorf("failed to generate QR code image: %w", err)
	}
	return path, nil
}

// SessionManager handles WhatsApp session files
type SessionManager struct {
	storeDir string
	logger   *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(storeDir string, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		storeDir: storeDir,
		logger:   logger,
	}
}

// SessionInfo holds information about a WhatsApp session
type SessionInfo struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListSessions returns the session files found in the store directory
func (sm *SessionManager) ListSessions() ([]SessionInfo, error) {
	if err := os.MkdirAll(sm.storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(sm.storeDir, "store_*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(matches))
	for _, match := range matches {
		filename := filepath.Base(match)
		phoneNumber, sessionID, ok := parseSessionFilename(filename)
		if !ok {
			sm.logger.Warn("Failed to parse session filename", zap.String("filename", filename))
			continue
		}

		info, err := os.Stat(match)
		if err != nil {
			sm.logger.Warn("Failed to stat session file", zap.String("path", match), zap.Error(err))
			continue
		}

		sessions = append(sessions, SessionInfo{
			ID:          sessionID,
			PhoneNumber: phoneNumber,
			Path:        match,
			CreatedAt:   info.ModTime(),
		})
	}

	return sessions, nil
}

// DeleteSession removes a WhatsApp session file
func (sm *SessionManager) DeleteSession(phoneNumber, sessionID string) error {
	dbPath := filepath.Join(sm.storeDir, fmt.Sprintf("store_%s_%s.db", phoneNumber, sessionID))
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session database: %w", err)
	}
	return nil
}

// parseSessionFilename splits store_<phone>_<session>.db
func parseSessionFilename(filename string) (string, string, bool) {
	if !strings.HasPrefix(filename, "store_") || !strings.HasSuffix(filename, ".db") {
		return "", "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(filename, "store_"), ".db")
	phoneNumber, sessionID, ok := strings.Cut(name, "_")
	if !ok || phoneNumber == "" || sessionID == "" {
		return "", "", false
	}
	return phoneNumber, sessionID, true
}
