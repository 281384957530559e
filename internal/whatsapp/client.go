package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/etiquette-quest/config"
	"github.com/user/etiquette-quest/internal/interfaces"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// ClientManager handles WhatsApp client connections and routes chat commands to the game
type ClientManager struct {
	clients     map[string]*ClientInfo
	gameManager interfaces.GameManager
	sender      interfaces.MessageSender
	formatter   *MessageFormatter
	config      config.Config
	logger      *zap.Logger
	mutex       sync.RWMutex
}

// ClientInfo holds information about a WhatsApp client connection
type ClientInfo struct {
	UUID        string
	PhoneNumber string
	Client      *whatsmeow.Client
	Store       *store.Device
}

var _ interfaces.MessageSender = (*ClientManager)(nil)

// NewClientManager creates a new WhatsApp client manager and restores saved sessions
func NewClientManager(gameManager interfaces.GameManager, cfg config.Config, logger *zap.Logger) *ClientManager {
	cm := newClientManager(gameManager, cfg, logger)
	cm.restoreExistingSessions()
	return cm
}

func newClientManager(gameManager interfaces.GameManager, cfg config.Config, logger *zap.Logger) *ClientManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cm := &ClientManager{
		clients:     make(map[string]*ClientInfo),
		gameManager: gameManager,
		formatter:   NewMessageFormatter(),
		config:      cfg,
		logger:      logger.Named("WhatsApp"),
	}
	cm.sender = cm
	return cm
}

// storePath returns the session database path of a bot number
func (cm *ClientManager) storePath(phoneNumber, sessionID string) string {
	return filepath.Join(cm.config.WhatsApp.StoreDir, fmt.Sprintf("store_%s_%s.db", phoneNumber, sessionID))
}

// openContainer opens the whatsmeow device store at path
func (cm *ClientManager) openContainer(path string) (*sqlstore.Container, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", path)
	container, err := sqlstore.New("sqlite3", dsn, newWALogger(cm.logger, "Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return container, nil
}

// newClient builds a client for deviceStore and registers it under phoneNumber
func (cm *ClientManager) newClient(phoneNumber, sessionID string, deviceStore *store.Device) *whatsmeow.Client {
	client := whatsmeow.NewClient(deviceStore, newWALogger(cm.logger, "Client"))
	client.AddEventHandler(cm.eventHandler(phoneNumber))

	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       deviceStore,
	}
	return client
}

func (cm *ClientManager) setDeviceProps() {
	store.DeviceProps.RequireFullSync = proto.Bool(true)
	store.DeviceProps.Os = proto.String(cm.config.WhatsApp.ClientName)
}

// restoreExistingSessions reconnects the most recent session of every bot number
func (cm *ClientManager) restoreExistingSessions() {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		cm.logger.Error("Failed to create store directory", zap.Error(err))
		return
	}

	pattern := filepath.Join(cm.config.WhatsApp.StoreDir, "store_*.db")
	files, err := filepath.Glob(pattern)
	if err != nil {
		cm.logger.Error("Failed to scan for existing sessions", zap.Error(err))
		return
	}

	latest := latestSessionFiles(files, cm.logger)

	for phoneNumber, session := range latest {
		for _, file := range files {
			owner, _, ok := parseSessionFilename(filepath.Base(file))
			if !ok || owner != phoneNumber || file == session.path {
				continue
			}
			if err := os.Remove(file); err != nil {
				cm.logger.Error("Failed to remove old session file",
					zap.String("file", file),
					zap.Error(err))
			} else {
				cm.logger.Info("Removed old session file", zap.String("file", file))
			}
		}

		container, err := cm.openContainer(session.path)
		if err != nil {
			cm.logger.Error("Failed to open session store",
				zap.String("phoneNumber", phoneNumber),
				zap.Error(err))
			continue
		}

		deviceStore, err := container.GetFirstDevice()
		if err != nil {
			cm.logger.Info("No valid session found in database",
				zap.String("phoneNumber", phoneNumber))
			continue
		}

		cm.mutex.Lock()
		client := cm.newClient(phoneNumber, session.sessionID, deviceStore)
		cm.mutex.Unlock()

		if client.Store.ID == nil {
			cm.logger.Info("Session requires QR code login",
				zap.String("phoneNumber", phoneNumber))
			continue
		}

		go func(phone string, cli *whatsmeow.Client) {
			if err := cli.Connect(); err != nil {
				cm.logger.Error("Failed to connect restored client",
					zap.String("phoneNumber", phone),
					zap.Error(err))
				return
			}
			cm.logger.Info("Successfully connected restored client",
				zap.String("phoneNumber", phone))
		}(phoneNumber, client)
	}
}

type sessionFile struct {
	path      string
	sessionID string
	modTime   time.Time
}

// latestSessionFiles picks the most recently modified session file per bot number
func latestSessionFiles(files []string, logger *zap.Logger) map[string]sessionFile {
	latest := make(map[string]sessionFile)
	for _, file := range files {
		phoneNumber, sessionID, ok := parseSessionFilename(filepath.Base(file))
		if !ok {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			logger.Error("Failed to get file info",
				zap.String("file", file),
				zap.Error(err))
			continue
		}

		if current, exists := latest[phoneNumber]; !exists || info.ModTime().After(current.modTime) {
			latest[phoneNumber] = sessionFile{path: file, sessionID: sessionID, modTime: info.ModTime()}
		}
	}
	return latest
}

// SetupClient initializes a WhatsApp client for a bot number
func (cm *ClientManager) SetupClient(sessionID, phoneNumber string) (*whatsmeow.Client, error) {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	container, err := cm.openContainer(cm.storePath(phoneNumber, sessionID))
	if err != nil {
		return nil, err
	}

	deviceStore, err := container.GetFirstDevice()
	if err != nil {
		deviceStore = container.NewDevice()
	}
	cm.setDeviceProps()

	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	return cm.newClient(phoneNumber, sessionID, deviceStore), nil
}

// GetClient retrieves a WhatsApp client by bot number, reconnecting it when needed
func (cm *ClientManager) GetClient(phoneNumber string) (*whatsmeow.Client, bool) {
	cm.mutex.RLock()
	clientInfo, exists := cm.clients[phoneNumber]
	cm.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if !clientInfo.Client.IsConnected() && clientInfo.Store.ID != nil {
		if err := clientInfo.Client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phoneNumber", phoneNumber),
				zap.Error(err))
			return nil, false
		}
		cm.logger.Info("Successfully reconnected client",
			zap.String("phoneNumber", phoneNumber))
	}

	return clientInfo.Client, true
}

// GetQRChannel replaces any client of the bot number with a fresh device awaiting a QR login
func (cm *ClientManager) GetQRChannel(phoneNumber string) (<-chan whatsmeow.QRChannelItem, error) {
	if err := os.MkdirAll(cm.config.WhatsApp.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if clientInfo, exists := cm.clients[phoneNumber]; exists {
		clientInfo.Client.Disconnect()
		delete(cm.clients, phoneNumber)
	}

	sessionID := uuid.New().String()
	container, err := cm.openContainer(cm.storePath(phoneNumber, sessionID))
	if err != nil {
		return nil, err
	}

	deviceStore := container.NewDevice()
	cm.setDeviceProps()

	client := whatsmeow.NewClient(deviceStore, newWALogger(cm.logger, "Client"))
	client.AddEventHandler(cm.eventHandler(phoneNumber))

	// The channel must exist before Connect
	qrChan, err := client.GetQRChannel(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get QR channel: %w", err)
	}

	cm.clients[phoneNumber] = &ClientInfo{
		UUID:        sessionID,
		PhoneNumber: phoneNumber,
		Client:      client,
		Store:       deviceStore,
	}

	go func() {
		if err := client.Connect(); err != nil {
			cm.logger.Error("Failed to connect client",
				zap.String("phoneNumber", phoneNumber),
				zap.Error(err))
			return
		}
		cm.logger.Info("Client connected successfully",
			zap.String("phoneNumber", phoneNumber))
	}()

	return qrChan, nil
}

// Connect establishes a connection to WhatsApp
func (cm *ClientManager) Connect(phoneNumber string) error {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	return client.Connect()
}

// Disconnect closes a specific WhatsApp connection
func (cm *ClientManager) Disconnect(phoneNumber string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	clientInfo, exists := cm.clients[phoneNumber]
	if !exists {
		return fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	clientInfo.Client.Disconnect()
	delete(cm.clients, phoneNumber)
	return nil
}

// DisconnectAll closes all WhatsApp connections
func (cm *ClientManager) DisconnectAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for phoneNumber, clientInfo := range cm.clients {
		if clientInfo.Client != nil {
			clientInfo.Client.Disconnect()
			cm.logger.Info("Disconnected client", zap.String("phoneNumber", phoneNumber))
		}
	}

	cm.clients = make(map[string]*ClientInfo)
}

// IsLoggedIn checks if a client is logged in
func (cm *ClientManager) IsLoggedIn(phoneNumber string) (bool, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return false, fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	return client.IsLoggedIn(), nil
}

// SendMessage sends a text message from the bot number to a recipient
func (cm *ClientManager) SendMessage(phoneNumber, recipient, message string) (string, error) {
	client, exists := cm.GetClient(phoneNumber)
	if !exists {
		return "", fmt.Errorf("client not found for phone number: %s", phoneNumber)
	}

	recipientJID, err := parseJID(recipient)
	if err != nil {
		return "", err
	}

	msg := &waProto.Message{
		Conversation: proto.String(message),
	}

	response, err := client.SendMessage(context.Background(), recipientJID, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return response.ID, nil
}

// eventHandler returns the event callback of one bot number
func (cm *ClientManager) eventHandler(botPhone string) func(evt interface{}) {
	logger := cm.logger.With(zap.String("bot", botPhone))
	return func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			cm.handleIncomingMessage(botPhone, v)
		case *events.Connected:
			logger.Info("WhatsApp client connected")
		case *events.Disconnected:
			logger.Info("WhatsApp client disconnected")
		case *events.LoggedOut:
			logger.Info("WhatsApp client logged out")
		}
	}
}

// handleIncomingMessage extracts the text of a message and answers it
func (cm *ClientManager) handleIncomingMessage(botPhone string, message *events.Message) {
	if message.Info.MessageSource.IsFromMe {
		return
	}

	content := message.Message.GetConversation()
	if content == "" && message.Message.GetExtendedTextMessage() != nil {
		content = message.Message.GetExtendedTextMessage().GetText()
	}

	isGroup := message.Info.Chat.Server == waTypes.GroupServer
	cm.dispatch(botPhone, message.Info.Sender.User, message.Info.Chat.String(), isGroup, content)
}

// dispatch runs a chat command and sends the reply back to the chat it came from.
// Group chats only answer messages starting with "/ ".
func (cm *ClientManager) dispatch(botPhone, sender, chat string, isGroup bool, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	if isGroup {
		if !strings.HasPrefix(content, "/ ") {
			return
		}
		content = "/" + strings.TrimPrefix(content, "/ ")
	} else if !strings.HasPrefix(content, "/") {
		return
	}

	cm.logger.Debug("Received message",
		zap.String("content", content),
		zap.String("sender", sender),
		zap.String("chat", chat))

	response := cm.processGameCommand(sender, content)
	if response == "" {
		return
	}

	if _, err := cm.sender.SendMessage(botPhone, chat, response); err != nil {
		cm.logger.Error("Failed to send response",
			zap.String("sender", sender),
			zap.Error(err))
	}
}

// parseJID converts a string to a WhatsApp JID
func parseJID(jidString string) (waTypes.JID, error) {
	if !strings.ContainsRune(jidString, '@') {
		// A bare phone number
		jidString = jidString + "@" + waTypes.DefaultUserServer
	}

	return waTypes.ParseJID(jidString)
}
