package whatsapp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/user/etiquette-quest/config"
	"github.com/user/etiquette-quest/internal/game"
	"github.com/user/etiquette-quest/internal/types"
	"go.uber.org/zap"
)

// Mock GameManager for testing
type MockGameManager struct {
	mock.Mock
}

func (m *MockGameManager) RegisterPlayer(playerID, name string) (*types.Player, error) {
	args := m.Called(playerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Player), args.Error(1)
}

func (m *MockGameManager) GetPlayer(playerID string) (*types.Player, error) {
	args := m.Called(playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Player), args.Error(1)
}

func (m *MockGameManager) GetAllPlayers() []*types.Player {
	args := m.Called()
	return args.Get(0).([]*types.Player)
}

func (m *MockGameManager) ListCountries(playerID string) ([]types.CountryStatus, error) {
	args := m.Called(playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.CountryStatus), args.Error(1)
}

func (m *MockGameManager) ListScenarios(playerID, countryID string) ([]types.ScenarioStatus, error) {
	args := m.Called(playerID, countryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ScenarioStatus), args.Error(1)
}

func (m *MockGameManager) StartScenario(playerID, scenarioID string) (*types.Interaction, error) {
	args := m.Called(playerID, scenarioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Interaction), args.Error(1)
}

func (m *MockGameManager) CurrentInteraction(playerID string) (*types.Interaction, error) {
	args := m.Called(playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Interaction), args.Error(1)
}

func (m *MockGameManager) SelectOption(playerID, interactionID string, optionIndex int) (*types.Step, error) {
	args := m.Called(playerID, interactionID, optionIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Step), args.Error(1)
}

func (m *MockGameManager) SelectCurrent(playerID string, optionIndex int) (*types.Step, error) {
	args := m.Called(playerID, optionIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Step), args.Error(1)
}

func (m *MockGameManager) AbandonScenario(playerID string) error {
	args := m.Called(playerID)
	return args.Error(0)
}

func (m *MockGameManager) GetCompetence(playerID, countryID string) (*types.CompetenceStatus, error) {
	args := m.Called(playerID, countryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CompetenceStatus), args.Error(1)
}

func (m *MockGameManager) ResetCompetence(playerID, countryID string) error {
	args := m.Called(playerID, countryID)
	return args.Error(0)
}

func (m *MockGameManager) DrainDisplay(playerID string) []types.View {
	args := m.Called(playerID)
	return args.Get(0).([]types.View)
}

// Mock MessageSender for testing
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(phoneNumber, recipient, message string) (string, error) {
	args := m.Called(phoneNumber, recipient, message)
	return args.String(0), args.Error(1)
}

const testPhone = "5521999999999"

func newTestClientManager(gm *MockGameManager) *ClientManager {
	logger, _ := zap.NewDevelopment()
	return newClientManager(gm, config.DefaultConfig(), logger)
}

func testPlayer() *types.Player {
	return &types.Player{
		ID:           testPhone,
		Name:         "Test Player",
		CreatedAt:    time.Now(),
		LastActiveAt: time.Now(),
	}
}

func testInteraction() *types.Interaction {
	return &types.Interaction{
		ID:        "greeting",
		Prompt:    "Mr. Tanaka approaches you. How do you greet him?",
		Situation: "A meeting room in Tokyo",
		Options: []types.Option{
			{Text: "Bow slightly", Correct: true, Points: 10},
			{Text: "Offer a firm handshake", Points: 0},
			{Text: "Hug him", Points: -5},
		},
	}
}

func TestProcessGameCommand(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	clientManager := newTestClientManager(mockGameManager)

	// Test case 1: Registration command
	mockGameManager.On("GetPlayer", "5521888888888").Return(nil, game.ErrPlayerNotFound).Once()
	mockGameManager.On("RegisterPlayer", "5521888888888", "Test Player").Return(&types.Player{
		ID:   "5521888888888",
		Name: "Test Player",
	}, nil)

	response := clientManager.processGameCommand("5521888888888", "/start Test Player")
	assert.Contains(t, response, "Welcome to *Etiquette Quest*, Test Player!")
	assert.Contains(t, response, "/countries")

	// Test case 2: Help command needs no registration
	response = clientManager.processGameCommand("5521777777777", "/HELP")
	assert.Contains(t, response, "ETIQUETTE QUEST")
	assert.Contains(t, response, "/play <scenario>")
	assert.Contains(t, response, "/a, /b, /c, /d")

	// Test case 3: Unregistered players are asked to register
	mockGameManager.On("GetPlayer", "5521666666666").Return(nil, game.ErrPlayerNotFound)

	response = clientManager.processGameCommand("5521666666666", "/countries")
	assert.Equal(t, notRegisteredMessage, response)

	// Test case 4: Unknown command
	mockGameManager.On("GetPlayer", testPhone).Return(testPlayer(), nil)

	response = clientManager.processGameCommand(testPhone, "/dance")
	assert.Contains(t, response, "Unknown command \"/dance\"")

	mockGameManager.AssertExpectations(t)
}

func TestHandleStartCommand(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	clientManager := newTestClientManager(mockGameManager)

	// Test case 1: Returning player
	mockGameManager.On("GetPlayer", testPhone).Return(testPlayer(), nil)

	response := clientManager.handleStartCommand(testPhone, "Someone Else")
	assert.Contains(t, response, "Welcome back, *Test Player*!")

	// Test case 2: Missing name
	mockGameManager.On("GetPlayer", "5521888888888").Return(nil, game.ErrPlayerNotFound)

	response = clientManager.handleStartCommand("5521888888888", "")
	assert.Contains(t, response, "/start <your name>")

	// Test case 3: Registration failure
	mockGameManager.On("RegisterPlayer", "5521888888888", "Ana").Return(nil, errors.New("disk full"))

	response = clientManager.handleStartCommand("5521888888888", "Ana")
	assert.Contains(t, response, "could not register you")

	mockGameManager.AssertNotCalled(t, "RegisterPlayer", testPhone, mock.Anything)
	mockGameManager.AssertExpectations(t)
}

func TestHandlePlayAndAnswerCommands(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	clientManager := newTestClientManager(mockGameManager)
	interaction := testInteraction()
	next := &types.Interaction{
		ID:      "business_cards",
		Prompt:  "How do you receive his card?",
		Options: []types.Option{{Text: "With both hands"}, {Text: "In your pocket"}},
	}

	mockGameManager.On("GetPlayer", testPhone).Return(testPlayer(), nil)

	// Test case 1: Starting a scenario shows its first question
	mockGameManager.On("StartScenario", testPhone, "tokyo_meeting").Return(interaction, nil)
	mockGameManager.On("DrainDisplay", testPhone).Return([]types.View{
		{Kind: types.ViewInteraction, Interaction: interaction},
	}).Once()

	response := clientManager.processGameCommand(testPhone, "/play Tokyo_Meeting")
	assert.Contains(t, response, "*Mr. Tanaka approaches you. How do you greet him?*")
	assert.Contains(t, response, "A. Bow slightly")
	assert.Contains(t, response, "C. Hug him")
	assert.Contains(t, response, "Answer with /a, /b, /c")

	// Test case 2: Answering shows feedback and the next question
	mockGameManager.On("SelectCurrent", testPhone, 0).Return(&types.Step{
		Feedback: types.Feedback{
			InteractionID: "greeting",
			Correct:       true,
			Points:        10,
			Text:          "A respectful bow is the expected greeting.",
			Insight:       "Bow depth reflects status.",
		},
		Next: next,
	}, nil)
	mockGameManager.On("DrainDisplay", testPhone).Return([]types.View{
		{Kind: types.ViewInteraction, Interaction: next},
	}).Once()

	response = clientManager.processGameCommand(testPhone, "/A")
	assert.Contains(t, response, "✅ *Well done!* (+10)")
	assert.Contains(t, response, "💡 Bow depth reflects status.")
	assert.Contains(t, response, "How do you receive his card?")
	assert.Contains(t, response, "Answer with /a, /b")

	// Test case 3: Answering outside a scenario
	mockGameManager.On("SelectCurrent", testPhone, 1).Return(nil, game.ErrNoActiveAttempt)

	response = clientManager.processGameCommand(testPhone, "/b")
	assert.Contains(t, response, "You are not playing a scenario")

	// Test case 4: Locked scenario
	mockGameManager.On("StartScenario", testPhone, "tokyo_dinner").Return(nil, &game.ScenarioLockedError{
		ScenarioID:   "tokyo_dinner",
		Prerequisite: "tokyo_negotiation",
	})

	response = clientManager.processGameCommand(testPhone, "/play tokyo_dinner")
	assert.Contains(t, response, "Complete *tokyo_negotiation* first")

	// Test case 5: Missing scenario id
	response = clientManager.processGameCommand(testPhone, "/play")
	assert.Contains(t, response, "Which scenario?")

	mockGameManager.AssertExpectations(t)
}

func TestHandleAnswerCommandCompletesScenario(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	clientManager := newTestClientManager(mockGameManager)
	result := &types.ScenarioResult{
		ScenarioID:        "tokyo_meeting",
		CountryID:         "japan",
		Score:             25,
		MaxScore:          25,
		Passed:            true,
		CorrectAnswers:    3,
		TotalInteractions: 3,
		InsightsUnlocked:  []string{"Bow depth reflects status."},
		SkillsUnlocked:    []string{"bowing", "meishi"},
		ScenariosUnlocked: []string{"tokyo_negotiation"},
		Points:            25,
		Title:             "Cultural Student",
	}

	mockGameManager.On("SelectCurrent", testPhone, 0).Return(&types.Step{
		Feedback: types.Feedback{InteractionID: "meeting_seating", Correct: true, Points: 5},
		Result:   result,
	}, nil)
	mockGameManager.On("DrainDisplay", testPhone).Return([]types.View{
		{Kind: types.ViewResult, Result: result},
	})

	// Test case 1: The result follows the feedback
	response := clientManager.handleAnswerCommand(testPhone, 0)
	assert.Contains(t, response, "✅ *Well done!* (+5)")
	assert.Contains(t, response, "SCENARIO COMPLETED")
	assert.Contains(t, response, "Score: 25/25")
	assert.Contains(t, response, "Skills unlocked: bowing, meishi")
	assert.Contains(t, response, "New scenarios: tokyo_negotiation")

	mockGameManager.AssertExpectations(t)
}

func TestHandleStatusCommand(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	clientManager := newTestClientManager(mockGameManager)
	japan := &types.Country{ID: "japan", Name: "Japan"}
	status := &types.CompetenceStatus{
		CountryID:   "japan",
		CountryName: "Japan",
		Points:      25,
		Title:       "Cultural Student",
		Skills: []types.SkillStatus{
			{Skill: types.Skill{ID: "bowing", Name: "Bowing"}, Unlocked: true},
			{Skill: types.Skill{ID: "meishi", Name: "Meishi"}, Unlocked: false},
		},
		NextSkill: &types.SkillProgress{Skill: types.Skill{ID: "meishi", Name: "Meishi"}, Threshold: 20, PointsNeeded: 5},
	}

	// Test case 1: One country
	mockGameManager.On("GetCompetence", testPhone, "japan").Return(status, nil)

	response := clientManager.handleStatusCommand(testPhone, "Japan")
	assert.Contains(t, response, "📊 *JAPAN* 📊")
	assert.Contains(t, response, "Competence: 25 points")
	assert.Contains(t, response, "🏅 Bowing")
	assert.Contains(t, response, "🔒 Meishi")
	assert.Contains(t, response, "Next skill: Meishi in 5 points")

	// Test case 2: Every country
	mockGameManager.On("ListCountries", testPhone).Return([]types.CountryStatus{
		{Country: japan, Unlocked: true, Points: 25, Title: "Cultural Student"},
	}, nil)

	response = clientManager.handleStatusCommand(testPhone, "")
	assert.Contains(t, response, "Title: *Cultural Student*")

	// Test case 3: Unknown country
	mockGameManager.On("GetCompetence", testPhone, "atlantis").Return(nil, &game.UnknownCountryError{CountryID: "atlantis"})

	response = clientManager.handleStatusCommand(testPhone, "atlantis")
	assert.Contains(t, response, "I don't know that country")

	mockGameManager.AssertExpectations(t)
}

func TestHandleQuitAndResetCommands(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	clientManager := newTestClientManager(mockGameManager)

	// Test case 1: Quit discards queued views
	mockGameManager.On("AbandonScenario", testPhone).Return(nil).Once()
	mockGameManager.On("DrainDisplay", testPhone).Return([]types.View{})

	response := clientManager.handleQuitCommand(testPhone)
	assert.Contains(t, response, "Scenario abandoned")

	// Test case 2: Quit while idle
	mockGameManager.On("AbandonScenario", testPhone).Return(game.ErrNoActiveAttempt).Once()

	response = clientManager.handleQuitCommand(testPhone)
	assert.Contains(t, response, "You are not playing a scenario")

	// Test case 3: Reset one country
	mockGameManager.On("ResetCompetence", testPhone, "france").Return(nil)

	response = clientManager.handleResetCommand(testPhone, "France")
	assert.Contains(t, response, "Your progress in france was reset")

	// Test case 4: Reset everything
	mockGameManager.On("ResetCompetence", testPhone, "").Return(nil)

	response = clientManager.handleResetCommand(testPhone, "")
	assert.Contains(t, response, "All your progress was reset")

	mockGameManager.AssertExpectations(t)
}

func TestDispatch(t *testing.T) {
	// Setup
	mockGameManager := new(MockGameManager)
	mockSender := new(MockMessageSender)
	clientManager := newTestClientManager(mockGameManager)
	clientManager.sender = mockSender

	chat := testPhone + "@s.whatsapp.net"
	group := "120363000000000000@g.us"

	mockGameManager.On("GetPlayer", testPhone).Return(testPlayer(), nil)
	mockGameManager.On("ResetCompetence", testPhone, "").Return(nil)

	// Test case 1: Private command is answered in the same chat
	mockSender.On("SendMessage", "5521000000000", chat, mock.MatchedBy(func(msg string) bool {
		return len(msg) > 0
	})).Return("msg-1", nil).Once()

	clientManager.dispatch("5521000000000", testPhone, chat, false, "/reset")

	// Test case 2: Plain chat text is ignored
	clientManager.dispatch("5521000000000", testPhone, chat, false, "hello there")

	// Test case 3: Group messages need the "/ " prefix
	clientManager.dispatch("5521000000000", testPhone, group, true, "/reset")

	mockSender.On("SendMessage", "5521000000000", group, mock.Anything).Return("msg-2", nil).Once()
	clientManager.dispatch("5521000000000", testPhone, group, true, "/ reset")

	// Test case 4: Send failures are only logged
	mockSender.On("SendMessage", "5521000000000", chat, mock.Anything).Return("", errors.New("offline")).Once()
	clientManager.dispatch("5521000000000", testPhone, chat, false, "/help")

	mockSender.AssertNumberOfCalls(t, "SendMessage", 3)
	mockSender.AssertExpectations(t)
	mockGameManager.AssertNumberOfCalls(t, "ResetCompetence", 2)
}

func TestSplitCommand(t *testing.T) {
	name, args := splitCommand("  /PLAY  Tokyo_Meeting ")
	assert.Equal(t, "/play", name)
	assert.Equal(t, "Tokyo_Meeting", args)

	name, args = splitCommand("/start Maria da Silva")
	assert.Equal(t, "/start", name)
	assert.Equal(t, "Maria da Silva", args)

	name, args = splitCommand("/help")
	assert.Equal(t, "/help", name)
	assert.Empty(t, args)
}

func TestParseJID(t *testing.T) {
	jid, err := parseJID("5521999999999")
	assert.NoError(t, err)
	assert.Equal(t, "5521999999999", jid.User)
	assert.Equal(t, "s.whatsapp.net", jid.Server)

	jid, err = parseJID("120363000000000000@g.us")
	assert.NoError(t, err)
	assert.Equal(t, "g.us", jid.Server)
}

func TestSendMessageWithoutClient(t *testing.T) {
	clientManager := newTestClientManager(new(MockGameManager))

	_, err := clientManager.SendMessage("5521000000000", testPhone, "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "client not found")
}
