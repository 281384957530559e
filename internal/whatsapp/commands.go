package whatsapp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/etiquette-quest/internal/game"
	"go.uber.org/zap"
)

const notRegisteredMessage = "You are not registered yet. Send /start <your name> to begin your journey! ✈️"

// answerLetters maps answer commands to option indexes
var answerLetters = map[string]int{"/a": 0, "/b": 1, "/c": 2, "/d": 3, "/e": 4, "/f": 5}

// processGameCommand handles a chat command from a player and returns the reply
func (cm *ClientManager) processGameCommand(sender, command string) string {
	name, args := splitCommand(command)

	cm.logger.Debug("Processing command",
		zap.String("sender", sender),
		zap.String("command", name))

	if name == "/start" {
		return cm.handleStartCommand(sender, args)
	}
	if name == "/help" {
		return cm.handleHelpCommand()
	}

	if _, err := cm.gameManager.GetPlayer(sender); err != nil {
		return notRegisteredMessage
	}

	if index, ok := answerLetters[name]; ok {
		return cm.handleAnswerCommand(sender, index)
	}

	switch name {
	case "/countries":
		return cm.handleCountriesCommand(sender)
	case "/scenarios":
		return cm.handleScenariosCommand(sender, args)
	case "/play":
		return cm.handlePlayCommand(sender, args)
	case "/question":
		return cm.handleQuestionCommand(sender)
	case "/status":
		return cm.handleStatusCommand(sender, args)
	case "/quit":
		return cm.handleQuitCommand(sender)
	case "/reset":
		return cm.handleResetCommand(sender, args)
	default:
		return fmt.Sprintf("Unknown command %q. Send /help to see what you can do.", name)
	}
}

// splitCommand lower-cases the command word and keeps the arguments as typed
func splitCommand(command string) (string, string) {
	command = strings.TrimSpace(command)
	name, args, _ := strings.Cut(command, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (cm *ClientManager) handleStartCommand(sender, name string) string {
	if player, err := cm.gameManager.GetPlayer(sender); err == nil {
		return fmt.Sprintf("Welcome back, *%s*! 👋\n\nSend /countries to pick your next destination.", player.Name)
	}

	if name == "" {
		return "Tell me your name to begin: /start <your name>"
	}

	player, err := cm.gameManager.RegisterPlayer(sender, name)
	if err != nil {
		cm.logger.Error("Failed to register player",
			zap.String("sender", sender),
			zap.Error(err))
		return "Sorry, I could not register you right now. Please try again."
	}

	return fmt.Sprintf("🌏 Welcome to *Etiquette Quest*, %s! 🌏\n\n"+
		"Travel the world and learn how to behave like a local.\n"+
		"Send /countries to see your destinations or /help for all commands.", player.Name)
}

func (cm *ClientManager) handleCountriesCommand(sender string) string {
	countries, err := cm.gameManager.ListCountries(sender)
	if err != nil {
		return cm.errorMessage(sender, err)
	}
	return cm.formatter.FormatCountries(countries)
}

func (cm *ClientManager) handleScenariosCommand(sender, countryID string) string {
	if countryID == "" {
		return "Which country? Send /scenarios <country>, for example /scenarios japan"
	}
	scenarios, err := cm.gameManager.ListScenarios(sender, strings.ToLower(countryID))
	if err != nil {
		return cm.errorMessage(sender, err)
	}
	return cm.formatter.FormatScenarios(scenarios)
}

func (cm *ClientManager) handlePlayCommand(sender, scenarioID string) string {
	if scenarioID == "" {
		return "Which scenario? Send /play <scenario>, for example /play tokyo_meeting"
	}
	if _, err := cm.gameManager.StartScenario(sender, strings.ToLower(scenarioID)); err != nil {
		return cm.errorMessage(sender, err)
	}
	return cm.formatter.FormatViews(cm.gameManager.DrainDisplay(sender))
}

func (cm *ClientManager) handleQuestionCommand(sender string) string {
	interaction, err := cm.gameManager.CurrentInteraction(sender)
	if err != nil {
		return cm.errorMessage(sender, err)
	}
	cm.gameManager.DrainDisplay(sender)
	return cm.formatter.FormatInteraction(interaction)
}

func (cm *ClientManager) handleAnswerCommand(sender string, index int) string {
	step, err := cm.gameManager.SelectCurrent(sender, index)
	if err != nil {
		return cm.errorMessage(sender, err)
	}

	reply := cm.formatter.FormatFeedback(step.Feedback)
	if views := cm.formatter.FormatViews(cm.gameManager.DrainDisplay(sender)); views != "" {
		reply += "\n\n" + views
	}
	return reply
}

func (cm *ClientManager) handleStatusCommand(sender, countryID string) string {
	if countryID != "" {
		status, err := cm.gameManager.GetCompetence(sender, strings.ToLower(countryID))
		if err != nil {
			return cm.errorMessage(sender, err)
		}
		return cm.formatter.FormatCompetence(status)
	}

	countries, err := cm.gameManager.ListCountries(sender)
	if err != nil {
		return cm.errorMessage(sender, err)
	}

	parts := make([]string, 0, len(countries))
	for _, country := range countries {
		status, err := cm.gameManager.GetCompetence(sender, country.Country.ID)
		if err != nil {
			return cm.errorMessage(sender, err)
		}
		parts = append(parts, cm.formatter.FormatCompetence(status))
	}
	return strings.Join(parts, "\n\n")
}

func (cm *ClientManager) handleQuitCommand(sender string) string {
	if err := cm.gameManager.AbandonScenario(sender); err != nil {
		return cm.errorMessage(sender, err)
	}
	cm.gameManager.DrainDisplay(sender)
	return "Scenario abandoned. Your competence is unchanged. 🧳"
}

func (cm *ClientManager) handleResetCommand(sender, countryID string) string {
	countryID = strings.ToLower(countryID)
	if err := cm.gameManager.ResetCompetence(sender, countryID); err != nil {
		return cm.errorMessage(sender, err)
	}
	if countryID == "" {
		return "All your progress was reset. Time for a fresh start! 🔄"
	}
	return fmt.Sprintf("Your progress in %s was reset. 🔄", countryID)
}

func (cm *ClientManager) handleHelpCommand() string {
	return "🧭 *ETIQUETTE QUEST* 🧭\n\n" +
		"*Getting started:*\n" +
		"/start <name> - register\n" +
		"/countries - your destinations\n" +
		"/scenarios <country> - scenarios of a country\n\n" +
		"*Playing:*\n" +
		"/play <scenario> - start a scenario\n" +
		"/a, /b, /c, /d - answer the current question\n" +
		"/question - repeat the current question\n" +
		"/quit - abandon the current scenario\n\n" +
		"*Progress:*\n" +
		"/status [country] - competence and skills\n" +
		"/reset [country] - start over\n\n" +
		"In groups, start commands with \"/ \""
}

// errorMessage turns a game error into a chat reply
func (cm *ClientManager) errorMessage(sender string, err error) string {
	var locked *game.ScenarioLockedError
	switch {
	case errors.As(err, &locked):
		return fmt.Sprintf("🔒 That scenario is locked. Complete *%s* first.", locked.Prerequisite)
	case errors.Is(err, game.ErrNoActiveAttempt):
		return "You are not playing a scenario. Send /play <scenario> to start one."
	case errors.Is(err, game.ErrUnknownOption):
		return "That answer is not an option. Send /question to see the choices again."
	case errors.Is(err, game.ErrUnknownScenario):
		return "I don't know that scenario. Send /scenarios <country> to see the list."
	case errors.Is(err, game.ErrUnknownCountry):
		return "I don't know that country. Send /countries to see the list."
	case errors.Is(err, game.ErrPlayerNotFound):
		return notRegisteredMessage
	}

	cm.logger.Error("Command failed",
		zap.String("sender", sender),
		zap.Error(err))
	return "Something went wrong. Please try again."
}
