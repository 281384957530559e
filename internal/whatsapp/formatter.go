package whatsapp

import (
	"fmt"
	"strings"

	"github.com/user/etiquette-quest/internal/types"
)

// MessageFormatter handles formatting game messages for WhatsApp
type MessageFormatter struct{}

// NewMessageFormatter creates a new message formatter
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

func optionLetter(index int) string {
	return string(rune('A' + index))
}

// FormatInteraction renders a question with lettered options
func (mf *MessageFormatter) FormatInteraction(interaction *types.Interaction) string {
	var b strings.Builder
	if interaction.Situation != "" {
		fmt.Fprintf(&b, "_%s_\n\n", interaction.Situation)
	}
	fmt.Fprintf(&b, "*%s*\n\n", interaction.Prompt)
	for i, option := range interaction.Options {
		fmt.Fprintf(&b, "%s. %s\n", optionLetter(i), option.Text)
	}

	letters := make([]string, 0, len(interaction.Options))
	for i := range interaction.Options {
		letters = append(letters, "/"+strings.ToLower(optionLetter(i)))
	}
	fmt.Fprintf(&b, "\nAnswer with %s", strings.Join(letters, ", "))
	return b.String()
}

// FormatFeedback renders the outcome of one answer
func (mf *MessageFormatter) FormatFeedback(feedback types.Feedback) string {
	var b strings.Builder
	if feedback.Correct {
		fmt.Fprintf(&b, "✅ *Well done!* (%+d)\n", feedback.Points)
	} else {
		fmt.Fprintf(&b, "❌ *Not quite.* (%+d)\n", feedback.Points)
	}
	if feedback.Text != "" {
		b.WriteString(feedback.Text + "\n")
	}
	if feedback.Insight != "" {
		fmt.Fprintf(&b, "💡 %s\n", feedback.Insight)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatResult renders the summary of a completed scenario
func (mf *MessageFormatter) FormatResult(result *types.ScenarioResult) string {
	var b strings.Builder
	if result.Passed {
		b.WriteString("🎉 *SCENARIO COMPLETED* 🎉\n\n")
	} else {
		b.WriteString("📘 *SCENARIO FINISHED* 📘\n\n")
	}
	fmt.Fprintf(&b, "Score: %d/%d\n", result.Score, result.MaxScore)
	fmt.Fprintf(&b, "Correct answers: %d/%d\n", result.CorrectAnswers, result.TotalInteractions)
	fmt.Fprintf(&b, "Competence: %d points, *%s*\n", result.Points, result.Title)

	if len(result.InsightsUnlocked) > 0 {
		b.WriteString("\n*Cultural insights:*\n")
		for _, insight := range result.InsightsUnlocked {
			fmt.Fprintf(&b, "💡 %s\n", insight)
		}
	}
	if len(result.SkillsUnlocked) > 0 {
		fmt.Fprintf(&b, "\n🏅 Skills unlocked: %s\n", strings.Join(result.SkillsUnlocked, ", "))
	}
	if len(result.ScenariosUnlocked) > 0 {
		fmt.Fprintf(&b, "\n🔓 New scenarios: %s\n", strings.Join(result.ScenariosUnlocked, ", "))
	}
	if !result.Passed {
		b.WriteString("\nPlay it again to unlock what comes next.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatViews renders queued views in order
func (mf *MessageFormatter) FormatViews(views []types.View) string {
	parts := make([]string, 0, len(views))
	for _, view := range views {
		switch view.Kind {
		case types.ViewInteraction:
			parts = append(parts, mf.FormatInteraction(view.Interaction))
		case types.ViewResult:
			parts = append(parts, mf.FormatResult(view.Result))
		}
	}
	return strings.Join(parts, "\n\n")
}

// FormatCountries renders the country list of a player
func (mf *MessageFormatter) FormatCountries(countries []types.CountryStatus) string {
	var b strings.Builder
	b.WriteString("🌍 *DESTINATIONS* 🌍\n\n")
	for _, status := range countries {
		lock := "🔓"
		if !status.Unlocked {
			lock = "🔒"
		}
		fmt.Fprintf(&b, "%s *%s* (%s): %d points, %s\n", lock, status.Country.Name, status.Country.ID, status.Points, status.Title)
	}
	b.WriteString("\nSend /scenarios <country> to see its scenarios")
	return b.String()
}

// FormatScenarios renders the scenarios of a country
func (mf *MessageFormatter) FormatScenarios(scenarios []types.ScenarioStatus) string {
	var b strings.Builder
	b.WriteString("🎭 *SCENARIOS* 🎭\n\n")
	for _, status := range scenarios {
		mark := "🔓"
		switch {
		case status.Completed:
			mark = "✅"
		case !status.Unlocked:
			mark = "🔒"
		}
		fmt.Fprintf(&b, "%s *%s* (%s)\n", mark, status.Scenario.Title, status.Scenario.ID)
		if status.Scenario.Description != "" {
			fmt.Fprintf(&b, "   %s\n", status.Scenario.Description)
		}
		if !status.Unlocked {
			fmt.Fprintf(&b, "   Requires %s\n", status.Scenario.Prerequisite)
		}
	}
	b.WriteString("\nSend /play <scenario> to begin")
	return b.String()
}

// FormatCompetence renders the competence of a player in a country
func (mf *MessageFormatter) FormatCompetence(status *types.CompetenceStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s* 📊\n\n", strings.ToUpper(status.CountryName))
	fmt.Fprintf(&b, "Competence: %d points\n", status.Points)
	fmt.Fprintf(&b, "Title: *%s*\n\n", status.Title)

	b.WriteString("*Skills:*\n")
	for _, skill := range status.Skills {
		mark := "🔒"
		if skill.Unlocked {
			mark = "🏅"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, skill.Skill.Name)
	}
	if status.NextSkill != nil {
		fmt.Fprintf(&b, "\nNext skill: %s in %d points", status.NextSkill.Skill.Name, status.NextSkill.PointsNeeded)
	}
	return strings.TrimRight(b.String(), "\n")
}
