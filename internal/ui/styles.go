package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorFact      = lipgloss.Color("78")  // Green
	colorOpinion   = lipgloss.Color("209") // Orange
	colorMixed     = lipgloss.Color("220") // Yellow
	colorLeft      = lipgloss.Color("39")  // Blue
	colorRight     = lipgloss.Color("203") // Red
)

// SelectedItem style for the currently highlighted article.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for unselected articles.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// MetaItem style for ages and leaders.
var MetaItem = lipgloss.NewStyle().
	Foreground(colorMuted)

// PickMark marks an article picked for comparison.
var PickMark = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

var (
	TabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 1)

	TabInactive = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Padding(0, 1)
)

// Card frames an analysis or comparison.
var Card = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(0, 1)

// CardTitle is the headline inside a card.
var CardTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// CardLabel prefixes a field inside a card.
var CardLabel = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Bold(true)

// GaugeFact and GaugeOpinion fill the fact/opinion bar.
var (
	GaugeFact    = lipgloss.NewStyle().Foreground(colorFact)
	GaugeOpinion = lipgloss.NewStyle().Foreground(colorOpinion)
)

// TierBadge colors per fact-ratio tier.
var TierBadge = map[string]lipgloss.Style{
	"fact-based": lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(colorFact).Padding(0, 1),
	"mixed":      lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(colorMixed).Padding(0, 1),
	"opinion":    lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(colorOpinion).Padding(0, 1),
}

// LeanColor colors a stance lean.
var LeanColor = map[string]lipgloss.Color{
	"left":   colorLeft,
	"center": colorSecondary,
	"right":  colorRight,
}

// ChatUser and ChatAssistant prefix chat turns.
var (
	ChatUser      = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	ChatAssistant = lipgloss.NewStyle().Foreground(colorFact).Bold(true)
)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for notices.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for empty states.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// InputBar frames the chat input.
var InputBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)
