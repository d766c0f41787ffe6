package theme

import "github.com/charmbracelet/lipgloss"

// Palette, in 256-color codes.
var (
	ColorPrimary   = lipgloss.Color("36")  // Teal
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("196") // Red
	ColorBorder    = lipgloss.Color("238") // Dark gray
	ColorMuted     = lipgloss.Color("245") // Light gray
	ColorHighlight = lipgloss.Color("229") // Yellow
	ColorCursor    = lipgloss.Color("237")
	ColorText      = lipgloss.Color("252")
)

// Pane chrome.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(ColorText).
			Padding(0, 1)
)

// Text.
var (
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleHighlight = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)
)

// Result grid.
var (
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// StyleNull renders SQL NULL so it cannot be mistaken for the text "NULL".
	StyleNull = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Italic(true)

	StyleCursorRow = lipgloss.NewStyle().
			Background(ColorCursor)

	StyleCursorCell = lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(lipgloss.Color("0"))
)

// Help screen.
var (
	StyleHelpSection = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Bold(true)

	StyleHelpKey = lipgloss.NewStyle().
			Foreground(ColorText)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
