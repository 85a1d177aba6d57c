// Package panel shows the channel indicators in a terminal.
package panel

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chase3718/midiwire/internal/activity"
)

const (
	ledOn  = '●'
	ledOff = '○'
)

var (
	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5f5f87"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a"))
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d7afff")).Bold(true)
)

// labels names each light. Lights 1..8 carry channels n and n+8, the last
// one lights for any channel above 8.
var labels = [activity.Indicators]string{"1", "2", "3", "4", "5", "6", "7", "8", "9+"}

// Render draws the indicator row with a label line underneath.
func Render(s activity.State) string {
	leds := make([]string, len(s))
	names := make([]string, len(s))
	for i, lit := range s {
		w := lipgloss.Width(labels[i])
		if lit {
			leds[i] = onStyle.Width(w).Render(string(ledOn))
		} else {
			leds[i] = offStyle.Width(w).Render(string(ledOff))
		}
		names[i] = labelStyle.Render(labels[i])
	}
	return strings.Join(leds, " ") + "\n" + strings.Join(names, " ")
}
