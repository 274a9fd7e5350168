package pages

import (
	"fmt"
	"strings"

	"github.com/lazyboycode/rawg-game-hub/rawg"
)

const placeholderLine = "  ░░░░░░░░░░░░░░░░░░░░░░░░"

// formatPlaceholders renders n skeleton rows
func formatPlaceholders(n int) string {
	var output string
	for i := 0; i < n; i++ {
		output += placeholderLine + "\n"
	}
	return output
}

// formatGame renders one games list row, e.g.
// "- Portal 2 (2011-04-18) ★ 4.6 [PC, PlayStation]"
func formatGame(g rawg.Game) string {
	output := "- " + g.Name
	if g.Released != "" {
		output += fmt.Sprintf(" (%s)", g.Released)
	}
	if g.Rating > 0 {
		output += fmt.Sprintf(" ★ %.1f", g.Rating)
	}
	if g.Metacritic != nil {
		output += fmt.Sprintf(" MC %d", *g.Metacritic)
	}
	if len(g.ParentPlatforms) > 0 {
		names := make([]string, 0, len(g.ParentPlatforms))
		for _, p := range g.ParentPlatforms {
			names = append(names, p.Platform.Name)
		}
		output += " [" + strings.Join(names, ", ") + "]"
	}
	return output + "\n"
}

func formatGames(games []rawg.Game) string {
	if len(games) == 0 {
		return "No games found.\n"
	}
	var output string
	for _, g := range games {
		output += formatGame(g)
	}
	return output
}
