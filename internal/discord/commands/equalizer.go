package commands

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/cadence/internal/discord"
	"github.com/MrWong99/cadence/pkg/audio"
)

// suggestThreshold is the Jaro-Winkler similarity above which an unknown
// equalizer name is answered with a suggestion.
const suggestThreshold = 0.8

type scoredEqualizer struct {
	eq    audio.Equalizer
	score float64
}

// rankEqualizers orders the presets by similarity to input. Presets that
// start with input come first.
func rankEqualizers(input string) []scoredEqualizer {
	input = strings.ToLower(strings.TrimSpace(input))
	eqs := audio.Equalizers()
	ranked := make([]scoredEqualizer, 0, len(eqs))
	for _, eq := range eqs {
		s := scoredEqualizer{eq: eq}
		switch {
		case input == "":
		case strings.HasPrefix(eq.String(), input):
			s.score = 1 + matchr.JaroWinkler(input, eq.String(), false)
		default:
			s.score = matchr.JaroWinkler(input, eq.String(), false)
		}
		ranked = append(ranked, s)
	}
	if input != "" {
		slices.SortStableFunc(ranked, func(a, b scoredEqualizer) int {
			return cmp.Compare(b.score, a.score)
		})
	}
	return ranked
}

// invalidEqualizer is the reply to an unknown preset name.
func invalidEqualizer(name string) string {
	var b strings.Builder
	b.WriteString("Invalid equalizer provided.")
	if ranked := rankEqualizers(name); strings.TrimSpace(name) != "" && ranked[0].score >= suggestThreshold {
		fmt.Fprintf(&b, " Did you mean `%s`?", ranked[0].eq)
	}
	b.WriteString(" Available equalizers:\n\n")
	b.WriteString(strings.Join(audio.EqualizerNames(), "\n"))
	return b.String()
}

// equalizerChoices answers autocomplete for the equalizer name.
func equalizerChoices(input string) []*discordgo.ApplicationCommandOptionChoice {
	ranked := rankEqualizers(input)
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(ranked))
	for i, r := range ranked {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: r.eq.String(), Value: r.eq.String()}
	}
	return choices
}

func (mc *MusicCommands) autocompleteEqualizer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var input string
	for _, o := range i.ApplicationCommandData().Options {
		if o.Focused {
			input, _ = o.Value.(string)
		}
	}
	discord.RespondChoices(s, i, equalizerChoices(input))
}
