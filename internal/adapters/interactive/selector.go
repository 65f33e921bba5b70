package interactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
)

// ErrNonInteractive is returned when a prompt is needed but disabled
var ErrNonInteractive = errors.New("interactive prompt not available in non-interactive mode")

// Prompter asks the operator questions on the terminal
type Prompter struct {
	nonInteractive bool
}

// NewPrompter creates a new prompter
func NewPrompter(nonInteractive bool) *Prompter {
	return &Prompter{nonInteractive: nonInteractive}
}

// Enabled reports whether prompts may be shown
func (p *Prompter) Enabled() bool { return !p.nonInteractive }

// Confirm asks a yes/no question. Declining is not an error.
func (p *Prompter) Confirm(label string) (bool, error) {
	if p.nonInteractive {
		return false, ErrNonInteractive
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return true, nil
}

// SelectNetwork lets the operator pick a network with fuzzy search
func (p *Prompter) SelectNetwork(names []string) (string, error) {
	if p.nonInteractive {
		return "", ErrNonInteractive
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no networks configured")
	}
	if len(names) == 1 {
		return names[0], nil
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, type to search, Enter to select"),
	}

	sel := promptui.Select{
		Label:     "Select network",
		Items:     names,
		Templates: templates,
		Size:      10,
		Searcher:  fuzzySearcher(names),
	}

	index, _, err := sel.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return names[index], nil
}

// fuzzySearcher matches by substring first, then fuzzily
func fuzzySearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}
		input = strings.ToLower(input)
		item := strings.ToLower(items[index])
		if strings.Contains(item, input) {
			return true
		}
		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

// Suggest returns the candidates closest to input, best first
func Suggest(input string, candidates []string, limit int) []string {
	matches := fuzzy.Find(strings.ToLower(input), lower(candidates))
	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, candidates[m.Index])
	}
	return out
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
