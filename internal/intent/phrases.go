package intent

import "strings"

// greetingPhrases are exact-match openers that restart the conversation.
var greetingPhrases = map[string]bool{
	"hi":           true,
	"hello":        true,
	"hey":          true,
	"start":        true,
	"menu":         true,
	"help me":      true,
	"get started":  true,
	"good morning": true,
}

// terminationPhrases end the conversation on substring match.
var terminationPhrases = []string{
	"done", "bye", "goodbye", "thanks", "thank you", "exit", "quit", "stop",
}

// IsGreetingPhrase reports an exact greeting-phrase match. Used mid-flow,
// where short answers like "1" or "confirm" must not restart the menu.
func IsGreetingPhrase(text string) bool {
	return greetingPhrases[strings.ToLower(strings.TrimSpace(text))]
}

// IsGreeting reports whether a first-contact message should open the menu:
// a known greeting phrase, or a message so short it carries no intent.
func IsGreeting(text string) bool {
	norm := strings.ToLower(strings.TrimSpace(text))
	if greetingPhrases[norm] {
		return true
	}
	return norm != "" && len(strings.Fields(norm)) <= 2
}

// IsTermination reports whether a message ends the conversation.
func IsTermination(text string) bool {
	norm := strings.ToLower(strings.TrimSpace(text))
	for _, p := range terminationPhrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// Minimum length for a generated feature line to be kept.
const minFeatureLen = 10

// MaxGeneratedFeatures is the cap on AI-generated features per epic.
const MaxGeneratedFeatures = 8

// ParseFeatureList parses an AI feature response: one feature per line,
// leading numbering and bullets stripped, short lines dropped, capped at
// MaxGeneratedFeatures.
func ParseFeatureList(text string) []string {
	var features []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "0123456789.-*• ")
		if len(line) > minFeatureLen {
			features = append(features, line)
			if len(features) == MaxGeneratedFeatures {
				break
			}
		}
	}
	return features
}
