package intent

import (
	"regexp"
	"strings"
)

// fillerWords get stripped from voice transcripts before anything else looks
// at them.
var fillerWords = map[string]bool{
	"um": true, "uh": true, "umm": true, "uhh": true, "hmm": true,
	"like": true, "actually": true, "basically": true,
}

// numberWords maps spelled-out numbers onto digits, since speech-to-text
// output mixes both forms.
var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
}

// transcriptFixes repairs common speech-to-text mangles of city names and
// commands. Applied on the lowercased transcript before word-level passes.
var transcriptFixes = []struct {
	from string
	to   string
}{
	{"jai poor", "jaipur"},
	{"jay pore", "jaipur"},
	{"jaypur", "jaipur"},
	{"chen eye", "chennai"},
	{"chin eye", "chennai"},
	{"hider abad", "hyderabad"},
	{"hyder abad", "hyderabad"},
	{"bang galore", "bengaluru"},
	{"bangalore", "bengaluru"},
	{"my sore", "mysuru"},
	{"war a nasi", "varanasi"},
	// Recognizers hear "swap day" as "swap play" or drop the verb entirely,
	// leaving "play N" for "swap day N". Order matters: the swap-prefixed
	// form must win before the bare one reinserts the verb.
	{"swap play ", "swap day "},
	{"play ", "swap day "},
	{"place 1", "day 1"},
	{"place 2", "day 2"},
	{"place 3", "day 3"},
}

// dayHomophoneRe rewrites "day to/too/tu" as "day 2" when a day number is
// clearly meant; the lookahead keeps "day to remember" phrasing intact by
// requiring the homophone to end the phrase or precede a conjunction.
var dayHomophoneRe = regexp.MustCompile(`\bday\s+(?:to|too|tu)\b(\s+(?:and|with|$)|\s*$)`)

// NormalizeTranscript cleans a voice transcript: fillers out, number words
// to digits, known mishearings repaired. Text input passes through the same
// function harmlessly.
func NormalizeTranscript(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	for _, fix := range transcriptFixes {
		s = strings.ReplaceAll(s, fix.from, fix.to)
	}
	s = dayHomophoneRe.ReplaceAllString(s, "day 2$1")

	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	for _, w := range words {
		trimmed := strings.Trim(w, ",.!?")
		if fillerWords[trimmed] {
			continue
		}
		if digit, ok := numberWords[trimmed]; ok {
			// Replace only the core, keeping any trailing punctuation.
			w = strings.Replace(w, trimmed, digit, 1)
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
