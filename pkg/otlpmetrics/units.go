package otlpmetrics

import "strings"

// wordToUCUM maps an English unit word to its UCUM symbol.
// https://ucum.org/ucum#section-Alphabetic-Index-By-Symbol
var wordToUCUM = map[string]string{
	// Time
	"days":         "d",
	"hours":        "h",
	"minutes":      "min",
	"seconds":      "s",
	"milliseconds": "ms",
	"microseconds": "us",
	"nanoseconds":  "ns",
	// Bytes
	"bytes":     "By",
	"kibibytes": "KiBy",
	"mebibytes": "MiBy",
	"gibibytes": "GiBy",
	"tibibytes": "TiBy",
	"kilobytes": "KBy",
	"megabytes": "MBy",
	"gigabytes": "GBy",
	"terabytes": "TBy",
	// SI
	"kilometers": "km",
	"meters":     "m",
	"volts":      "V",
	"amperes":    "A",
	"joules":     "J",
	"watts":      "W",
	"grams":      "g",
	// Misc
	"celsius":    "Cel",
	"C":          "°C",
	"fahrenheit": "°F",
	"F":          "°F",
	"hertz":      "Hz",
	"ratio":      "1",
	"percent":    "%",
	"packets":    "{packets}",
	"requests":   "{requests}",
}

var ucumToWord = invert(wordToUCUM)

// perWordToUCUM maps the "per <word>" half of a rate name (e.g.
// "meters_per_second") to its UCUM denominator symbol.
var perWordToUCUM = map[string]string{
	"second": "s",
	"minute": "m",
	"hour":   "h",
	"day":    "d",
	"week":   "w",
	"month":  "mo",
	"year":   "y",
}

var ucumToPerWord = invert(perWordToUCUM)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for _, v := range m {
		out[v] = v
	}
	return out
}

func wordToUCUMOrDefault(word string) string {
	if ucum, ok := wordToUCUM[word]; ok {
		return ucum
	}
	if ucum, ok := ucumToWord[word]; ok {
		return ucum
	}
	return word
}

func perWordToUCUMOrDefault(word string) string {
	if ucum, ok := perWordToUCUM[word]; ok {
		return ucum
	}
	if ucum, ok := ucumToPerWord[word]; ok {
		return ucum
	}
	return word
}

// UnitWordToUCUM converts a unit word (or "_per_"-joined rate, e.g.
// "meters_per_second") into its UCUM form. For counters only, a trailing
// "_total" token is stripped before lookup, since that suffix belongs to
// the metric name's total-count convention rather than the unit itself.
func UnitWordToUCUM(word string, isCounter bool) string {
	parts := strings.SplitN(word, "_per_", 2)
	base := strings.Split(parts[0], "_")
	if isCounter {
		base = removeSuffix(base, "total")
	}
	if len(base) == 0 {
		return ""
	}
	ucum := wordToUCUMOrDefault(base[0])

	if len(parts) > 1 && parts[1] != "" {
		ucum += "/" + perWordToUCUMOrDefault(parts[1])
	}
	return ucum
}

func removeSuffix(tokens []string, suffix string) []string {
	if len(tokens) > 0 && tokens[len(tokens)-1] == suffix {
		return tokens[:len(tokens)-1]
	}
	return tokens
}

// wordUnitFromName extracts the trailing unit word (and, for counters, a
// "total" marker) from a metric name, e.g. "http_request_duration_seconds"
// -> "seconds", "requests_total" (counter) -> "requests_total". Returns ""
// if the last name segment isn't a known unit word.
func wordUnitFromName(name string, isCounter bool) string {
	var perToken string
	nameParts := strings.SplitN(name, "_per_", 2)
	if len(nameParts) > 1 {
		perToken = nameParts[1]
	}

	tokens := strings.Split(nameParts[0], "_")
	tokensLen := len(tokens)
	if isCounter {
		tokens = removeSuffix(tokens, "total")
	}

	var unit string
	if tokensLen > len(tokens) {
		unit = "total"
	}

	last := tokens[len(tokens)-1]
	_, known := wordToUCUM[last]
	_, knownInvert := ucumToWord[last]
	if !known && !knownInvert {
		return ""
	}

	if unit != "" {
		unit = "_" + unit
	}
	unit = last + unit

	_, perKnown := perWordToUCUM[perToken]
	_, perKnownInvert := ucumToPerWord[perToken]
	if perToken != "" && (perKnown || perKnownInvert) {
		unit += "_per_" + perToken
	}
	return unit
}

// sanitizeName strips the trailing unitWord from name; the underscore
// that separated it is kept ("http_request_duration_seconds" ->
// "http_request_duration_").
func sanitizeName(name, unitWord string) string {
	if unitWord == "" {
		return name
	}
	if len(unitWord) >= len(name) {
		return name
	}
	return name[:len(name)-len(unitWord)]
}
