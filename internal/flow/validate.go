package flow

import (
	"regexp"
	"strings"
	"unicode"
)

// Canonical area-of-law labels. The firm takes cases in exactly these two
// categories.
const (
	AreaCriminal = "Direito Penal"
	AreaHealth   = "Saúde/Liminares"
)

// areaKeywords maps lowercase pt-BR keywords to the canonical category.
var areaKeywords = map[string]string{
	"penal":          AreaCriminal,
	"criminal":       AreaCriminal,
	"crime":          AreaCriminal,
	"processo penal": AreaCriminal,
	"delegacia":      AreaCriminal,
	"prisao":         AreaCriminal,
	"prisão":         AreaCriminal,
	"audiencia":      AreaCriminal,
	"audiência":      AreaCriminal,
	"saude":          AreaHealth,
	"saúde":          AreaHealth,
	"liminar":        AreaHealth,
	"liminares":      AreaHealth,
	"plano de saude": AreaHealth,
	"plano de saúde": AreaHealth,
	"medicamento":    AreaHealth,
	"cirurgia":       AreaHealth,
	"convenio":       AreaHealth,
	"convênio":       AreaHealth,
}

// greetings and acknowledgments that are never a real answer to a
// name/area/description question.
var nonAnswers = map[string]struct{}{
	"oi": {}, "ola": {}, "olá": {}, "hello": {}, "hi": {}, "hey": {},
	"bom dia": {}, "boa tarde": {}, "boa noite": {}, "eai": {}, "e aí": {},
	"ok": {}, "blz": {}, "beleza": {}, "ta": {}, "tá": {}, "tabom": {},
	"valeu": {}, "obrigado": {}, "obrigada": {}, "sim": {}, "nao": {}, "não": {},
	"oi tudo bem": {}, "tudo bem": {}, "start": {}, "começar": {}, "comecar": {},
}

var confirmationTokens = map[string]struct{}{
	"sim": {}, "s": {}, "yes": {}, "claro": {}, "quero": {}, "pode": {},
	"ok": {}, "positivo": {}, "com certeza": {}, "isso": {},
	"nao": {}, "não": {}, "n": {}, "no": {}, "negativo": {}, "talvez": {},
}

var (
	phoneRunRe = regexp.MustCompile(`\d{10,13}`)
	emailRe    = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

var contactKeywords = []string{"whatsapp", "telefone", "celular", "zap", "email", "e-mail", "contato"}

// Validate reports whether a raw user answer satisfies a step's rules.
// When flexible is true, minimum-length and category-keyword constraints are
// relaxed so a conversation can never stall indefinitely.
func Validate(answer string, step Step, flexible bool) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return !step.Validation.Required
	}

	switch step.Validation.Type {
	case StepTypeConfirmation:
		// Confirmation steps are never strict.
		return true
	case StepTypeName:
		return validateName(answer, flexible)
	case StepTypeArea:
		return validateArea(answer, step, flexible)
	case StepTypeCaseDescription:
		return validateDescription(answer, step, flexible)
	case StepTypeContact:
		return validateContact(answer, flexible)
	default:
		if flexible {
			return true
		}
		return len(answer) >= step.Validation.MinLength
	}
}

func validateName(answer string, flexible bool) bool {
	if isNonAnswer(answer) || isRepeatedNoise(answer) {
		return false
	}
	if isPureNumeric(answer) {
		return false
	}
	if flexible {
		return len([]rune(answer)) >= 2
	}
	words := meaningfulWords(answer)
	if len(words) >= 2 {
		return true
	}
	// Compound single names (e.g. "Maria-Clara") pass on length alone.
	return len([]rune(answer)) >= 6
}

func validateArea(answer string, step Step, flexible bool) bool {
	if isNonAnswer(answer) || isRepeatedNoise(answer) {
		return false
	}
	if flexible {
		return len([]rune(answer)) >= 1
	}
	if len([]rune(answer)) < step.Validation.MinLength {
		return false
	}
	_, ok := matchArea(answer, step.Validation.NormalizeMap)
	return ok
}

func validateDescription(answer string, step Step, flexible bool) bool {
	if isNonAnswer(answer) || isRepeatedNoise(answer) {
		return false
	}
	if flexible {
		return len([]rune(answer)) >= 1
	}
	minLen := step.Validation.MinLength
	if minLen == 0 {
		minLen = 10
	}
	minWords := step.Validation.MinWords
	if minWords == 0 {
		minWords = 3
	}
	return len([]rune(answer)) >= minLen && len(strings.Fields(answer)) >= minWords
}

func validateContact(answer string, flexible bool) bool {
	if phoneRunRe.MatchString(nonDigitRe.ReplaceAllString(answer, "")) {
		return true
	}
	if emailRe.MatchString(answer) {
		return true
	}
	lower := strings.ToLower(answer)
	for _, kw := range contactKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return flexible
}

// Normalize canonicalizes an accepted answer for storage.
func Normalize(answer string, step Step) string {
	answer = strings.TrimSpace(answer)

	// A normalize-map hit wins outright.
	lower := strings.ToLower(answer)
	for key, canonical := range step.Validation.NormalizeMap {
		if strings.Contains(lower, strings.ToLower(key)) {
			return canonical
		}
	}

	switch step.Validation.Type {
	case StepTypeName:
		return titleCase(answer)
	case StepTypeArea:
		if canonical, ok := matchArea(answer, nil); ok {
			return canonical
		}
		return titleCase(answer)
	case StepTypeContact:
		return answer
	case StepTypeConfirmation:
		if IsAffirmative(answer) {
			return "Sim"
		}
		return "Não"
	default:
		return answer
	}
}

// matchArea resolves an area answer to its canonical label via the step's own
// normalize map first, then the built-in keyword table.
func matchArea(answer string, stepMap map[string]string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(answer))
	for key, canonical := range stepMap {
		if strings.Contains(lower, strings.ToLower(key)) {
			return canonical, true
		}
	}
	for key, canonical := range areaKeywords {
		if strings.Contains(lower, key) {
			return canonical, true
		}
	}
	return "", false
}

// IsAffirmative reports whether a confirmation answer reads as a yes.
// Negative tokens are checked first so "acho que não" never counts as consent.
func IsAffirmative(answer string) bool {
	words := answerWords(answer)
	for _, w := range words {
		switch w {
		case "não", "nao", "n", "no", "nunca", "negativo":
			return false
		}
	}
	for _, w := range words {
		switch w {
		case "sim", "s", "yes", "claro", "quero", "pode", "ok", "positivo", "isso", "certeza":
			return true
		}
	}
	return false
}

// answerWords lowercases and strips punctuation from each word of an answer.
func answerWords(answer string) []string {
	fields := strings.Fields(strings.ToLower(answer))
	for i, w := range fields {
		fields[i] = strings.Trim(w, "!.?,;:")
	}
	return fields
}

// IsConfirmationToken reports whether the answer is one of the fixed
// affirmative/negative tokens.
func IsConfirmationToken(answer string) bool {
	_, ok := confirmationTokens[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}

// IsGreeting reports whether a message is a bare greeting or initiation token.
func IsGreeting(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.Trim(normalized, "!.?,")
	if normalized == "" {
		return false
	}
	switch normalized {
	case "oi", "ola", "olá", "hello", "hi", "hey", "bom dia", "boa tarde",
		"boa noite", "eai", "e aí", "start", "começar", "comecar", "iniciar":
		return true
	}
	return false
}

func isNonAnswer(answer string) bool {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	normalized = strings.Trim(normalized, "!.?,;:")
	if normalized == "" {
		return true
	}
	if _, ok := nonAnswers[normalized]; ok {
		return true
	}
	// Pure punctuation.
	onlyPunct := true
	for _, r := range answer {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) && !unicode.IsSymbol(r) {
			onlyPunct = false
			break
		}
	}
	return onlyPunct
}

// isRepeatedNoise catches keyboard noise such as "aaaa" or "kkkkk".
func isRepeatedNoise(answer string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(answer), ""))
	if len([]rune(compact)) < 3 {
		return false
	}
	first := []rune(compact)[0]
	for _, r := range compact {
		if r != first {
			return false
		}
	}
	return true
}

func isPureNumeric(answer string) bool {
	compact := strings.Join(strings.Fields(answer), "")
	if compact == "" {
		return false
	}
	for _, r := range compact {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// meaningfulWords returns the words of at least two runes in the answer.
func meaningfulWords(answer string) []string {
	var words []string
	for _, w := range strings.Fields(answer) {
		if len([]rune(w)) >= 2 {
			words = append(words, w)
		}
	}
	return words
}

// titleCase uppercases the first rune of each word, preserving the rest.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
