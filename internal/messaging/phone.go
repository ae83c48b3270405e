package messaging

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	// WhatsAppJIDSuffix is appended to a bare number to form a Baileys JID.
	WhatsAppJIDSuffix = "@s.whatsapp.net"

	brazilCountryCode = "55"
)

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	phoneRunRe = regexp.MustCompile(`\d{10,13}`)
)

// Digits strips everything but decimal digits from s.
func Digits(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// ExtractPhone finds the first plausible Brazilian phone number inside
// free-form text and returns its digits, or "" when none is present.
func ExtractPhone(text string) string {
	digits := Digits(text)
	if run := phoneRunRe.FindString(digits); run != "" {
		return run
	}
	return ""
}

// FormatBR canonicalizes a Brazilian phone number to the 13-digit
// country-code form (55 + DDD + 9-digit mobile). Inputs may carry
// punctuation, a leading +, or omit the country code and the mobile 9.
// Returns "" when the input cannot be a Brazilian number.
func FormatBR(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}

	// Strip an already-present country code so length rules apply to the
	// national number.
	national := digits
	if strings.HasPrefix(national, brazilCountryCode) && len(national) >= 12 {
		national = national[len(brazilCountryCode):]
	}

	switch len(national) {
	case 10:
		// DDD + 8-digit subscriber: old mobile format, insert the 9.
		national = national[:2] + "9" + national[2:]
	case 11:
		// DDD + 9-digit subscriber, already canonical.
	default:
		return ""
	}

	canonical := brazilCountryCode + national
	if !ValidBR(canonical) {
		return ""
	}
	return canonical
}

// ValidBR reports whether a canonicalized number is a real Brazilian
// number. The length rules above cannot tell a nonexistent area code
// from a real one, so this checks against the numbering plan.
func ValidBR(canonical string) bool {
	if canonical == "" {
		return false
	}
	num, err := phonenumbers.Parse("+"+canonical, "BR")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// WhatsAppJID turns a phone number into the JID form the WhatsApp bridge
// expects. Already-formed JIDs pass through unchanged.
func WhatsAppJID(number string) string {
	if strings.Contains(number, "@") {
		return number
	}
	digits := Digits(number)
	if digits == "" {
		return ""
	}
	return digits + WhatsAppJIDSuffix
}

// SessionIDFromJID derives the session id used for a WhatsApp conversation
// from the sender JID.
func SessionIDFromJID(jid string) string {
	number := jid
	if i := strings.Index(jid, "@"); i >= 0 {
		number = jid[:i]
	}
	digits := Digits(number)
	if digits == "" {
		return ""
	}
	return "whatsapp_" + digits
}
