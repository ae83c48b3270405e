package flow

import "strings"

// fieldAliases maps each canonical semantic field to every template spelling
// that should resolve to it. The renderer and the state machine both consult
// this table, so a value collected under one name satisfies placeholders
// written with any of the others.
var fieldAliases = map[string][]string{
	"identification": {
		"identification", "name", "user_name", "username", "userName",
		"user-name", "nome", "usuario", "cliente",
	},
	"area_qualification": {
		"area_qualification", "area", "area_of_law", "area_direito", "categoria",
	},
	"problem_description": {
		"problem_description", "situation", "case_details", "descricao", "situacao",
	},
	"contact_info": {
		"contact_info", "contact", "contato",
	},
	"phone_number": {
		"phone_number", "phone", "whatsapp", "telefone", "celular",
	},
	"consent": {
		"consent", "consentimento", "agendamento",
	},
}

// AliasKeys returns every accepted spelling for the given field, including the
// field itself. Unknown fields alias only to themselves.
func AliasKeys(field string) []string {
	if aliases, ok := fieldAliases[field]; ok {
		return aliases
	}
	for _, aliases := range fieldAliases {
		for _, a := range aliases {
			if strings.EqualFold(a, field) {
				return aliases
			}
		}
	}
	return []string{field}
}

// CanonicalField resolves any alias spelling back to its canonical field name.
func CanonicalField(name string) string {
	for canonical, aliases := range fieldAliases {
		for _, a := range aliases {
			if strings.EqualFold(a, name) {
				return canonical
			}
		}
	}
	return name
}

// looksLikeNameToken reports whether a placeholder name appears to denote the
// user's name. Unresolved name placeholders fall back to any known name value
// instead of being stripped.
func looksLikeNameToken(token string) bool {
	lower := strings.ToLower(token)
	for _, hint := range []string{"name", "nome", "user", "usuario", "cliente"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
