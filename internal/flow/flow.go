package flow

import "time"

// StepType selects the validation and normalization rules for a step.
type StepType string

const (
	StepTypeName            StepType = "name"
	StepTypeArea            StepType = "area"
	StepTypeCaseDescription StepType = "case_description"
	StepTypeContact         StepType = "contact_combined"
	StepTypeConfirmation    StepType = "confirmation"
	StepTypeFreeText        StepType = "free_text"
)

// Validation holds the acceptance rules for a single step.
type Validation struct {
	Required     bool              `json:"required"`
	MinLength    int               `json:"min_length"`
	MinWords     int               `json:"min_words"`
	Type         StepType          `json:"type"`
	NormalizeMap map[string]string `json:"normalize_map,omitempty"`
}

// Step is one scripted question of the intake flow.
type Step struct {
	ID           int        `json:"id"`
	Field        string     `json:"field"`
	Question     string     `json:"question"`
	Validation   Validation `json:"validation"`
	ErrorMessage string     `json:"error_message"`
}

// Flow is the ordered script of qualification questions.
type Flow struct {
	Steps             []Step    `json:"steps"`
	CompletionMessage string    `json:"completion_message"`
	Version           string    `json:"version"`
	Description       string    `json:"description"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Step returns the step with the given id.
func (f *Flow) Step(id int) (Step, bool) {
	for _, s := range f.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// LastStepID returns the highest step id in the flow, or 0 when empty.
func (f *Flow) LastStepID() int {
	last := 0
	for _, s := range f.Steps {
		if s.ID > last {
			last = s.ID
		}
	}
	return last
}

// Normalize rewrites step ids to be contiguous starting at 1 and fills in
// defaults for missing fields. The state machine assumes "next step = current+1".
func (f *Flow) Normalize() {
	for i := range f.Steps {
		f.Steps[i].ID = i + 1
		if f.Steps[i].Field == "" {
			f.Steps[i].Field = defaultFieldForIndex(i)
		}
		if f.Steps[i].ErrorMessage == "" {
			f.Steps[i].ErrorMessage = defaultErrorMessage
		}
	}
	if f.CompletionMessage == "" {
		f.CompletionMessage = defaultCompletionMessage
	}
}

func defaultFieldForIndex(i int) string {
	fields := []string{"identification", "area_qualification", "problem_description", "consent"}
	if i < len(fields) {
		return fields[i]
	}
	return "step_" + string(rune('0'+i+1))
}

const (
	defaultErrorMessage = "Desculpe, não entendi sua resposta. Pode tentar novamente?"

	defaultCompletionMessage = "Perfeito, {user_name}! Suas informações foram registradas com sucesso. " +
		"Nossa equipe especializada analisará seu caso e entrará em contato em breve. " +
		"Obrigado por escolher nossos serviços jurídicos!"

	// PhonePrompt is appended to the completion message when no phone number
	// could be extracted from the collected answers.
	PhonePrompt = "📱 Para finalizar, preciso do seu número de WhatsApp para que nossos advogados entrem em contato:"
)

// Default returns the built-in law-firm intake flow used when no flow document
// exists in the store.
func Default() *Flow {
	f := &Flow{
		Steps: []Step{
			{
				ID:       1,
				Field:    "identification",
				Question: "Olá! Seja bem-vindo ao m.lima. Estou aqui para entender seu caso e agilizar o contato com um de nossos advogados especializados.\n\nPara começar, qual é o seu nome completo?",
				Validation: Validation{
					Required:  true,
					MinLength: 2,
					MinWords:  2,
					Type:      StepTypeName,
				},
				ErrorMessage: "Por favor, informe seu nome completo (nome e sobrenome).",
			},
			{
				ID:       2,
				Field:    "area_qualification",
				Question: "Obrigado, {user_name}! Em qual área do direito você precisa de ajuda?\n\n• Penal\n• Saúde Liminar",
				Validation: Validation{
					Required:  true,
					MinLength: 3,
					Type:      StepTypeArea,
					NormalizeMap: map[string]string{
						"penal":    AreaCriminal,
						"criminal": AreaCriminal,
						"crime":    AreaCriminal,
						"saude":    AreaHealth,
						"saúde":    AreaHealth,
						"liminar":  AreaHealth,
					},
				},
				ErrorMessage: "No momento atendemos apenas as áreas Penal e Saúde Liminar. Qual delas se aplica ao seu caso?",
			},
			{
				ID:       3,
				Field:    "problem_description",
				Question: "Entendi, {user_name}. Por favor, descreva brevemente sua situação ou problema jurídico.",
				Validation: Validation{
					Required:  true,
					MinLength: 10,
					MinWords:  3,
					Type:      StepTypeCaseDescription,
				},
				ErrorMessage: "Preciso de um pouco mais de detalhes para encaminhar seu caso. Pode descrever melhor a situação?",
			},
			{
				ID:       4,
				Field:    "consent",
				Question: "Gostaria de agendar uma consulta com nosso advogado especializado? (Sim ou Não)",
				Validation: Validation{
					Required: true,
					Type:     StepTypeConfirmation,
				},
				ErrorMessage: "Por favor, responda Sim ou Não.",
			},
		},
		CompletionMessage: defaultCompletionMessage,
		Version:           "1.0",
		Description:       "Fluxo de captação de leads para escritório de advocacia",
		UpdatedAt:         time.Now().UTC(),
	}
	return f
}
