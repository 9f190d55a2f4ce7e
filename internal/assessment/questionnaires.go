package assessment

import (
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
)

// Questionnaire IDs.
const (
	Dehydration    = "dehydration"
	HeatExhaustion = "heat-exhaustion"
)

func opts(texts ...locale.Text) []Option {
	out := make([]Option, len(texts))
	for i, t := range texts {
		out[i] = Option{Value: i, Text: t}
	}
	return out
}

var builtin = []*Questionnaire{
	{
		ID:    Dehydration,
		Title: locale.Text{En: "Dehydration assessment", Es: "Evaluación de deshidratación"},
		Questions: []Question{
			{
				ID:     "thirst",
				Prompt: locale.Text{En: "How would you describe your thirst level?", Es: "¿Cómo describiría su nivel de sed?"},
				Options: opts(
					locale.Text{En: "No thirst", Es: "Sin sed"},
					locale.Text{En: "Mild thirst", Es: "Sed leve"},
					locale.Text{En: "Moderate thirst", Es: "Sed moderada"},
					locale.Text{En: "Extreme thirst", Es: "Sed extrema"},
				),
			},
			{
				ID:     "urination",
				Prompt: locale.Text{En: "How often have you urinated in the last 8 hours?", Es: "¿Con qué frecuencia ha orinado en las últimas 8 horas?"},
				Options: opts(
					locale.Text{En: "Normal frequency (4-6 times)", Es: "Frecuencia normal (4-6 veces)"},
					locale.Text{En: "Less than usual (2-3 times)", Es: "Menos de lo usual (2-3 veces)"},
					locale.Text{En: "Very little (1 time)", Es: "Muy poco (1 vez)"},
					locale.Text{En: "None at all", Es: "Nada en absoluto"},
				),
			},
			{
				ID:     "mouth",
				Prompt: locale.Text{En: "How does your mouth feel?", Es: "¿Cómo se siente su boca?"},
				Options: opts(
					locale.Text{En: "Normal moisture", Es: "Humedad normal"},
					locale.Text{En: "Slightly dry", Es: "Ligeramente seca"},
					locale.Text{En: "Very dry", Es: "Muy seca"},
					locale.Text{En: "Extremely dry and sticky", Es: "Extremadamente seca y pegajosa"},
				),
			},
			{
				ID: "skin",
				Prompt: locale.Text{
					En: "When you pinch the skin on the back of your hand, how quickly does it return to normal?",
					Es: "Cuando pellizca la piel del dorso de su mano, ¿qué tan rápido vuelve a la normalidad?",
				},
				Options: opts(
					locale.Text{En: "Immediately (less than 1 second)", Es: "Inmediatamente (menos de 1 segundo)"},
					locale.Text{En: "Quickly (1-2 seconds)", Es: "Rápidamente (1-2 segundos)"},
					locale.Text{En: "Slowly (3-4 seconds)", Es: "Lentamente (3-4 segundos)"},
					locale.Text{En: "Very slowly (5+ seconds)", Es: "Muy lentamente (5+ segundos)"},
				),
			},
			{
				ID:     "energy",
				Prompt: locale.Text{En: "How is your energy level?", Es: "¿Cómo está su nivel de energía?"},
				Options: opts(
					locale.Text{En: "Normal energy", Es: "Energía normal"},
					locale.Text{En: "Slightly tired", Es: "Ligeramente cansado"},
					locale.Text{En: "Very tired and weak", Es: "Muy cansado y débil"},
					locale.Text{En: "Extremely weak, dizzy", Es: "Extremadamente débil, mareado"},
				),
			},
		},
		Tiers: []Tier{
			{
				ID:          "mild",
				Min:         0,
				Max:         5,
				Urgency:     label.Low,
				Title:       locale.Text{En: "Mild Dehydration", Es: "Deshidratación Leve"},
				Description: locale.Text{En: "You may be experiencing mild dehydration. This is common in desert environments.", Es: "Puede estar experimentando deshidratación leve. Esto es común en ambientes desérticos."},
				Recommendations: []locale.Text{
					{En: "Drink water slowly and steadily", Es: "Beba agua lenta y constantemente"},
					{En: "Rest in shade or cool area", Es: "Descanse en sombra o área fresca"},
					{En: "Avoid alcohol and caffeine", Es: "Evite alcohol y cafeína"},
					{En: "Monitor your symptoms", Es: "Monitoree sus síntomas"},
				},
			},
			{
				ID:          "moderate",
				Min:         6,
				Max:         10,
				Urgency:     label.Medium,
				Title:       locale.Text{En: "Moderate Dehydration", Es: "Deshidratación Moderada"},
				Description: locale.Text{En: "You are showing signs of moderate dehydration. Immediate action is needed.", Es: "Está mostrando signos de deshidratación moderada. Se necesita acción inmediata."},
				Recommendations: []locale.Text{
					{En: "Drink oral rehydration solution if available", Es: "Beba solución de rehidratación oral si está disponible"},
					{En: "Drink small amounts of water frequently", Es: "Beba pequeñas cantidades de agua frecuentemente"},
					{En: "Seek medical attention if symptoms worsen", Es: "Busque atención médica si los síntomas empeoran"},
					{En: "Rest in cool environment", Es: "Descanse en ambiente fresco"},
					{En: "Avoid physical activity", Es: "Evite actividad física"},
				},
			},
			{
				ID:          "severe",
				Min:         11,
				Max:         15,
				Urgency:     label.High,
				Title:       locale.Text{En: "Severe Dehydration", Es: "Deshidratación Severa"},
				Description: locale.Text{En: "You are showing signs of severe dehydration. This requires immediate medical attention.", Es: "Está mostrando signos de deshidratación severa. Esto requiere atención médica inmediata."},
				Recommendations: []locale.Text{
					{En: "Seek immediate medical attention", Es: "Busque atención médica inmediata"},
					{En: "Call emergency services if available", Es: "Llame a servicios de emergencia si están disponibles"},
					{En: "Drink small sips of water if conscious", Es: "Beba pequeños sorbos de agua si está consciente"},
					{En: "Do not drink large amounts quickly", Es: "No beba grandes cantidades rápidamente"},
					{En: "Lie down in cool area", Es: "Acuéstese en área fresca"},
				},
			},
		},
	},
	{
		ID:    HeatExhaustion,
		Title: locale.Text{En: "Heat exhaustion assessment", Es: "Evaluación de agotamiento por calor"},
		Questions: []Question{
			{
				ID:     "temperature",
				Prompt: locale.Text{En: "What is your approximate body temperature or how do you feel?", Es: "¿Cuál es su temperatura corporal aproximada o cómo se siente?"},
				Options: opts(
					locale.Text{En: "Normal (98.6°F / 37°C)", Es: "Normal (98.6°F / 37°C)"},
					locale.Text{En: "Slightly warm (99-100°F / 37-38°C)", Es: "Ligeramente caliente (99-100°F / 37-38°C)"},
					locale.Text{En: "Hot (101-103°F / 38-39°C)", Es: "Caliente (101-103°F / 38-39°C)"},
					locale.Text{En: "Very hot (104°F+ / 40°C+)", Es: "Muy caliente (104°F+ / 40°C+)"},
				),
			},
			{
				ID:     "sweating",
				Prompt: locale.Text{En: "How much are you sweating?", Es: "¿Cuánto está sudando?"},
				Options: opts(
					locale.Text{En: "Normal sweating", Es: "Sudoración normal"},
					locale.Text{En: "Heavy sweating", Es: "Sudoración intensa"},
					locale.Text{En: "Profuse sweating", Es: "Sudoración profusa"},
					locale.Text{En: "No sweating despite heat", Es: "Sin sudoración a pesar del calor"},
				),
			},
			{
				ID:     "nausea",
				Prompt: locale.Text{En: "Are you experiencing nausea or vomiting?", Es: "¿Está experimentando náuseas o vómitos?"},
				Options: opts(
					locale.Text{En: "No nausea", Es: "Sin náuseas"},
					locale.Text{En: "Mild nausea", Es: "Náuseas leves"},
					locale.Text{En: "Strong nausea", Es: "Náuseas fuertes"},
					locale.Text{En: "Vomiting", Es: "Vómitos"},
				),
			},
			{
				ID:     "headache",
				Prompt: locale.Text{En: "Do you have a headache?", Es: "¿Tiene dolor de cabeza?"},
				Options: opts(
					locale.Text{En: "No headache", Es: "Sin dolor de cabeza"},
					locale.Text{En: "Mild headache", Es: "Dolor de cabeza leve"},
					locale.Text{En: "Moderate headache", Es: "Dolor de cabeza moderado"},
					locale.Text{En: "Severe headache", Es: "Dolor de cabeza severo"},
				),
			},
			{
				ID:     "confusion",
				Prompt: locale.Text{En: "How is your mental state?", Es: "¿Cómo está su estado mental?"},
				Options: opts(
					locale.Text{En: "Clear thinking", Es: "Pensamiento claro"},
					locale.Text{En: "Slightly confused", Es: "Ligeramente confundido"},
					locale.Text{En: "Very confused", Es: "Muy confundido"},
					locale.Text{En: "Disoriented or unconscious", Es: "Desorientado o inconsciente"},
				),
			},
		},
		Tiers: []Tier{
			{
				ID:          "normal",
				Min:         0,
				Max:         3,
				Urgency:     label.Low,
				Title:       locale.Text{En: "Normal Heat Response", Es: "Respuesta Normal al Calor"},
				Description: locale.Text{En: "Your body is responding normally to heat. Continue to stay hydrated and cool.", Es: "Su cuerpo está respondiendo normalmente al calor. Continúe manteniéndose hidratado y fresco."},
				Recommendations: []locale.Text{
					{En: "Continue drinking water regularly", Es: "Continúe bebiendo agua regularmente"},
					{En: "Take breaks in shade", Es: "Tome descansos en la sombra"},
					{En: "Wear light-colored, loose clothing", Es: "Use ropa clara y suelta"},
					{En: "Monitor your condition", Es: "Monitoree su condición"},
				},
			},
			{
				ID:          "exhaustion",
				Min:         4,
				Max:         9,
				Urgency:     label.Medium,
				Title:       locale.Text{En: "Heat Exhaustion", Es: "Agotamiento por Calor"},
				Description: locale.Text{En: "You are experiencing heat exhaustion. Immediate cooling and rest are needed.", Es: "Está experimentando agotamiento por calor. Se necesita enfriamiento y descanso inmediatos."},
				Recommendations: []locale.Text{
					{En: "Move to cool, shaded area immediately", Es: "Muévase a un área fresca y sombreada inmediatamente"},
					{En: "Remove excess clothing", Es: "Quítese el exceso de ropa"},
					{En: "Apply cool water to skin", Es: "Aplique agua fresca a la piel"},
					{En: "Drink cool fluids slowly", Es: "Beba líquidos frescos lentamente"},
					{En: "Rest and avoid activity", Es: "Descanse y evite actividad"},
					{En: "Seek medical attention if symptoms persist", Es: "Busque atención médica si los síntomas persisten"},
				},
			},
			{
				ID:          "stroke",
				Min:         10,
				Max:         15,
				Urgency:     label.High,
				Title:       locale.Text{En: "Heat Stroke Risk", Es: "Riesgo de Golpe de Calor"},
				Description: locale.Text{En: "You may be experiencing heat stroke. This is a medical emergency requiring immediate attention.", Es: "Puede estar experimentando un golpe de calor. Esta es una emergencia médica que requiere atención inmediata."},
				Recommendations: []locale.Text{
					{En: "Call emergency services immediately", Es: "Llame a servicios de emergencia inmediatamente"},
					{En: "Move to coolest available location", Es: "Muévase a la ubicación más fresca disponible"},
					{En: "Remove clothing and apply ice/cool water", Es: "Quite la ropa y aplique hielo/agua fría"},
					{En: "Do not give fluids if unconscious", Es: "No dé líquidos si está inconsciente"},
					{En: "Monitor breathing and consciousness", Es: "Monitoree respiración y conciencia"},
				},
			},
		},
	},
}
