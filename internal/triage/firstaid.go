package triage

import (
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
)

var firstAid = map[label.Urgency][]locale.Text{
	label.Low: {
		{En: "Drink water slowly in small sips", Es: "Beba agua lenta y constantemente"},
		{En: "Rest in the shade", Es: "Descanse en sombra o área fresca"},
		{En: "Avoid alcohol and caffeine", Es: "Evite alcohol y cafeína"},
		{En: "Monitor symptoms for changes", Es: "Monitoree sus síntomas"},
	},
	label.Medium: {
		{En: "Move to a cool, shaded area", Es: "Muévase a un área fresca y sombreada inmediatamente"},
		{En: "Remove excess clothing", Es: "Quítese el exceso de ropa"},
		{En: "Apply cool water to the skin", Es: "Aplique agua fresca a la piel"},
		{En: "Drink cool fluids slowly", Es: "Beba líquidos frescos lentamente"},
		{En: "Rest and avoid physical activity", Es: "Descanse y evite actividad"},
		{En: "Seek medical attention if symptoms persist", Es: "Busque atención médica si los síntomas persisten"},
	},
	label.High: {
		{En: "Call emergency services immediately", Es: "Llame a servicios de emergencia inmediatamente"},
		{En: "Move to the coolest location available", Es: "Muévase a la ubicación más fresca disponible"},
		{En: "Remove clothing and apply cool water to the skin", Es: "Quite la ropa y aplique agua fría a la piel"},
		{En: "Do not give fluids if the person is unconscious", Es: "No dé líquidos si está inconsciente"},
		{En: "Monitor breathing until help arrives", Es: "Monitoree la respiración hasta que llegue ayuda"},
	},
}

// Recommendations returns the English first-aid steps for u, or nil for an
// unknown tier. The slice is a copy.
func Recommendations(u label.Urgency) []string {
	return RecommendationsIn(u, locale.English)
}

// RecommendationsIn is Recommendations in language l.
func RecommendationsIn(u label.Urgency, l locale.Lang) []string {
	return locale.All(firstAid[u], l)
}
