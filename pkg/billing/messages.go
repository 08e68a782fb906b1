package billing

import "fmt"

// welcomeMessage is sent by DM when the member role is granted
func welcomeMessage(inviteURL string) string {
	msg := "🎉 ¡Bienvenido a Inversión Real!\n\n" +
		"Tu suscripción está activa y ya tienes acceso a los canales exclusivos para miembros. " +
		"Nos vemos en las sesiones en vivo."
	if inviteURL != "" {
		msg += fmt.Sprintf("\n\nSi todavía no ves los canales, vuelve a entrar al servidor: %s", inviteURL)
	}
	return msg
}

// farewellMessage is sent by DM when the member role is revoked
func farewellMessage(baseURL, status string) string {
	reason := "Tu suscripción ha finalizado"
	if status == "past_due" || status == "unpaid" {
		reason = "No pudimos procesar el pago de tu suscripción"
	}
	return fmt.Sprintf("👋 %s y tu acceso a los canales de miembros fue retirado.\n\n"+
		"Puedes reactivarla cuando quieras desde %s/subscription/manage\n\n"+
		"Gracias por haber sido parte de Inversión Real.", reason, baseURL)
}
