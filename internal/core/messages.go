package core

// Confirmations shown after a successful refresh or share. Failures stay silent.
const RefreshedMessage = "Datos actualizados"

func SharedMessage(email string) string {
	return "Compartido con " + email
}
