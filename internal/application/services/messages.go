package services

// User-facing messages. The UI is Spanish-language; wording is kept
// stable because screens match on it.
const (
	msgTimeout           = "La conexión está tardando demasiado. Por favor, intenta de nuevo."
	msgAlreadyRegistered = "Este correo electrónico ya está registrado. Por favor, inicia sesión o usa otro correo."
	msgWeakPassword      = "La contraseña debe tener al menos 6 caracteres"
	msgInvalidEmail      = "Por favor, ingresa un correo electrónico válido"
	msgSignUpPrefix      = "Error al crear el usuario: "
	msgSignUpNoUser      = "No se pudo crear el usuario: respuesta inválida del servidor"
	msgInvalidLogin      = "Correo electrónico o contraseña incorrectos"
	msgEmailNotConfirmed = "Por favor, confirma tu correo electrónico antes de iniciar sesión"
	msgTooManyRequests   = "Demasiados intentos. Por favor, espera unos minutos e intenta de nuevo"
	msgSessionExpired    = "Sesión expirada. Por favor, inicia sesión nuevamente."
	msgSignInFallback    = "Error al iniciar sesión"
	msgSignInNoUser      = "No se pudo iniciar sesión. Por favor, intenta de nuevo."
	msgNotAuthenticated  = "Usuario no autenticado"
	msgInvalidStatus     = "Estado de cita no válido"
)
