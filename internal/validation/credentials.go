package validation

import "sync"

// MinPasswordLength is the shortest password accepted on sign in or sign up.
const MinPasswordLength = 6

// Credentials are the login screen inputs. Rules of each field run in tag
// order and only the first failure is reported.
type Credentials struct {
	Email    string `json:"email" validate:"contains=@,contains=.com,lowercase,loginemail"`
	Password string `json:"password" validate:"specialchar,hasupper,haslower,hasdigit,min=6"`
}

// CredentialMessages are the login screen messages.
var CredentialMessages = map[string]string{
	"email.contains=@":     "Falta @ no email",
	"email.contains=.com":  "Falta .com no email",
	"email.lowercase":      "Email deve conter apenas letras minúsculas",
	"email.loginemail":     "Email inválido",
	"password.specialchar": "A senha deve conter pelo menos um caractere especial",
	"password.hasupper":    "A senha deve conter pelo menos uma letra maiúscula",
	"password.haslower":    "A senha deve conter pelo menos uma letra minúscula",
	"password.hasdigit":    "A senha deve conter pelo menos um número",
	"password.min":         "A senha deve ter pelo menos 6 caracteres",
}

var shared = sync.OnceValue(New)

// CheckCredentials applies the login screen rules to an email and password.
func CheckCredentials(email, password string) Errors {
	return shared().Struct(Credentials{Email: email, Password: password}, CredentialMessages)
}
