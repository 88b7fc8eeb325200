package observability

import (
	"github.com/prefeitura-rio/app-identidade/internal/logging"
)

// Logger returns the global safe logger instance
func Logger() *logging.SafeLogger {
	return logging.Logger
}

// MaskToken masks a secret for logging, keeping only the last four characters
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
