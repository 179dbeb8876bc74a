package cli

import (
	"errors"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// describeError turns a vault error into a message for the user. Storage
// errors keep their detail since they never carry secrets.
func describeError(err error) string {
	switch {
	case errors.Is(err, common.ErrorIntegrity):
		return "Integrity check failed: the stored record is corrupted or has been tampered with. Other records are unaffected."
	case errors.Is(err, common.ErrorAuthentication):
		return "Wrong master secret."
	case errors.Is(err, common.ErrorNotUnlocked):
		return "Vault is locked. Run 'unlock' first."
	case errors.Is(err, common.ErrorNotInitialized):
		return "Vault is not initialized. Run 'setup' first."
	case errors.Is(err, common.ErrorAlreadyInitialized):
		return "Vault is already initialized."
	case errors.Is(err, common.ErrorAlreadyExists):
		return "A credential for this service already exists. Use 'update' to change it."
	case errors.Is(err, common.ErrorNotFound):
		return "No credential stored for this service."
	case errors.Is(err, common.ErrorValidation):
		return "Invalid input: " + err.Error()
	case errors.Is(err, common.ErrorStorage):
		return "Storage error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
