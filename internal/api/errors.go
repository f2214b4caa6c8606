package api

import (
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/errors"
)

// Client-facing errors
var (
	errInvalidRequest  = errors.NewBadRequestError("INVALID_REQUEST", "Invalid request format")
	errMessageRequired = errors.NewBadRequestError("MESSAGE_REQUIRED", "Message is required")
	errUserIDRequired  = errors.NewBadRequestError("USER_ID_REQUIRED", "userId is required")
)
