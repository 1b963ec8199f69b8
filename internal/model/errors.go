package model

import "fmt"

// APIError is the unified error format returned to the frontend.
// Action tells the client what recovery path to offer (re-login, upgrade...).
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Error codes.
const (
	ErrCodeNotFound            = "not_found"
	ErrCodeInvalidToken        = "invalid_token"
	ErrCodeUnauthenticated     = "unauthenticated"
	ErrCodeQuotaExceeded       = "quota_exceeded"
	ErrCodeBadRequest          = "bad_request"
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeAlreadySubscribed   = "already_subscribed"
	ErrCodeProRequired         = "pro_required"
)

// NewSubscriberNotFoundError covers both unknown emails and lapsed
// subscriptions. The single message avoids revealing which case applies.
func NewSubscriberNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: "Utilisateur Pro non trouvé ou abonnement expiré",
	}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// NewInvalidTokenError reports a magic-link verification failure.
// The reason is specific (unknown, already used, expired) per the auth
// contract: the client needs to distinguish a stale link from a bad one.
func NewInvalidTokenError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: reason,
		Action:  "request_new_link",
	}
}

func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: message,
		Action:  "login_required",
	}
}

func NewQuotaExceededError() *APIError {
	return &APIError{
		Code:    ErrCodeQuotaExceeded,
		Message: "Limite de 3 exports gratuits atteinte. Passez à l'abonnement Pro pour continuer.",
		Action:  "upgrade_required",
	}
}

func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

func NewUpstreamUnavailableError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: message,
		Action:  "retry_later",
	}
}

func NewAlreadySubscribedError(expires string) *APIError {
	return &APIError{
		Code:    ErrCodeAlreadySubscribed,
		Message: fmt.Sprintf("Un abonnement est déjà actif jusqu'au %s", expires),
	}
}

func NewProRequiredError() *APIError {
	return &APIError{
		Code:    ErrCodeProRequired,
		Message: "Abonnement Pro requis pour cette fonctionnalité",
		Action:  "upgrade_required",
	}
}
