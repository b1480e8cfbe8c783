package thunderauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/thunderauth/apierror"
)

const (
	auditEventRegister             = "register"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginTwoFactor       = "login_two_factor_required"
	auditEventLoginFailure         = "login_failure"
	auditEventTwoFactorSuccess     = "two_factor_success"
	auditEventTwoFactorFailure     = "two_factor_failure"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventEmailConfirm         = "email_confirm"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshFailure       = "refresh_failure"
	auditEventRefreshMissingToken  = "refresh_missing_token"
	auditEventLogout               = "logout"
	auditEventTokenPersistFailure  = "token_persist_failure"
)

// AuditErrorCode is the stable error label attached to failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidURL       AuditErrorCode = "invalid_url"
	auditErrInvalidResponse  AuditErrorCode = "invalid_response"
	auditErrInvalidData      AuditErrorCode = "invalid_data"
	auditErrNetwork          AuditErrorCode = "network"
	auditErrDecoding         AuditErrorCode = "decoding"
	auditErrUnspecified      AuditErrorCode = "unspecified"
	auditErrServer           AuditErrorCode = "server_error"
	auditErrUnauthorized     AuditErrorCode = "unauthorized"
	auditErrNotFound         AuditErrorCode = "not_found"
	auditErrBadRequest       AuditErrorCode = "bad_request"
	auditErrUnexpectedStatus AuditErrorCode = "unexpected_status"
	auditErrPersistence      AuditErrorCode = "persistence"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: eventType,
		Email:     email,
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnexpectedStatus) {
		return auditErrUnexpectedStatus
	}
	if errors.Is(err, ErrTokenPersistence) {
		return auditErrPersistence
	}

	switch apierror.KindOf(err) {
	case apierror.KindInvalidURL:
		return auditErrInvalidURL
	case apierror.KindInvalidResponse:
		return auditErrInvalidResponse
	case apierror.KindInvalidData:
		return auditErrInvalidData
	case apierror.KindNetwork:
		return auditErrNetwork
	case apierror.KindDecoding:
		return auditErrDecoding
	case apierror.KindUnspecified:
		return auditErrUnspecified
	case apierror.KindServerError:
		return auditErrServer
	case apierror.KindUnauthorized:
		return auditErrUnauthorized
	case apierror.KindNotFound:
		return auditErrNotFound
	case apierror.KindBadRequest:
		return auditErrBadRequest
	default:
		return auditErrInternal
	}
}
