package authd

import (
	"context"

	"github.com/naviriti/authd/internal/audit"
)

const (
	auditEventRegister      = "account.register"
	auditEventVerifyEmail   = "account.verify_email"
	auditEventLogin         = "session.login"
	auditEventLogout        = "session.logout"
	auditEventValidate      = "session.validate"
	auditEventResetRequest  = "password.reset_request"
	auditEventResetConfirm  = "password.reset_confirm"
	auditEventProfileUpdate = "account.profile_update"
	auditEventAccountDelete = "account.delete"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, email string, success bool, failure error) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}

	e.audit.Emit(ctx, event)
}
