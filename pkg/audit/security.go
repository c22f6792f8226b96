// Package audit provides security audit logging for SIEM consumption.
// Security-relevant events are logged as structured JSON under the
// "security_audit" logger so they can be filtered out of the request log.
package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventLoginSucceeded is logged when a user obtains a session or an API token.
	EventLoginSucceeded SecurityEventType = "login_succeeded"
	// EventLoginFailed is logged for rejected credentials.
	EventLoginFailed SecurityEventType = "login_failed"
	// EventPasswordChanged is logged after a successful password change.
	EventPasswordChanged SecurityEventType = "password_changed"
	// EventPasswordChangeFailed is logged when the current password does not match.
	EventPasswordChangeFailed SecurityEventType = "password_change_failed"
	// EventCatalogRestored is logged when a full export is imported.
	EventCatalogRestored SecurityEventType = "catalog_restored"
)

// Login methods.
const (
	MethodSession = "session"
	MethodToken   = "token"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// LoginDetails describes a login attempt.
type LoginDetails struct {
	Username string `json:"username"`
	Method   string `json:"method"`
}

// RestoreDetails describes a full catalog import.
type RestoreDetails struct {
	ClearExisting bool   `json:"clear_existing"`
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a security auditor logging under the "security_audit" namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit"), now: time.Now}
}

// LogLogin records a successful login.
func (a *SecurityAuditor) LogLogin(userID int64, details LoginDetails, clientIP string) {
	a.log(SecurityEvent{
		EventType: EventLoginSucceeded,
		UserID:    strconv.FormatInt(userID, 10),
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "info",
	}, "User authenticated",
		zap.String("username", details.Username),
		zap.String("method", details.Method))
}

// LogLoginFailure records rejected credentials. Logged at WARN; repeated
// failures from one address are what a SIEM rule would alert on.
func (a *SecurityAuditor) LogLoginFailure(details LoginDetails, clientIP string) {
	a.log(SecurityEvent{
		EventType: EventLoginFailed,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "warning",
	}, "Login failed",
		zap.String("username", details.Username),
		zap.String("method", details.Method))
}

// LogPasswordChange records a password change attempt by the authenticated user.
func (a *SecurityAuditor) LogPasswordChange(ctx context.Context, succeeded bool, clientIP string) {
	event := SecurityEvent{
		EventType: EventPasswordChanged,
		ClientIP:  clientIP,
		Details:   map[string]bool{"succeeded": succeeded},
		Severity:  "info",
	}
	msg := "Password changed"
	if !succeeded {
		event.EventType = EventPasswordChangeFailed
		event.Severity = "warning"
		msg = "Password change rejected"
	}
	a.log(withUser(ctx, event), msg)
}

// LogCatalogRestore records a full catalog import. Clearing the catalog is critical.
func (a *SecurityAuditor) LogCatalogRestore(ctx context.Context, details RestoreDetails, clientIP string) {
	severity := "info"
	if details.ClearExisting {
		severity = "critical"
	}
	a.log(withUser(ctx, SecurityEvent{
		EventType: EventCatalogRestored,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}), "Catalog import",
		zap.Bool("clear_existing", details.ClearExisting),
		zap.Bool("success", details.Success))
}

func withUser(ctx context.Context, event SecurityEvent) SecurityEvent {
	if id := auth.GetUserIDFromContext(ctx); id != 0 {
		event.UserID = strconv.FormatInt(id, 10)
	}
	return event
}

func (a *SecurityAuditor) log(event SecurityEvent, msg string, fields ...zap.Field) {
	event.EventID = uuid.New()
	event.Timestamp = a.now().UTC()

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	fields = append(fields,
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.String("client_ip", event.ClientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", event.Severity),
	)

	switch event.Severity {
	case "critical":
		a.logger.Error(msg, fields...)
	case "warning":
		a.logger.Warn(msg, fields...)
	default:
		a.logger.Info(msg, fields...)
	}
}
