// AngelaMos | 2026
// entity.go

package activity

import (
	"time"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

// Entry is an append-only audit record. Entries are never updated or deleted.
type Entry struct {
	ID          string       `db:"id"`
	ActorID     *string      `db:"actor_id"`
	Type        string       `db:"type"`
	SubjectType string       `db:"subject_type"`
	SubjectID   *string      `db:"subject_id"`
	Description string       `db:"description"`
	Metadata    core.JSONMap `db:"metadata"`
	CreatedAt   time.Time    `db:"created_at"`
}

const (
	SubjectUser    = "user"
	SubjectLead    = "lead"
	SubjectContact = "contact"
	SubjectSession = "session"
)

const (
	TypeUserLogin         = "user_login"
	TypeUserLogout        = "user_logout"
	TypeUserRegistered    = "user_registered"
	TypeUserCreated       = "user_created"
	TypeUserUpdated       = "user_updated"
	TypeUserRoleAssigned  = "user_role_assigned"
	TypeUserTerminated    = "user_terminated"
	TypePasswordChanged   = "password_changed"
	TypePasswordReset     = "password_reset"
	TypeSessionRevoked    = "session_revoked"
	TypeLeadCreated       = "lead_created"
	TypeLeadUpdated       = "lead_updated"
	TypeLeadDeleted       = "lead_deleted"
	TypeLeadStageChanged  = "lead_stage_changed"
	TypeLeadActivityAdded = "lead_activity_added"
	TypeLeadConverted     = "lead_converted"
	TypeLeadRescored      = "lead_rescored"
	TypeContactCreated    = "contact_created"
	TypeContactUpdated    = "contact_updated"
	TypeContactDeleted    = "contact_deleted"
	TypeSessionsPurged    = "sessions_purged"
)

// New builds an entry for subjectType/subjectID performed by actorID. Empty
// ids are stored as NULL.
func New(actorID, entryType, subjectType, subjectID, description string) Entry {
	e := Entry{
		Type:        entryType,
		SubjectType: subjectType,
		Description: description,
		Metadata:    core.JSONMap{},
	}
	if actorID != "" {
		e.ActorID = &actorID
	}
	if subjectID != "" {
		e.SubjectID = &subjectID
	}
	return e
}

// With attaches a metadata key.
func (e Entry) With(key string, value any) Entry {
	meta := make(core.JSONMap, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	e.Metadata = meta
	return e
}
