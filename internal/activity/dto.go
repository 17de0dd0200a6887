// AngelaMos | 2026
// dto.go

package activity

import (
	"time"
)

type EntryResponse struct {
	ID          string         `json:"id"`
	ActorID     *string        `json:"actor_id"`
	Type        string         `json:"type"`
	SubjectType string         `json:"subject_type"`
	SubjectID   *string        `json:"subject_id"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

func ToEntryResponse(e *Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		ActorID:     e.ActorID,
		Type:        e.Type,
		SubjectType: e.SubjectType,
		SubjectID:   e.SubjectID,
		Description: e.Description,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

func ToEntryResponseList(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, ToEntryResponse(&entries[i]))
	}
	return out
}
