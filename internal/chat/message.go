package chat

import (
	"time"

	"notechat/internal/storage"
)

// Message roles. The model role matches the wire naming of the Gemini API;
// the answer client maps it per provider.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Message is one entry in the conversation log. System-role entries are
// transient external-knowledge confirmation prompts; they are removed once
// resolved and never sent to the LLM as history.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`

	// OriginalQuestion preserves the question verbatim on a confirmation
	// prompt so approval can answer it later.
	OriginalQuestion string `json:"originalQuestion,omitempty"`

	// RequiresExternalDataConfirmation is set (true) on a pending
	// confirmation prompt and (false) on the declined-answer message.
	// Messages that ever carried this flag are excluded from history.
	RequiresExternalDataConfirmation *bool `json:"requiresExternalDataConfirmation,omitempty"`

	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRecord(msg Message) *storage.MessageRecord {
	return &storage.MessageRecord{
		ID:                   msg.ID,
		Role:                 msg.Role,
		Content:              msg.Content,
		OriginalQuestion:     msg.OriginalQuestion,
		RequiresConfirmation: msg.RequiresExternalDataConfirmation,
		Summary:              msg.Summary,
	}
}

func fromRecord(record storage.MessageRecord) Message {
	return Message{
		ID:                               record.ID,
		Role:                             record.Role,
		Content:                          record.Content,
		OriginalQuestion:                 record.OriginalQuestion,
		RequiresExternalDataConfirmation: record.RequiresConfirmation,
		Summary:                          record.Summary,
		CreatedAt:                        record.CreatedAt,
	}
}

// historyEligible reports whether a message may be sent to the LLM as
// conversation history. Confirmation prompts and messages that carried the
// confirmation flag stay local.
func historyEligible(msg Message) bool {
	if msg.Role == RoleSystem {
		return false
	}
	return msg.RequiresExternalDataConfirmation == nil
}
