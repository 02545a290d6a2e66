package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryRecord is one completed turn: the prompt plus the full text of every
// participating provider. Text fields are never NULL in the database.
type HistoryRecord struct {
	ID          int64     `json:"id"`
	Prompt      string    `json:"prompt"`
	Gemini      string    `json:"gemini"`
	HuggingFace string    `json:"huggingface"`
	Claude      string    `json:"claude"`
	UserID      *int64    `json:"user_id,omitempty"` // nil when identity is disabled
	CreatedAt   time.Time `json:"created_at"`
}

// Provider names double as column names.
const (
	ColumnGemini      = "gemini"
	ColumnHuggingFace = "huggingface"
	ColumnClaude      = "claude"
)

// SetOutput stores text under the column named after provider. It reports
// false for providers without a column.
func (r *HistoryRecord) SetOutput(provider, text string) bool {
	switch provider {
	case ColumnGemini:
		r.Gemini = text
	case ColumnHuggingFace:
		r.HuggingFace = text
	case ColumnClaude:
		r.Claude = text
	default:
		return false
	}
	return true
}

// Output returns the text stored for provider.
func (r *HistoryRecord) Output(provider string) string {
	switch provider {
	case ColumnGemini:
		return r.Gemini
	case ColumnHuggingFace:
		return r.HuggingFace
	case ColumnClaude:
		return r.Claude
	}
	return ""
}
