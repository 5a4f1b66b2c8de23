package model

import "time"

// History entry actions.
const (
	ActionStateChange = "state_change"
	ActionResent      = "resent"
)

// MaxDocuments caps attachments per submission or resend.
const MaxDocuments = 5

// Fields holds the applicant-supplied attributes of a procedure.
// Name and NationalID are required; the rest are optional.
type Fields struct {
	Name          string `json:"name"`
	NationalID    string `json:"national_id"`
	Phone         string `json:"phone,omitempty"`
	Degree        string `json:"degree,omitempty"`
	Institution   string `json:"institution,omitempty"`
	Campus        string `json:"campus,omitempty"`
	SubmitterRole Role   `json:"submitter_role,omitempty"`
}

// Document links a user-visible file name to the vault blob holding its
// ciphertext. StorageName embeds the procedure id and a timestamp, so it is
// never guessable from DisplayName.
type Document struct {
	DisplayName string `json:"display_name"`
	StorageName string `json:"storage_name"`
}

// HistoryEntry is one immutable audit record. From/To are set for state
// changes, PriorVersion for resends.
type HistoryEntry struct {
	Action       string    `json:"action"`
	From         Status    `json:"from,omitempty"`
	To           Status    `json:"to,omitempty"`
	Actor        string    `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
	PriorVersion int       `json:"prior_version,omitempty"`
}

// Procedure is one version of one administrative request. The store keeps
// only the latest version per ID; prior versions survive in History.
type Procedure struct {
	ID        string         `json:"id"`
	Version   int            `json:"version"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Status    Status         `json:"status"`
	Fields    Fields         `json:"fields"`
	Documents []Document     `json:"documents"`
	CreatedBy string         `json:"created_by"`
	UpdatedBy string         `json:"updated_by,omitempty"`
	History   []HistoryEntry `json:"history"`
}

// FindDocument returns the attached document with the given storage name.
func (p *Procedure) FindDocument(storageName string) (Document, bool) {
	for _, d := range p.Documents {
		if d.StorageName == storageName {
			return d, true
		}
	}
	return Document{}, false
}
