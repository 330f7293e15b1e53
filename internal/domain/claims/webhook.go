package claims

import (
	"fmt"
	"strings"
	"time"
)

// WebhookPayload is the inbound WorkDrive file-event notification.
type WebhookPayload struct {
	Event        string `json:"webhook_event"`
	FileID       string `json:"id"`
	FileName     string `json:"name"`
	FileType     string `json:"type"`
	FileSize     string `json:"storage_info_size"`
	DownloadURL  string `json:"download_url"`
	UploadedTime string `json:"uploaded_time"`
	UserEmail    string `json:"event_by_user_email_id"`
	UserName     string `json:"event_by_user_display_name"`
}

// Validate checks the fields the pipeline cannot run without.
func (p *WebhookPayload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.FileID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(p.FileName) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.DownloadURL) == "" {
		missing = append(missing, "download_url")
	}
	if strings.TrimSpace(p.UserEmail) == "" {
		missing = append(missing, "event_by_user_email_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return nil
}

// ExtractClaim builds the initial ClaimRecord from a webhook payload.
// Uploads follow the "Firstname-Lastname_email@example.com.pdf" convention;
// when the filename does not carry it, the uploader identity is used.
func ExtractClaim(p *WebhookPayload, now time.Time) *ClaimRecord {
	name, email := veteranIdentity(p)
	return &ClaimRecord{
		ID:           NewClaimID(now, p.FileID),
		VeteranName:  name,
		VeteranEmail: email,
		FileID:       p.FileID,
		FileName:     p.FileName,
		FileSize:     p.FileSize,
		FileType:     p.FileType,
		DownloadURL:  p.DownloadURL,
		UploadedTime: p.UploadedTime,
		Status:       StatusReceived,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func veteranIdentity(p *WebhookPayload) (string, string) {
	base := strings.TrimSuffix(p.FileName, "."+p.FileType)
	for _, ext := range []string{".txt", ".pdf", ".doc", ".docx"} {
		base = strings.TrimSuffix(base, ext)
	}

	if i := strings.Index(base, "_"); i > 0 {
		name := titleCase(strings.NewReplacer("-", " ", "%20", " ").Replace(base[:i]))
		email := p.UserEmail
		if rest := base[i+1:]; strings.Contains(rest, "@") {
			email = rest
		}
		return name, email
	}
	return p.UserName, p.UserEmail
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
