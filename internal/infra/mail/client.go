// Package mail adapts the transactional mail REST API for the report-ready
// client notification.
package mail

import (
	"context"
	"fmt"
	"time"

	domain "github.com/vetletters/claims-intake/internal/domain/claims"
	"github.com/vetletters/claims-intake/internal/infra/httpclient"
)

const serviceName = "mail"

type Client struct {
	http        *httpclient.Client
	baseURL     string
	accessToken string
	accountID   string
	from        string
}

func New(baseURL, accessToken, accountID, from string, timeout time.Duration) *Client {
	return &Client{
		http:        httpclient.New(serviceName, timeout),
		baseURL:     baseURL,
		accessToken: accessToken,
		accountID:   accountID,
		from:        from,
	}
}

type message struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	MailFormat  string `json:"mailFormat"`
}

// NotifyReportReady emails the veteran the public link to their report.
func (c *Client) NotifyReportReady(ctx context.Context, rec *domain.ClaimRecord) error {
	msg := message{
		FromAddress: c.from,
		ToAddress:   rec.VeteranEmail,
		Subject:     fmt.Sprintf("Your VA Claims Analysis Report Is Ready - %s", rec.ID),
		Content:     reportReadyBody(rec),
		MailFormat:  "html",
	}

	url := fmt.Sprintf("%s/api/accounts/%s/messages", c.baseURL, c.accountID)
	_, err := c.http.PostJSON(ctx, url, msg, map[string]string{
		"Authorization": "Zoho-oauthtoken " + c.accessToken,
	})
	return err
}

func reportReadyBody(rec *domain.ClaimRecord) string {
	increase := ""
	if rec.MonthlyIncrease > 0 {
		increase = fmt.Sprintf(
			"<p>Our analysis identified a potential monthly compensation increase of <strong>$%d</strong>.</p>",
			rec.MonthlyIncrease)
	}
	return fmt.Sprintf(`<html><body>
<p>Dear %s,</p>
<p>Your VA disability claims analysis is complete. The full report covering
%d reviewed conditions is available here:</p>
<p><a href="%s">%s</a></p>
%s
<p>This analysis is educational and for preparation purposes only; it is not
legal advice or representation.</p>
<p>VetLetters Claims Analysis</p>
</body></html>`,
		rec.VeteranName, rec.ConditionsReviewed, rec.ShareURL, rec.ShareURL, increase)
}
