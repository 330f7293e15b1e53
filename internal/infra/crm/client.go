// Package crm adapts the CRM REST API: one module record per completed or
// failed analysis, for the operations team.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domain "github.com/vetletters/claims-intake/internal/domain/claims"
	"github.com/vetletters/claims-intake/internal/infra/httpclient"
)

const serviceName = "crm"

type Client struct {
	http        *httpclient.Client
	baseURL     string
	accessToken string
	module      string
}

func New(baseURL, accessToken, module string, timeout time.Duration) *Client {
	if module == "" {
		module = "VA_Analyses"
	}
	return &Client{
		http:        httpclient.New(serviceName, timeout),
		baseURL:     baseURL,
		accessToken: accessToken,
		module:      module,
	}
}

type createRequest struct {
	Data []map[string]any `json:"data"`
}

type createResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
	} `json:"data"`
}

// LogOutcome creates the CRM record for a finished analysis and returns the
// CRM record id.
func (c *Client) LogOutcome(ctx context.Context, rec *domain.ClaimRecord) (string, error) {
	payload := createRequest{Data: []map[string]any{{
		"Name":                       string(rec.ID),
		"Veteran_Name":               rec.VeteranName,
		"Email":                      rec.VeteranEmail,
		"Source_File":                rec.FileName,
		"Report_URL":                 rec.ReportURL,
		"Share_URL":                  rec.ShareURL,
		"Conditions_Reviewed":        rec.ConditionsReviewed,
		"Monthly_Increase_Potential": rec.MonthlyIncrease,
		"Analysis_Status":            string(rec.Status),
	}}}

	url := fmt.Sprintf("%s/crm/v2/%s", c.baseURL, c.module)
	body, err := c.http.PostJSON(ctx, url, payload, map[string]string{
		"Authorization": "Zoho-oauthtoken " + c.accessToken,
	})
	if err != nil {
		return "", err
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding crm response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].Details.ID == "" {
		return "", &domain.CallError{
			Service:    serviceName,
			StatusCode: http.StatusBadGateway,
			Err:        fmt.Errorf("crm response carries no record id"),
		}
	}
	return out.Data[0].Details.ID, nil
}
