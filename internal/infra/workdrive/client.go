// Package workdrive adapts the WorkDrive REST API: medical-record download,
// report upload into the reports folder, and public share-link creation.
package workdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	domain "github.com/vetletters/claims-intake/internal/domain/claims"
	"github.com/vetletters/claims-intake/internal/infra/httpclient"
)

const serviceName = "workdrive"

type Client struct {
	http            *httpclient.Client
	baseURL         string
	accessToken     string
	reportsFolderID string
}

func New(baseURL, accessToken, reportsFolderID string, timeout time.Duration) *Client {
	return &Client{
		http:            httpclient.New(serviceName, timeout),
		baseURL:         baseURL,
		accessToken:     accessToken,
		reportsFolderID: reportsFolderID,
	}
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Zoho-oauthtoken " + c.accessToken,
		"User-Agent":    "VA-Claims-Analysis-System/3.0",
	}
}

// FetchDocuments downloads the uploaded medical records. The webhook hands
// us a complete download URL, so no path building is needed.
func (c *Client) FetchDocuments(ctx context.Context, downloadURL string) (string, error) {
	body, err := c.http.Get(ctx, downloadURL, c.authHeaders())
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", &domain.CallError{
			Service:    serviceName,
			StatusCode: http.StatusUnprocessableEntity,
			Err:        fmt.Errorf("empty document at %s", downloadURL),
		}
	}
	return string(body), nil
}

type uploadResponse struct {
	Data []struct {
		Attributes struct {
			ResourceID string `json:"resource_id"`
			Permalink  string `json:"permalink"`
		} `json:"attributes"`
	} `json:"data"`
}

// UploadReport uploads the rendered HTML report into the reports folder.
func (c *Client) UploadReport(ctx context.Context, filename string, html []byte) (domain.StoredReport, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("content", filename)
	if err != nil {
		return domain.StoredReport{}, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(html); err != nil {
		return domain.StoredReport{}, fmt.Errorf("building upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return domain.StoredReport{}, fmt.Errorf("building upload form: %w", err)
	}

	q := url.Values{}
	q.Set("parent_id", c.reportsFolderID)
	q.Set("filename", filename)
	q.Set("override-name-exist", "true")
	uploadURL := fmt.Sprintf("%s/api/v1/upload?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return domain.StoredReport{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, err := c.http.Do(req, c.authHeaders())
	if err != nil {
		return domain.StoredReport{}, err
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.StoredReport{}, fmt.Errorf("decoding upload response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].Attributes.ResourceID == "" {
		return domain.StoredReport{}, &domain.CallError{
			Service:    serviceName,
			StatusCode: http.StatusBadGateway,
			Err:        fmt.Errorf("upload response carries no resource id"),
		}
	}
	a := out.Data[0].Attributes
	return domain.StoredReport{FileID: a.ResourceID, URL: a.Permalink}, nil
}

type shareRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			ResourceID    string `json:"resource_id"`
			LinkName      string `json:"link_name"`
			AllowDownload bool   `json:"allow_download"`
		} `json:"attributes"`
	} `json:"data"`
}

type shareResponse struct {
	Data struct {
		Attributes struct {
			Link string `json:"link"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateShareLink creates a public download link for an uploaded report.
func (c *Client) CreateShareLink(ctx context.Context, fileID string) (string, error) {
	var reqBody shareRequest
	reqBody.Data.Type = "links"
	reqBody.Data.Attributes.ResourceID = fileID
	reqBody.Data.Attributes.LinkName = "va-analysis-report"
	reqBody.Data.Attributes.AllowDownload = true

	body, err := c.http.PostJSON(ctx, c.baseURL+"/api/v1/links", reqBody, c.authHeaders())
	if err != nil {
		return "", err
	}

	var out shareResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding share response: %w", err)
	}
	if out.Data.Attributes.Link == "" {
		return "", &domain.CallError{
			Service:    serviceName,
			StatusCode: http.StatusBadGateway,
			Err:        fmt.Errorf("share response carries no link"),
		}
	}
	return out.Data.Attributes.Link, nil
}
