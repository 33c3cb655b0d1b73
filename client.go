package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// apiClient talks to the FlowSync backend. Everything except login and
// register requires the bearer token held in the process-wide slot.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(cfg appConfig) *apiClient {
	return &apiClient{
		baseURL: cfg.APIBaseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// apiError is a non-2xx response from the backend.
type apiError struct {
	StatusCode int
	Detail     string
}

func (e *apiError) Error() string {
	if strings.TrimSpace(e.Detail) != "" {
		return fmt.Sprintf("API %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API %d", e.StatusCode)
}

// isUnauthorized reports whether err is a 401-class rejection, which the
// app treats as "redirect to login".
func isUnauthorized(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type errorEnvelope struct {
	Detail string `json:"detail"`
}

func (c *apiClient) do(req *http.Request) ([]byte, error) {
	if token := authToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode >= 300 {
		var envelope errorEnvelope
		_ = json.Unmarshal(body, &envelope)
		return nil, &apiError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(envelope.Detail)}
	}
	return body, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request for %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// accountInfo is the /auth/me response: the user profile plus the owning
// organization's credit usage.
type accountInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Org      *orgInfo `json:"org"`
}

type orgInfo struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	CreditsUsed int    `json:"credits_used"`
}

// agentInfo is one named persona from /chat/sections.
type agentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RolePersona string `json:"role_persona"`
}

type documentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// login exchanges credentials for a bearer token. The backend expects the
// OAuth2 password form encoding, not JSON.
func (c *apiClient) login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return token.AccessToken, nil
}

func (c *apiClient) register(ctx context.Context, email, fullName, password string) (string, error) {
	payload := struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}{email, fullName, password}
	var token tokenResponse
	if err := c.postJSON(ctx, "/auth/register", payload, &token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (c *apiClient) me(ctx context.Context) (accountInfo, error) {
	var account accountInfo
	err := c.getJSON(ctx, "/auth/me", &account)
	return account, err
}

func (c *apiClient) listAgents(ctx context.Context) ([]agentInfo, error) {
	var agents []agentInfo
	err := c.getJSON(ctx, "/chat/sections", &agents)
	return agents, err
}

// startConversation returns the open conversation for an agent, creating
// one server-side if none exists. Idempotent per agent.
func (c *apiClient) startConversation(ctx context.Context, agentID string) (string, error) {
	var conversationID string
	path := "/chat/start?section_id=" + url.QueryEscape(agentID)
	if err := c.postJSON(ctx, path, nil, &conversationID); err != nil {
		return "", err
	}
	return conversationID, nil
}

// historyRecord is one persisted message from /chat/{id}/history.
type historyRecord struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// fetchHistory returns the conversation's prior messages in server order.
// An empty sequence is valid.
func (c *apiClient) fetchHistory(ctx context.Context, conversationID string) ([]chatMessage, error) {
	var records []historyRecord
	if err := c.getJSON(ctx, "/chat/"+url.PathEscape(conversationID)+"/history", &records); err != nil {
		return nil, err
	}
	messages := make([]chatMessage, 0, len(records))
	for _, rec := range records {
		messages = append(messages, chatMessage{
			id:        rec.ID,
			role:      rec.Role,
			content:   rec.Content,
			timestamp: rec.Timestamp,
		})
	}
	return messages, nil
}

// sendTurn posts one user turn and returns the agent's single reply text.
func (c *apiClient) sendTurn(ctx context.Context, conversationID, text string) (string, error) {
	payload := struct {
		ConversationID string `json:"conversation_id"`
		Message        string `json:"message"`
	}{conversationID, text}
	var reply struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/chat/", payload, &reply); err != nil {
		return "", err
	}
	return reply.Response, nil
}

// uploadDocument streams one file to the documents collaborator as
// multipart form data. conversationID is optional; when set the upload is
// scoped to that chat.
func (c *apiClient) uploadDocument(ctx context.Context, conversationID, filename string, contents io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, contents); err != nil {
		return fmt.Errorf("read upload contents: %w", err)
	}
	if conversationID != "" {
		if err := writer.WriteField("conversation_id", conversationID); err != nil {
			return fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", &buf)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, err = c.do(req)
	return err
}

func (c *apiClient) listDocuments(ctx context.Context) ([]documentInfo, error) {
	var docs []documentInfo
	err := c.getJSON(ctx, "/documents/", &docs)
	return docs, err
}

// completeOnboarding creates the organization, deploys the default agents
// and indexes the seed document in one multipart call.
func (c *apiClient) completeOnboarding(ctx context.Context, orgName, industry, filename string, contents io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("org_name", orgName); err != nil {
		return fmt.Errorf("build onboarding form: %w", err)
	}
	if err := writer.WriteField("industry", industry); err != nil {
		return fmt.Errorf("build onboarding form: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("build onboarding form: %w", err)
	}
	if _, err := io.Copy(part, contents); err != nil {
		return fmt.Errorf("read onboarding document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize onboarding form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/onboarding/setup", &buf)
	if err != nil {
		return fmt.Errorf("build onboarding request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, err = c.do(req)
	return err
}
