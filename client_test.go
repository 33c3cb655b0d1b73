package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testClient(rt http.RoundTripper) *apiClient {
	return &apiClient{
		baseURL: "http://flowsync.test/api",
		http:    &http.Client{Transport: rt},
	}
}

func TestSendTurnPostsConversationAndMessage(t *testing.T) {
	setAuthToken("test-token")
	defer clearAuthToken()

	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/api/chat/" {
			t.Fatalf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		body, _ := io.ReadAll(req.Body)
		payload := string(body)
		if !strings.Contains(payload, `"conversation_id":"conv-1"`) {
			t.Fatalf("missing conversation id in payload: %s", payload)
		}
		if !strings.Contains(payload, `"message":"What is our runway?"`) {
			t.Fatalf("missing message in payload: %s", payload)
		}
		return jsonResponse(200, `{"response":"18 months at current burn"}`), nil
	}))

	reply, err := client.sendTurn(context.Background(), "conv-1", "What is our runway?")
	if err != nil {
		t.Fatalf("sendTurn returned error: %v", err)
	}
	if reply != "18 months at current burn" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestStartConversationDecodesQuotedID(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/chat/start" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("section_id"); got != "agent-finance" {
			t.Fatalf("unexpected section_id: %q", got)
		}
		return jsonResponse(200, `"3b1f1f8e-6f0a-4c64-9f7e-0d9e3f0f8f11"`), nil
	}))

	conversationID, err := client.startConversation(context.Background(), "agent-finance")
	if err != nil {
		t.Fatalf("startConversation returned error: %v", err)
	}
	if conversationID != "3b1f1f8e-6f0a-4c64-9f7e-0d9e3f0f8f11" {
		t.Fatalf("unexpected conversation id: %q", conversationID)
	}
}

func TestFetchHistoryNormalizesRecords(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/chat/conv-1/history" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(200, `[
			{"id":"m1","role":"user","content":"hello","timestamp":"2026-01-02T10:00:00Z"},
			{"id":"m2","role":"assistant","content":"hi there","timestamp":"2026-01-02T10:00:05Z"}
		]`), nil
	}))

	messages, err := client.fetchHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("fetchHistory returned error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].role != roleUser || messages[0].content != "hello" {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[1].role != roleAssistant || messages[1].id != "m2" {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
}

func TestAPIErrorDecodesDetailEnvelope(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(403, `{"detail":"Credit limit reached. Please upgrade your plan."}`), nil
	}))

	_, err := client.sendTurn(context.Background(), "conv-1", "hello")
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "Credit limit reached") {
		t.Fatalf("expected detail in error, got %q", err.Error())
	}
	if isUnauthorized(err) {
		t.Fatal("403 must not count as unauthorized")
	}
}

func TestIsUnauthorizedMatches401(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"detail":"Not authenticated"}`), nil
	}))

	_, err := client.me(context.Background())
	if !isUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestUploadDocumentSendsMultipartForm(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/documents/upload" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		if got := req.MultipartForm.Value["conversation_id"]; len(got) != 1 || got[0] != "conv-1" {
			t.Fatalf("unexpected conversation_id field: %v", got)
		}
		files := req.MultipartForm.File["file"]
		if len(files) != 1 || files[0].Filename != "report.pdf" {
			t.Fatalf("unexpected file part: %+v", files)
		}
		part, err := files[0].Open()
		if err != nil {
			t.Fatalf("open file part: %v", err)
		}
		defer part.Close()
		contents, _ := io.ReadAll(part)
		if string(contents) != "pdf bytes" {
			t.Fatalf("unexpected file contents: %q", contents)
		}
		return jsonResponse(200, `{"status":"success"}`), nil
	}))

	err := client.uploadDocument(context.Background(), "conv-1", "report.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("uploadDocument returned error: %v", err)
	}
}

func TestLoginSendsPasswordFormEncoding(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/auth/login" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Fatalf("unexpected content type: %q", got)
		}
		if err := req.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if req.PostForm.Get("username") != "founder@example.com" || req.PostForm.Get("password") != "hunter2" {
			t.Fatalf("unexpected form values: %v", req.PostForm)
		}
		return jsonResponse(200, `{"access_token":"tok-1","token_type":"bearer"}`), nil
	}))

	token, err := client.login(context.Background(), "founder@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("unexpected token: %q", token)
	}
}

func TestMeDecodesNullOrg(t *testing.T) {
	client := testClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"id":"u1","email":"a@b.c","full_name":"Ada","org":null}`), nil
	}))

	account, err := client.me(context.Background())
	if err != nil {
		t.Fatalf("me returned error: %v", err)
	}
	if account.Org != nil {
		t.Fatalf("expected nil org, got %+v", account.Org)
	}
	if account.FullName != "Ada" {
		t.Fatalf("unexpected account: %+v", account)
	}
}
