package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is the typed transport layer over the backend HTTP API. Every call
// either returns a parsed payload of the expected shape or fails with one of
// RequestError, APIError, DecodeError. Nothing is retried here; retries are
// always user-initiated.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000/api"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type searchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type SearchResponse struct {
	Papers []Paper `json:"papers"`
	Total  int     `json:"total"`
	Query  string  `json:"query,omitempty"`
}

func (c *Client) SearchPapers(ctx context.Context, query string, limit, offset int) (SearchResponse, error) {
	var out SearchResponse
	err := c.do(ctx, http.MethodPost, "/search/papers", searchRequest{Query: query, Limit: limit, Offset: offset}, &out)
	return out, err
}

type savePaperRequest struct {
	Paper     Paper  `json:"paper"`
	TopicName string `json:"topic_name"`
}

type SaveResponse struct {
	Message string `json:"message"`
	PaperID int64  `json:"paper_id"`
}

func (c *Client) SavePaper(ctx context.Context, paper Paper, topicName string) (SaveResponse, error) {
	var out SaveResponse
	err := c.do(ctx, http.MethodPost, "/papers/save", savePaperRequest{Paper: paper, TopicName: topicName}, &out)
	return out, err
}

func (c *Client) Topics(ctx context.Context) ([]Topic, error) {
	var out []Topic
	err := c.do(ctx, http.MethodGet, "/topics", nil, &out)
	return out, err
}

func (c *Client) TopicPapers(ctx context.Context, topicID int64) ([]SavedPaper, error) {
	var out []SavedPaper
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/topics/%d/papers", topicID), nil, &out)
	return out, err
}

func (c *Client) DeletePaper(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/papers/%d", id), nil, nil)
}

type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
}

// Upload sends the document as multipart/form-data with field name "file"
// and, when topicID is non-zero, an additional "topic_id" field.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader, topicID int64) (UploadResponse, error) {
	const op = "upload"
	var out UploadResponse

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return out, &RequestError{Op: op, Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return out, &RequestError{Op: op, Err: err}
	}
	if topicID != 0 {
		if err := mw.WriteField("topic_id", strconv.FormatInt(topicID, 10)); err != nil {
			return out, &RequestError{Op: op, Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return out, &RequestError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", &body)
	if err != nil {
		return out, &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", uuid.NewString())

	err = c.roundTrip(op, req, &out)
	return out, err
}

func (c *Client) Documents(ctx context.Context, topicID int64) ([]Document, error) {
	path := "/documents"
	if topicID != 0 {
		path += "?topic_id=" + url.QueryEscape(strconv.FormatInt(topicID, 10))
	}
	var out []Document
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) DeleteDocument(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/documents/%d", id), nil, nil)
}

type createSessionRequest struct {
	Name        string  `json:"name"`
	DocumentIDs []int64 `json:"document_ids"`
}

type CreateSessionResponse struct {
	Message       string `json:"message"`
	SessionID     int64  `json:"session_id"`
	DocumentCount int    `json:"document_count"`
}

func (c *Client) CreateSession(ctx context.Context, name string, documentIDs []int64) (CreateSessionResponse, error) {
	var out CreateSessionResponse
	err := c.do(ctx, http.MethodPost, "/sessions/create", createSessionRequest{Name: name, DocumentIDs: documentIDs}, &out)
	return out, err
}

func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := c.do(ctx, http.MethodGet, "/sessions", nil, &out)
	return out, err
}

func (c *Client) SessionDetails(ctx context.Context, id int64) (SessionDetails, error) {
	var out SessionDetails
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sessions/%d", id), nil, &out)
	return out, err
}

func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/sessions/%d", id), nil, nil)
}

type queryRequest struct {
	DocumentID int64  `json:"document_id,omitempty"`
	SessionID  int64  `json:"session_id,omitempty"`
	Question   string `json:"question"`
}

type QueryResponse struct {
	Answer   string `json:"answer"`
	Question string `json:"question,omitempty"`
}

// Query asks a question scoped to a conversation key. Both variants share
// the /query endpoint; the body carries document_id or session_id.
func (c *Client) Query(ctx context.Context, key ChatKey, question string) (QueryResponse, error) {
	body := queryRequest{Question: question}
	switch {
	case key.IsDocument():
		body.DocumentID = key.ID()
	case key.IsSession():
		body.SessionID = key.ID()
	default:
		return QueryResponse{}, validationErr(CodeNoActiveChat, "no document or session selected")
	}
	var out QueryResponse
	err := c.do(ctx, http.MethodPost, "/query", body, &out)
	return out, err
}

// Conversations fetches the persisted question/answer pairs for a key in
// creation order.
func (c *Client) Conversations(ctx context.Context, key ChatKey) ([]ConversationRecord, error) {
	var path string
	switch {
	case key.IsDocument():
		path = fmt.Sprintf("/conversations/%d", key.ID())
	case key.IsSession():
		path = fmt.Sprintf("/sessions/%d/conversations", key.ID())
	default:
		return nil, validationErr(CodeNoActiveChat, "no document or session selected")
	}
	var out []ConversationRecord
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	return c.roundTrip(op, req, out)
}

func (c *Client) roundTrip(op string, req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// FastAPI-style errors come as {"detail": "..."}.
		var apiErr struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Detail
		if msg == "" {
			msg = apiErr.Message
		}
		c.logger.Error("api error", map[string]interface{}{
			"op":     op,
			"status": resp.StatusCode,
			"detail": msg,
		})
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
