// Package rf is the HTTP client for the RedForester node-graph API.
//
// Calls authenticate per request with the credentials of the acting chat
// session; the client itself holds no user state.
package rf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"rfkeeper/pkg/config"
)

// anonymousUsername is the sentinel identity the service reports for
// requests it could not authenticate. It must read as a login failure.
const anonymousUsername = "anonymous"

// Credentials authenticate one request on behalf of a chat session.
type Credentials struct {
	Username string
	Password string
}

// User is the remote account identity.
type User struct {
	ID       string   `json:"user_id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Surname  string   `json:"surname"`
	TagIDs   []string `json:"tags"`
}

// Node is one tree node of a mind map.
type Node struct {
	ID       string `json:"id"`
	MapID    string `json:"map_id"`
	ParentID string `json:"parent"`
	Title    string `json:"title"`
}

// FileInfo describes one uploaded file attached to a node.
type FileInfo struct {
	ID                    string `json:"filepath"`
	Name                  string `json:"name"`
	LastModifiedTimestamp int64  `json:"last_modified_timestamp"`
	LastModifiedUserID    string `json:"last_modified_user"`
}

// Client talks to one RedForester deployment.
type Client struct {
	baseURL        string
	http           *http.Client
	requestTimeout time.Duration
}

// NewClient builds a client from the redforester config section.
func NewClient(cfg config.RedForesterConfig) *Client {
	return &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:           &http.Client{},
		requestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}
}

// Login verifies credentials by fetching the current user.
//
// The anonymous-user sentinel response maps to ErrAuth: the service answers
// 200 for unauthenticated requests and reports a placeholder identity
// instead.
func (c *Client) Login(ctx context.Context, username string, password string) (User, error) {
	creds := Credentials{Username: username, Password: password}

	var user User
	if err := c.do(ctx, creds, http.MethodGet, "/api/user", nil, &user, "login"); err != nil {
		return User{}, err
	}

	if strings.EqualFold(strings.TrimSpace(user.Username), anonymousUsername) {
		return User{}, fmt.Errorf("%w: anonymous user", ErrAuth)
	}

	return user, nil
}

// GetNode fetches one node, reporting ErrNotFound for missing or
// inaccessible nodes.
func (c *Client) GetNode(ctx context.Context, creds Credentials, nodeID string) (Node, error) {
	var node Node
	if err := c.do(ctx, creds, http.MethodGet, "/api/nodes/"+nodeID, nil, &node, "get_node"); err != nil {
		return Node{}, err
	}

	return node, nil
}

type createNodeRequest struct {
	MapID      string         `json:"map_id"`
	Parent     string         `json:"parent"`
	Position   []string       `json:"position"`
	Properties nodeProperties `json:"properties"`
}

type nodeProperties struct {
	Global globalProperties `json:"global"`
}

type globalProperties struct {
	Title string `json:"title"`
}

// CreateNode creates a node under parentID with the given HTML body as its
// title property. New nodes land at the end of the parent's children.
func (c *Client) CreateNode(ctx context.Context, creds Credentials, mapID string, parentID string, htmlBody string) (Node, error) {
	request := createNodeRequest{
		MapID:      mapID,
		Parent:     parentID,
		Position:   []string{"P", "-1"},
		Properties: nodeProperties{Global: globalProperties{Title: htmlBody}},
	}

	var node Node
	if err := c.do(ctx, creds, http.MethodPost, "/api/nodes", request, &node, "create_node"); err != nil {
		return Node{}, err
	}

	return node, nil
}

type updateFilesRequest struct {
	Files []FileInfo `json:"files"`
}

// UpdateNodeFiles attaches the uploaded file list to an existing node.
// Node creation cannot carry file metadata, so this always runs as a
// follow-up call.
func (c *Client) UpdateNodeFiles(ctx context.Context, creds Credentials, nodeID string, files []FileInfo) error {
	return c.do(ctx, creds, http.MethodPost, "/api/nodes/"+nodeID+"/files", updateFilesRequest{Files: files}, nil, "update_node_files")
}

type moveNodeRequest struct {
	Parent string `json:"parent"`
}

// MoveNode reparents a node and returns its updated record.
func (c *Client) MoveNode(ctx context.Context, creds Credentials, nodeID string, newParentID string) (Node, error) {
	var node Node
	if err := c.do(ctx, creds, http.MethodPost, "/api/nodes/"+nodeID+"/move", moveNodeRequest{Parent: newParentID}, &node, "move_node"); err != nil {
		return Node{}, err
	}

	return node, nil
}

// Favorites lists the nodes carrying the current user's first tag.
//
// Users without tags have no favorites and get an empty list.
func (c *Client) Favorites(ctx context.Context, creds Credentials) ([]Node, error) {
	var user User
	if err := c.do(ctx, creds, http.MethodGet, "/api/user", nil, &user, "favorites"); err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(user.Username), anonymousUsername) {
		return nil, fmt.Errorf("%w: anonymous user", ErrAuth)
	}
	if len(user.TagIDs) == 0 {
		return nil, nil
	}

	var nodes []Node
	if err := c.do(ctx, creds, http.MethodGet, "/api/tags/"+user.TagIDs[0]+"/nodes", nil, &nodes, "favorites"); err != nil {
		return nil, err
	}

	return nodes, nil
}

type uploadResponse struct {
	FileID    string `json:"file_id"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"user_id"`
}

// UploadFile stores raw bytes in the service file store and returns the
// file record to attach to a node.
func (c *Client) UploadFile(ctx context.Context, creds Credentials, fileName string, data []byte) (FileInfo, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return FileInfo{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return FileInfo{}, fmt.Errorf("build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("build multipart body: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := clientLogger().With("operation", "upload_file")
	startedAt := time.Now()
	log.Debug("api request started", "file_name", fileName, "size", len(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files", &body)
	if err != nil {
		return FileInfo{}, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("api request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return FileInfo{}, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		log.Debug("api request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "status", resp.StatusCode)
		return FileInfo{}, statusError(resp.StatusCode, detail)
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return FileInfo{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	log.Debug("api request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "file_id", uploaded.FileID)

	return FileInfo{
		ID:                    uploaded.FileID,
		Name:                  fileName,
		LastModifiedTimestamp: uploaded.Timestamp,
		LastModifiedUserID:    uploaded.UserID,
	}, nil
}

func (c *Client) do(ctx context.Context, creds Credentials, method string, path string, payload any, out any, operation string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := clientLogger().With("operation", operation)
	startedAt := time.Now()
	log.Debug("api request started", "method", method, "path", path)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("api request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		log.Debug("api request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "status", resp.StatusCode)
		return statusError(resp.StatusCode, detail)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
	}
	log.Debug("api request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func clientLogger() *slog.Logger {
	return slog.Default().With("component", "rf.client")
}

const errorDetailLimit = 512

func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, errorDetailLimit))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(raw))
}
