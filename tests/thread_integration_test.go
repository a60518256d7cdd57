package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// ============================================================================
// Test Configuration
// ============================================================================

var (
	baseURL = getEnv("TEST_BASE_URL", "http://localhost:8080")

	// Test user credentials (from seeds/test_threads.sql)
	testUsers = map[string]testUser{
		"alice":   {ID: 100, Username: "alice_test", Password: "password123"},
		"bob":     {ID: 101, Username: "bob_test", Password: "password123"},
		"charlie": {ID: 102, Username: "charlie_test", Password: "password123"},
		"admin":   {ID: 110, Username: "admin_test", Password: "password123"},
	}

	// Course all test users are enrolled in (from seeds)
	testCourseID = int64(200)
)

type testUser struct {
	ID       int64
	Username string
	Password string
	Token    string // Set after login
}

// ============================================================================
// HTTP Client Helpers
// ============================================================================

type apiClient struct {
	client  *http.Client
	baseURL string
	token   string
}

func newClient() *apiClient {
	return &apiClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

func (c *apiClient) withToken(token string) *apiClient {
	c.token = token
	return c
}

func (c *apiClient) do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

func (c *apiClient) get(path string) (*http.Response, error) {
	return c.do("GET", path, nil)
}

func (c *apiClient) post(path string, body interface{}) (*http.Response, error) {
	return c.do("POST", path, body)
}

func (c *apiClient) put(path string, body interface{}) (*http.Response, error) {
	return c.do("PUT", path, body)
}

func (c *apiClient) delete(path string) (*http.Response, error) {
	return c.do("DELETE", path, nil)
}

func parseJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ============================================================================
// Login Helper
// ============================================================================

func login(t *testing.T, username, password string) string {
	t.Helper()
	client := newClient()
	resp, err := client.post("/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Login failed with status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := parseJSON(resp, &result); err != nil {
		t.Fatalf("Parse login response: %v", err)
	}
	return result.AccessToken
}

// ============================================================================
// Thread Response Types
// ============================================================================

type threadNode struct {
	ID       int64        `json:"id"`
	ParentID *int64       `json:"parent_id"`
	Content  string       `json:"content"`
	Author   struct {
		Username string `json:"username"`
	} `json:"author"`
	ReplyCount int          `json:"reply_count"`
	Replies    []threadNode `json:"replies"`
}

type threadResponse struct {
	Comments         []threadNode `json:"comments"`
	CommentCount     int          `json:"comment_count"`
	CollapsedThreads []int64      `json:"collapsed_threads"`
}

func getThread(t *testing.T, client *apiClient) threadResponse {
	t.Helper()
	resp, err := client.get(fmt.Sprintf("/courses/%d/comments", testCourseID))
	if err != nil {
		t.Fatalf("Get thread: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Get thread failed: %d - %s", resp.StatusCode, body)
	}
	var thread threadResponse
	if err := parseJSON(resp, &thread); err != nil {
		t.Fatalf("Parse thread: %v", err)
	}
	return thread
}

func createComment(t *testing.T, client *apiClient, content string, parentID *int64) threadNode {
	t.Helper()
	body := map[string]interface{}{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	resp, err := client.post(fmt.Sprintf("/courses/%d/comments", testCourseID), body)
	if err != nil {
		t.Fatalf("Create comment: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		t.Fatalf("Create comment failed: %d - %s", resp.StatusCode, respBody)
	}
	var node threadNode
	if err := parseJSON(resp, &node); err != nil {
		t.Fatalf("Parse comment: %v", err)
	}
	return node
}

// ============================================================================
// TEST CASES
// ============================================================================

// TestThreadOrdering verifies top-level comments come back newest first while
// replies stay oldest first.
func TestThreadOrdering(t *testing.T) {
	token := login(t, "alice_test", "password123")
	client := newClient().withToken(token)

	first := createComment(t, client, "first topic", nil)
	second := createComment(t, client, "second topic", nil)
	replyA := createComment(t, client, "reply a", &first.ID)
	replyB := createComment(t, client, "reply b", &first.ID)

	thread := getThread(t, client)

	// Newest top-level first: second must come before first
	posFirst, posSecond := -1, -1
	for i, c := range thread.Comments {
		switch c.ID {
		case first.ID:
			posFirst = i
		case second.ID:
			posSecond = i
		}
	}
	if posFirst == -1 || posSecond == -1 {
		t.Fatalf("Created comments missing from thread")
	}
	if posSecond > posFirst {
		t.Errorf("Expected newest top-level comment first: second at %d, first at %d", posSecond, posFirst)
	}

	// Replies oldest first: replyA before replyB under first
	var parent *threadNode
	for i := range thread.Comments {
		if thread.Comments[i].ID == first.ID {
			parent = &thread.Comments[i]
		}
	}
	if parent == nil || len(parent.Replies) < 2 {
		t.Fatalf("Expected 2 replies under comment %d", first.ID)
	}
	if parent.Replies[0].ID != replyA.ID || parent.Replies[1].ID != replyB.ID {
		t.Errorf("Expected replies in creation order, got [%d %d]", parent.Replies[0].ID, parent.Replies[1].ID)
	}

	t.Log("✓ Thread ordering test passed")
}

// TestCollapseStatePersists verifies that a thread with replies starts
// collapsed and that toggling survives a re-fetch.
func TestCollapseStatePersists(t *testing.T) {
	token := login(t, "bob_test", "password123")
	client := newClient().withToken(token)

	top := createComment(t, client, "collapse me", nil)
	createComment(t, client, "a reply", &top.ID)

	thread := getThread(t, client)
	if !containsID(thread.CollapsedThreads, top.ID) {
		t.Errorf("Expected new thread %d to start collapsed", top.ID)
	}

	// Expand it
	resp, err := client.put(fmt.Sprintf("/courses/%d/comments/%d/collapse", testCourseID, top.ID),
		map[string]bool{"collapsed": false})
	if err != nil {
		t.Fatalf("Set collapsed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Set collapsed failed: %d", resp.StatusCode)
	}

	thread = getThread(t, client)
	if containsID(thread.CollapsedThreads, top.ID) {
		t.Errorf("Expected thread %d to stay expanded after toggle", top.ID)
	}

	t.Log("✓ Collapse persistence test passed")
}

// TestCollapseLeafIsNoop verifies collapsing a comment without replies does
// nothing rather than erroring.
func TestCollapseLeafIsNoop(t *testing.T) {
	token := login(t, "bob_test", "password123")
	client := newClient().withToken(token)

	leaf := createComment(t, client, "no replies here", nil)

	resp, err := client.put(fmt.Sprintf("/courses/%d/comments/%d/collapse", testCourseID, leaf.ID),
		map[string]bool{"collapsed": true})
	if err != nil {
		t.Fatalf("Set collapsed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for leaf collapse, got %d", resp.StatusCode)
	}

	thread := getThread(t, client)
	if containsID(thread.CollapsedThreads, leaf.ID) {
		t.Errorf("Leaf %d should not appear in collapsed threads", leaf.ID)
	}

	t.Log("✓ Leaf collapse no-op test passed")
}

// TestCascadeDelete verifies deleting a comment removes its whole reply
// subtree.
func TestCascadeDelete(t *testing.T) {
	token := login(t, "charlie_test", "password123")
	client := newClient().withToken(token)

	top := createComment(t, client, "doomed thread", nil)
	reply := createComment(t, client, "doomed reply", &top.ID)
	createComment(t, client, "doomed grandchild", &reply.ID)

	resp, err := client.delete(fmt.Sprintf("/courses/%d/comments/%d", testCourseID, top.ID))
	if err != nil {
		t.Fatalf("Delete comment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Delete failed: %d", resp.StatusCode)
	}

	thread := getThread(t, client)
	for _, c := range flatten(thread.Comments) {
		if c.ID == top.ID || c.ID == reply.ID {
			t.Errorf("Comment %d should have been cascade-deleted", c.ID)
		}
	}

	t.Log("✓ Cascade delete test passed")
}

// TestDeleteRequiresAuthorOrAdmin verifies a stranger cannot delete someone
// else's comment but an admin can.
func TestDeleteRequiresAuthorOrAdmin(t *testing.T) {
	aliceToken := login(t, "alice_test", "password123")
	alice := newClient().withToken(aliceToken)

	comment := createComment(t, alice, "alice's comment", nil)

	bobToken := login(t, "bob_test", "password123")
	bob := newClient().withToken(bobToken)

	resp, err := bob.delete(fmt.Sprintf("/courses/%d/comments/%d", testCourseID, comment.ID))
	if err != nil {
		t.Fatalf("Delete comment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for non-author delete, got %d", resp.StatusCode)
	}

	adminToken := login(t, "admin_test", "password123")
	admin := newClient().withToken(adminToken)

	resp, err = admin.delete(fmt.Sprintf("/courses/%d/comments/%d", testCourseID, comment.ID))
	if err != nil {
		t.Fatalf("Admin delete comment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected admin delete to succeed, got %d", resp.StatusCode)
	}

	t.Log("✓ Delete authorization test passed")
}

// TestReplyNotification verifies a reply produces a notification for the
// parent author. Worker fan-out is async, so poll briefly.
func TestReplyNotification(t *testing.T) {
	aliceToken := login(t, "alice_test", "password123")
	alice := newClient().withToken(aliceToken)

	parent := createComment(t, alice, "notify me", nil)

	bobToken := login(t, "bob_test", "password123")
	bob := newClient().withToken(bobToken)
	reply := createComment(t, bob, "here's a reply", &parent.ID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := alice.get("/notifications")
		if err != nil {
			t.Fatalf("Get notifications: %v", err)
		}
		var result struct {
			Replies []struct {
				CommentID *int64 `json:"comment_id"`
				Actor     struct {
					Username string `json:"username"`
				} `json:"actor"`
			} `json:"replies"`
		}
		if err := parseJSON(resp, &result); err != nil {
			t.Fatalf("Parse notifications: %v", err)
		}
		for _, n := range result.Replies {
			if n.CommentID != nil && *n.CommentID == reply.ID {
				if n.Actor.Username != "bob_test" {
					t.Errorf("Expected actor bob_test, got %s", n.Actor.Username)
				}
				t.Log("✓ Reply notification test passed")
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	t.Fatalf("Reply notification for comment %d never arrived", reply.ID)
}

// TestEnrollmentRequiredToComment verifies commenting is gated on enrollment.
func TestEnrollmentRequiredToComment(t *testing.T) {
	// admin_test is deliberately not enrolled in the unenrolled course from
	// the seeds
	token := login(t, "alice_test", "password123")
	client := newClient().withToken(token)

	unenrolledCourseID := int64(201) // seeds: course alice is not enrolled in
	resp, err := client.post(fmt.Sprintf("/courses/%d/comments", unenrolledCourseID),
		map[string]string{"content": "should fail"})
	if err != nil {
		t.Fatalf("Create comment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for unenrolled commenter, got %d", resp.StatusCode)
	}

	t.Log("✓ Enrollment gate test passed")
}

// ============================================================================
// Helpers
// ============================================================================

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func flatten(nodes []threadNode) []threadNode {
	var out []threadNode
	for _, n := range nodes {
		out = append(out, n)
		out = append(out, flatten(n.Replies)...)
	}
	return out
}
