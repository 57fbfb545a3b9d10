package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkotari/smartdrive"
	"github.com/rkotari/smartdrive/database"
	"github.com/rkotari/smartdrive/filesystem"
	smarthttp "github.com/rkotari/smartdrive/http"
)

// startServer wires a full server on a SQLite database and a filesystem blob
// store, both rooted in temp directories. The blob store's base URL is left
// empty so presigned URLs come back relative and can be resolved against the
// test server address.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	stores, closeStores, err := database.Connect(ctx, database.Config{
		Type:   "sqlite",
		DSN:    filepath.Join(t.TempDir(), "e2e.db"),
		Tables: smartdrive.Tables{Accounts: "users", Files: "files"},
	})
	require.NoError(t, err)
	t.Cleanup(closeStores)

	blobDir := t.TempDir()
	root, err := os.OpenRoot(blobDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	secret := []byte("0123456789abcdef0123456789abcdef")
	blobs := filesystem.NewStore(root, secret, "")
	tokens := smartdrive.NewTokenService(secret, time.Hour)
	service := smartdrive.NewService(stores.Accounts, stores.Catalog, blobs, tokens, smartdrive.ServiceConfig{
		URLTTL: time.Hour,
	})

	handler := smarthttp.NewHandler(&smarthttp.HandlerConfig{
		Verifier:  tokens,
		Downloads: blobs,
	}, service)

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func signup(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp, body := postJSON(t, server.URL+"/signup",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func doAuthed(t *testing.T, method, url, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func uploadFile(t *testing.T, server *httptest.Server, token, fileName, content string) map[string]any {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp := doAuthed(t, "POST", server.URL+"/upload", token, body, writer.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody(t, resp)
}

func listFiles(t *testing.T, server *httptest.Server, token string) []map[string]any {
	t.Helper()
	resp := doAuthed(t, "GET", server.URL+"/files", token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func() { _ = resp.Body.Close() }()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestFullFileLifecycle(t *testing.T) {
	server := startServer(t)

	aliceToken := signup(t, server, "a@x.com", "password-a")

	// Upload a file and confirm the response shape.
	uploaded := uploadFile(t, server, aliceToken, "r.txt", "report body")
	assert.Equal(t, "File uploaded successfully!", uploaded["message"])
	assert.Equal(t, "r.txt", uploaded["file_name"])
	fileID, _ := uploaded["file_id"].(string)
	require.NotEmpty(t, fileID)

	// The file shows up in the owner's list with a usable download URL.
	files := listFiles(t, server, aliceToken)
	require.Len(t, files, 1)
	assert.Equal(t, "r.txt", files[0]["file_name"])

	downloadURL, _ := files[0]["url"].(string)
	require.NotEmpty(t, downloadURL)
	resp, err := http.Get(server.URL + downloadURL)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "report body", string(data))

	// Another user cannot see or delete it.
	bobToken := signup(t, server, "b@x.com", "password-b")
	assert.Empty(t, listFiles(t, server, bobToken))

	resp = doAuthed(t, "DELETE", server.URL+"/delete/"+fileID, bobToken, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	// Still there for the owner.
	require.Len(t, listFiles(t, server, aliceToken), 1)

	// The owner deletes it.
	resp = doAuthed(t, "DELETE", server.URL+"/delete/"+fileID, aliceToken, nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "File deleted successfully!", decodeBody(t, resp)["message"])

	assert.Empty(t, listFiles(t, server, aliceToken))

	// The old download URL no longer serves content.
	resp, err = http.Get(server.URL + downloadURL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Deleting again reports not found.
	resp = doAuthed(t, "DELETE", server.URL+"/delete/"+fileID, aliceToken, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAuthFlows(t *testing.T) {
	server := startServer(t)

	signup(t, server, "a@x.com", "password-a")

	t.Run("duplicate signup", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/signup", `{"email":"a@x.com","password":"other"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "User already exists", body["message"])
	})

	t.Run("login with correct password", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/login", `{"email":"a@x.com","password":"password-a"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Login successful!", body["message"])
		assert.NotEmpty(t, body["token"])
	})

	t.Run("login with wrong password", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/login", `{"email":"a@x.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email or password", body["message"])
	})

	t.Run("login with unknown email", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/login", `{"email":"ghost@x.com","password":"password-a"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email or password", body["message"])
	})

	t.Run("protected routes reject anonymous requests", func(t *testing.T) {
		for _, route := range []struct{ method, path string }{
			{"POST", "/upload"},
			{"GET", "/files"},
			{"DELETE", "/delete/some-id"},
		} {
			req, err := http.NewRequest(route.method, server.URL+route.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
			_ = resp.Body.Close()
		}
	})

	t.Run("token from a different secret is rejected", func(t *testing.T) {
		forged := smartdrive.NewTokenService([]byte("another-secret-another-secret-ab"), time.Hour)
		token, err := forged.Issue("a@x.com")
		require.NoError(t, err)

		resp := doAuthed(t, "GET", server.URL+"/files", token, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestDownloadURLSecurity(t *testing.T) {
	server := startServer(t)
	token := signup(t, server, "a@x.com", "password-a")

	uploaded := uploadFile(t, server, token, "secret.txt", "classified")
	downloadURL, _ := uploaded["url"].(string)
	require.NotEmpty(t, downloadURL)

	t.Run("tampered signature is rejected", func(t *testing.T) {
		tampered := downloadURL[:len(downloadURL)-4] + "0000"
		resp, err := http.Get(server.URL + tampered)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unsigned request is rejected", func(t *testing.T) {
		base := strings.Split(downloadURL, "?")[0]
		resp, err := http.Get(server.URL + base)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
