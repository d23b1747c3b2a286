package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/medterms/internal/app"
	"github.com/bobmcallan/medterms/internal/auth"
	"github.com/bobmcallan/medterms/internal/common"
	"github.com/bobmcallan/medterms/internal/models"
)

const testPassword = "letmein"

// newTestServerWithStorage creates a test server backed by real file storage.
func newTestServerWithStorage(t *testing.T, configure ...func(*common.Config)) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := common.NewDefaultConfig()
	cfg.Storage.TermsPath = filepath.Join(dir, "terms.json")
	cfg.Storage.Images.Path = filepath.Join(dir, "uploads")
	cfg.Auth.AdminPassword = testPassword
	cfg.Server.WriteRateLimit = 0
	for _, fn := range configure {
		fn(cfg)
	}

	a, err := app.NewAppWithConfig(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	_, err = a.Terms.Init(context.Background())
	require.NoError(t, err)

	return NewServer(a), dir
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func createTerm(t *testing.T, srv *Server, input models.TermInput) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/terms", jsonBody(t, input))
	req.Header.Set(auth.HeaderName, testPassword)
	return do(srv, req)
}

func mustCreateTerm(t *testing.T, srv *Server, term, definition, explanation string) {
	t.Helper()
	rec := createTerm(t, srv, models.TermInput{Term: term, Definition: definition, Explanation: explanation})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(srv, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleVersion(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp common.VersionInfo
	decode(t, rec, &resp)
	assert.Equal(t, common.GetVersionInfo(), resp)
}

func TestHandleTermList_Sorted(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	mustCreateTerm(t, srv, "bradycardia", "Slow.", "Under 60.")
	mustCreateTerm(t, srv, "Aorta", "Artery.", "Big.")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/terms", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp struct {
		Terms []models.Term `json:"terms"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Terms, 2)
	assert.Equal(t, "Aorta", resp.Terms[0].Term)
	assert.Equal(t, "bradycardia", resp.Terms[1].Term)
}

func TestHandleTermList_Empty(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/terms", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"terms":[]}`, rec.Body.String())
}

func TestHandleTermList_MissingFile(t *testing.T) {
	srv, dir := newTestServerWithStorage(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "terms.json")))

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/terms", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "store_read", resp.Code)
	assert.Equal(t, "Failed to load terms.", resp.Error)
	assert.NotContains(t, rec.Body.String(), dir, "file paths stay server side")
}

func TestHandleTermCreate_Success(t *testing.T) {
	srv, dir := newTestServerWithStorage(t)

	rec := createTerm(t, srv, models.TermInput{
		Term:        "Atrial Fibrillation",
		Definition:  "Irregular rhythm.",
		Explanation: "Chaotic.",
		Synonyms:    "AF, AFib",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Term models.Term `json:"term"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "atrial-fibrillation", resp.Term.Slug)
	assert.Equal(t, []string{"AF", "AFib"}, resp.Term.Synonyms)
	assert.NotEmpty(t, resp.Term.CreatedAt)

	data, err := os.ReadFile(filepath.Join(dir, "terms.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slug": "atrial-fibrillation"`)
}

func TestHandleTermCreate_Unauthorized(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	body := models.TermInput{Term: "Aorta", Definition: "d", Explanation: "e"}

	for _, credential := range []string{"", "wrong", testPassword + " "} {
		req := httptest.NewRequest(http.MethodPost, "/api/terms", jsonBody(t, body))
		if credential != "" {
			req.Header.Set(auth.HeaderName, credential)
		}
		rec := do(srv, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, credential)

		var resp ErrorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Unauthorized", resp.Error)
		assert.Equal(t, "authorization", resp.Code)
	}

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/terms", nil))
	assert.JSONEq(t, `{"terms":[]}`, rec.Body.String(), "nothing written")
}

func TestHandleTermCreate_RateLimitIgnoresAnonymousWrites(t *testing.T) {
	srv, _ := newTestServerWithStorage(t, func(c *common.Config) {
		c.Server.WriteRateLimit = 0.001
		c.Server.WriteBurst = 2
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/terms", jsonBody(t, models.TermInput{Term: "Aorta", Definition: "d", Explanation: "e"}))
		assert.Equal(t, http.StatusUnauthorized, do(srv, req).Code)
	}

	rec := createTerm(t, srv, models.TermInput{Term: "Aorta", Definition: "d", Explanation: "e"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = createTerm(t, srv, models.TermInput{Term: "Atrium", Definition: "d", Explanation: "e"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = createTerm(t, srv, models.TermInput{Term: "Axon", Definition: "d", Explanation: "e"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "rate_limited", resp.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestHandleTermCreate_NoPasswordConfigured(t *testing.T) {
	srv, _ := newTestServerWithStorage(t, func(c *common.Config) { c.Auth.AdminPassword = "" })

	req := httptest.NewRequest(http.MethodPost, "/api/terms", jsonBody(t, models.TermInput{Term: "a", Definition: "b", Explanation: "c"}))
	req.Header.Set(auth.HeaderName, "")
	assert.Equal(t, http.StatusUnauthorized, do(srv, req).Code)
}

func TestHandleTermCreate_Errors(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	mustCreateTerm(t, srv, "Aorta", "d", "e")

	tests := []struct {
		name   string
		input  models.TermInput
		status int
		code   string
	}{
		{"missing definition", models.TermInput{Term: "X", Definition: " ", Explanation: "e"}, http.StatusBadRequest, "validation"},
		{"empty slug", models.TermInput{Term: "%%%", Definition: "d", Explanation: "e"}, http.StatusBadRequest, "slug"},
		{"duplicate", models.TermInput{Term: "aorta", Definition: "d", Explanation: "e"}, http.StatusConflict, "conflict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := createTerm(t, srv, tt.input)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleTermCreate_InvalidJSON(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)

	req := httptest.NewRequest(http.MethodPost, "/api/terms", strings.NewReader("{not json"))
	req.Header.Set(auth.HeaderName, testPassword)
	assert.Equal(t, http.StatusBadRequest, do(srv, req).Code)
}

func TestHandleTermGet(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	mustCreateTerm(t, srv, "Left Ventricle", "Chamber.", "Pumps.")
	rec := createTerm(t, srv, models.TermInput{
		Term:        "Aorta",
		Definition:  "Main artery.",
		Explanation: "Leaves the heart. See https://nih.gov\n![Diagram](/uploads/aorta.png)",
		Related:     "left-ventricle, pulmonary-artery",
		Roots:       "aort:lifted",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/terms/aorta", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp termDetail
	decode(t, rec, &resp)
	assert.Equal(t, "Aorta", resp.Term.Term)
	require.Len(t, resp.Blocks, 2)
	assert.Equal(t, models.BlockText, resp.Blocks[0].Type)
	assert.Equal(t, models.BlockImage, resp.Blocks[1].Type)
	assert.Equal(t, "Diagram", resp.Blocks[1].Caption)
	assert.Contains(t, resp.HTML, `<a href="https://nih.gov"`)
	assert.Equal(t, []models.RelatedTerm{
		{Slug: "left-ventricle", Label: "Left Ventricle", Exists: true},
		{Slug: "pulmonary-artery", Label: "pulmonary artery"},
	}, resp.Related)
	assert.Equal(t, "aort:lifted", resp.Form.Roots)
}

func TestHandleTermGet_NotFound(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/terms/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/terms/a/b", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTermUpdate(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	mustCreateTerm(t, srv, "Aorta", "d", "e")

	req := httptest.NewRequest(http.MethodPut, "/api/terms/aorta", jsonBody(t, models.TermInput{
		Term: "Aortic Trunk", Definition: "New.", Explanation: "Newer.",
	}))
	req.Header.Set(auth.HeaderName, testPassword)
	rec := do(srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Term models.Term `json:"term"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "aorta", resp.Term.Slug)
	assert.Equal(t, "Aortic Trunk", resp.Term.Term)
}

func TestHandleTermUpdate_Errors(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	input := models.TermInput{Term: "a", Definition: "b", Explanation: "c"}

	req := httptest.NewRequest(http.MethodPut, "/api/terms/missing", jsonBody(t, input))
	req.Header.Set(auth.HeaderName, testPassword)
	assert.Equal(t, http.StatusNotFound, do(srv, req).Code)

	req = httptest.NewRequest(http.MethodPut, "/api/terms/missing", jsonBody(t, input))
	assert.Equal(t, http.StatusUnauthorized, do(srv, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/terms/missing", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, do(srv, req).Code)
}

func TestHandleBrowseAndLetters(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	mustCreateTerm(t, srv, "Aorta", "d", "e")
	mustCreateTerm(t, srv, "atrium", "d", "e")
	mustCreateTerm(t, srv, "Bradycardia", "d", "e")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/browse/Abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var browse struct {
		Letter string        `json:"letter"`
		Terms  []models.Term `json:"terms"`
	}
	decode(t, rec, &browse)
	assert.Equal(t, "a", browse.Letter)
	require.Len(t, browse.Terms, 2)
	assert.Equal(t, "Aorta", browse.Terms[0].Term)

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/letters", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var letters struct {
		Letters []models.LetterCount `json:"letters"`
	}
	decode(t, rec, &letters)
	require.Len(t, letters.Letters, 26)
	assert.Equal(t, 2, letters.Letters[0].Count)
	assert.Equal(t, 1, letters.Letters[1].Count)
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServerWithStorage(t)
	rec := createTerm(t, srv, models.TermInput{Term: "Myocardial Infarction", Definition: "d", Explanation: "e", Abbreviations: "MI"})
	require.Equal(t, http.StatusCreated, rec.Code)
	mustCreateTerm(t, srv, "Aorta", "d", "e")

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/search?q=mi", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Terms []models.Term `json:"terms"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Terms, 1)
	assert.Equal(t, "Myocardial Infarction", resp.Terms[0].Term)

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/search?q=a&limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartImage(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="paste.bin"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, field, contentType string, data []byte, credential string) *http.Request {
	t.Helper()
	body, ct := multipartImage(t, field, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", ct)
	if credential != "" {
		req.Header.Set(auth.HeaderName, credential)
	}
	return req
}

func TestHandleUpload_AndServe(t *testing.T) {
	srv, dir := newTestServerWithStorage(t)

	rec := do(srv, uploadRequest(t, "image", "image/png", []byte("png-bytes"), testPassword))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]string
	decode(t, rec, &resp)
	url := resp["url"]
	require.True(t, strings.HasPrefix(url, "/uploads/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	assert.Equal(t, "![Pasted medical image]("+url+")", resp["markdown"])

	entries, err := os.ReadDir(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	rec = do(srv, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no directory listing")
}

func TestHandleUpload_Rejections(t *testing.T) {
	srv, dir := newTestServerWithStorage(t)

	rec := do(srv, uploadRequest(t, "image", "image/png", []byte("x"), ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, uploadRequest(t, "image", "text/plain", []byte("x"), testPassword))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Only image uploads are allowed.", resp.Error)
	assert.Equal(t, "upload", resp.Code)

	rec = do(srv, uploadRequest(t, "file", "image/png", []byte("x"), testPassword))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp = ErrorResponse{}
	decode(t, rec, &resp)
	assert.Equal(t, "No image file received.", resp.Error)

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader("raw"))
	req.Header.Set(auth.HeaderName, testPassword)
	assert.Equal(t, http.StatusBadRequest, do(srv, req).Code)

	entries, err := os.ReadDir(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleUpload_TooLarge(t *testing.T) {
	srv, _ := newTestServerWithStorage(t, func(c *common.Config) { c.Server.MaxUploadMB = 1 })

	big := bytes.Repeat([]byte("x"), 3<<20)
	rec := do(srv, uploadRequest(t, "image", "image/png", big, testPassword))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleUpload_LimitIsExact(t *testing.T) {
	srv, dir := newTestServerWithStorage(t, func(c *common.Config) { c.Server.MaxUploadMB = 1 })

	rec := do(srv, uploadRequest(t, "image", "image/png", bytes.Repeat([]byte("x"), (1<<20)+1), testPassword))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "upload", resp.Code)
	_, err := os.Stat(filepath.Join(dir, "uploads"))
	if err == nil {
		entries, err := os.ReadDir(filepath.Join(dir, "uploads"))
		require.NoError(t, err)
		assert.Empty(t, entries, "nothing stored")
	}

	rec = do(srv, uploadRequest(t, "image", "image/png", bytes.Repeat([]byte("x"), 1<<20), testPassword))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
