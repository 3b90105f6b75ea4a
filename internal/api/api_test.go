package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/embedding/hashing"
	"docqa/internal/metrics"
	"docqa/internal/service"
	"docqa/internal/vectorstore/memory"
)

type echoCompleter struct{}

func (echoCompleter) Name() string { return "echo" }
func (echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return "answered from " + strings.Split(prompt, "\n")[3], nil
}

type rawPDF struct{}

func (rawPDF) Extract(r io.ReadSeeker) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}

func newTestServer(t *testing.T) (*httptest.Server, *Registry, *[]string) {
	t.Helper()
	var collections []string
	factory := func(_ context.Context, collection string) (*service.Session, error) {
		collections = append(collections, collection)
		w, err := chunker.NewWindow(1000, 200)
		if err != nil {
			return nil, err
		}
		return service.NewSession(service.Deps{
			Chunker:   w,
			Embedder:  hashing.NewEmbedder(64),
			Store:     memory.NewStorage(collection),
			Completer: echoCompleter{},
			PDF:       rawPDF{},
		}), nil
	}
	m := metrics.New()
	reg := NewRegistry(factory, "pdf_docs", time.Hour, nil, m)
	srv := httptest.NewServer(NewRouter(NewHandler(reg, 1<<20, m.Handler(), nil)))
	t.Cleanup(srv.Close)
	return srv, reg, &collections
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

func postJSON(t *testing.T, url string, v any) (int, messageResponse) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var msg messageResponse
	_ = json.NewDecoder(resp.Body).Decode(&msg)
	return resp.StatusCode, msg
}

func uploadPDF(t *testing.T, url, content string) (int, messageResponse) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "doc.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(t, mw.Close())
	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	var msg messageResponse
	_ = json.NewDecoder(resp.Body).Decode(&msg)
	return resp.StatusCode, msg
}

func TestSessionLifecycle(t *testing.T) {
	srv, reg, collections := newTestServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/sessions/" + id

	code, msg := uploadPDF(t, base+"/pdf", "Zebras are striped animals that live in Africa.")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully processed 1 PDF chunks. (embedded: 1)", msg.Message)

	code, msg = postJSON(t, base+"/ask", askRequest{Question: "Where do zebras live?"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "answered from Zebras are striped animals that live in Africa.", msg.Message)

	resp, err := http.Get(base + "/history")
	require.NoError(t, err)
	var hist historyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	resp.Body.Close()
	require.Len(t, hist.Turns, 2)
	assert.Equal(t, "Where do zebras live?", hist.Turns[0].Content)

	resp, err = http.Get(base + "/stats")
	require.NoError(t, err)
	var stats statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1, stats.LastEmbedded)
	assert.True(t, strings.HasPrefix(stats.Collection, "memory:pdf_docs_"))

	req, _ := http.NewRequest(http.MethodDelete, base, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, reg.Len())

	code, _ = postJSON(t, base+"/ask", askRequest{Question: "Still there?"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Len(t, *collections, 1)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv, _, collections := newTestServer(t)
	a := createSession(t, srv)
	b := createSession(t, srv)

	uploadPDF(t, srv.URL+"/sessions/"+a+"/pdf", "Zebras are striped.")
	_, msg := postJSON(t, srv.URL+"/sessions/"+b+"/ask", askRequest{Question: "Are zebras striped?"})
	assert.Equal(t, service.MsgNoContext, msg.Message)
	require.Len(t, *collections, 2)
	assert.NotEqual(t, (*collections)[0], (*collections)[1])
}

func TestRequestValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	id := createSession(t, srv)

	code, _ := postJSON(t, srv.URL+"/sessions/"+id+"/wikipedia", wikipediaRequest{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = postJSON(t, srv.URL+"/sessions/"+id+"/notion", notionRequest{URL: "not a url"})
	assert.Equal(t, http.StatusBadRequest, code)

	resp, err := http.Post(srv.URL+"/sessions/"+id+"/ask", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	code, msg := postJSON(t, srv.URL+"/sessions/"+id+"/ask", askRequest{})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, service.MsgEmptyQuestion, msg.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t)
	createSession(t, srv)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "docqa_sessions_active 1")
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	_, reg, _ := newTestServer(t)
	now := time.Now()
	reg.now = func() time.Time { return now }
	id, err := reg.Create(context.Background())
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	assert.Zero(t, reg.Sweep(context.Background()))
	require.NoError(t, reg.With(id, func(*service.Session) {}))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, reg.Sweep(context.Background()))
	assert.ErrorIs(t, reg.With(id, func(*service.Session) {}), errSessionNotFound)
}

func TestWithRefusesReleasedSession(t *testing.T) {
	_, reg, _ := newTestServer(t)
	ctx := context.Background()
	id, err := reg.Create(ctx)
	require.NoError(t, err)

	reg.mu.Lock()
	e := reg.sessions[id]
	reg.mu.Unlock()
	require.NoError(t, reg.Close(ctx, id))
	assert.True(t, e.closed)

	// a caller that looked the entry up before Close removed it
	reg.mu.Lock()
	reg.sessions[id] = e
	reg.mu.Unlock()
	called := false
	err = reg.With(id, func(*service.Session) { called = true })
	assert.ErrorIs(t, err, errSessionNotFound)
	assert.False(t, called)

	// a second release is a no-op
	reg.release(ctx, id, e)
	rec := httptest.NewRecorder()
	reg.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "docqa_sessions_active 0")
}
