package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/docqa-cloud/docqa/internal/domain"
	"github.com/docqa-cloud/docqa/internal/loader"
	"github.com/docqa-cloud/docqa/internal/splitter"
	healthuc "github.com/docqa-cloud/docqa/internal/usecase/health"
	qauc "github.com/docqa-cloud/docqa/internal/usecase/qa"
)

type stubRetriever struct {
	chunks []domain.Chunk
}

func (s *stubRetriever) Search(_ context.Context, _ string, _ int) ([]domain.Chunk, error) {
	return s.chunks, nil
}

type stubStore struct {
	sessions map[string][]domain.Retriever
	created  string
	deleted  []string
}

func (s *stubStore) Create(_ context.Context, chunks []domain.Chunk, _ string) (string, error) {
	if len(chunks) == 0 {
		return "", domain.ErrEmptyDocument
	}
	return s.created, nil
}

func (s *stubStore) Resolve(ids []string) map[string][]domain.Retriever {
	out := map[string][]domain.Retriever{}
	for _, id := range ids {
		if rs, ok := s.sessions[id]; ok {
			out[id] = rs
		}
	}
	return out
}

func (s *stubStore) Sweep() int { return 0 }

func (s *stubStore) Delete(id string) { s.deleted = append(s.deleted, id) }

func (s *stubStore) Len() int { return len(s.sessions) }

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ int) (string, error) {
	return s.reply, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

func newTestServer(t *testing.T, store *stubStore, gen *stubGenerator, health *healthuc.Service) *httptest.Server {
	t.Helper()
	if store.created == "" {
		store.created = "session-1"
	}
	qaSvc := qauc.New(
		store,
		gen,
		qauc.LoaderFunc(loader.Load),
		splitter.DefaultConfig(),
		qauc.Config{TopK: 4, SummaryTopK: 6, AnswerMaxTokens: 200, SummaryMaxTokens: 250, CompareMaxTokens: 300},
		zap.NewNop(),
	)
	if health == nil {
		health = healthuc.New(nil, nil)
	}
	srv := NewServer(qaSvc, health, UploadLimits{Dir: t.TempDir(), MaxBytes: 1 << 20}, zap.NewNop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestAskEndpoint(t *testing.T) {
	store := &stubStore{sessions: map[string][]domain.Retriever{
		"s1": {&stubRetriever{chunks: []domain.Chunk{{Text: "Final aggregate 58% overall"}}}},
	}}
	ts := newTestServer(t, store, &stubGenerator{reply: "58%"}, nil)

	resp := postJSON(t, ts.URL+"/ask", map[string]any{
		"question":    "what percentage did I get?",
		"session_ids": []string{"s1"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["answer"] != "58%" {
		t.Errorf("answer = %v", body["answer"])
	}
	if body["source"] != string(domain.SourceVerbatim) {
		t.Errorf("source = %v", body["source"])
	}
}

func TestAskEndpoint_EmptyQuestion(t *testing.T) {
	ts := newTestServer(t, &stubStore{}, &stubGenerator{}, nil)

	resp := postJSON(t, ts.URL+"/ask", map[string]any{"question": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAskEndpoint_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, &stubStore{}, &stubGenerator{}, nil)

	resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSummarizeEndpoint_GenerationDown(t *testing.T) {
	store := &stubStore{sessions: map[string][]domain.Retriever{
		"s1": {&stubRetriever{chunks: []domain.Chunk{{Text: "content"}}}},
	}}
	ts := newTestServer(t, store, &stubGenerator{err: domain.ErrModelUnavailable}, nil)

	resp := postJSON(t, ts.URL+"/summarize", map[string]any{"session_ids": []string{"s1"}})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUploadEndpoint(t *testing.T) {
	store := &stubStore{created: "fresh-session"}
	ts := newTestServer(t, store, &stubGenerator{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("The final aggregate percentage is 58%.")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["session_id"] != "fresh-session" {
		t.Errorf("session_id = %v", body["session_id"])
	}
	if body["filename"] != "notes.txt" {
		t.Errorf("filename = %v", body["filename"])
	}
	if n, ok := body["chunks"].(float64); !ok || n < 1 {
		t.Errorf("chunks = %v", body["chunks"])
	}
}

func TestUploadEndpoint_UnsupportedType(t *testing.T) {
	ts := newTestServer(t, &stubStore{}, &stubGenerator{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "binary.exe")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte{0x4d, 0x5a})
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDeleteSessionEndpoint(t *testing.T) {
	store := &stubStore{}
	ts := newTestServer(t, store, &stubGenerator{}, nil)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/abc-123", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	resp.Body.Close()
	if len(store.deleted) != 1 || store.deleted[0] != "abc-123" {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubStore{}, &stubGenerator{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReadyzEndpoint_Degraded(t *testing.T) {
	health := healthuc.New(&stubPinger{err: errors.New("cache down")}, nil)
	ts := newTestServer(t, &stubStore{}, &stubGenerator{}, health)

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != string(healthuc.Degraded) {
		t.Errorf("status = %v", body["status"])
	}
}
