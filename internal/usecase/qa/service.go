// Package qa orchestrates the document QA flows: upload, ask, summarize
// and compare. Every read flow runs sweep -> resolve -> search ->
// generate -> reconcile; session absence is answered with a friendly
// message, never an error.
package qa

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/docqa-cloud/docqa/internal/domain"
	"github.com/docqa-cloud/docqa/internal/metrics"
	"github.com/docqa-cloud/docqa/internal/planner"
	"github.com/docqa-cloud/docqa/internal/splitter"
	"github.com/docqa-cloud/docqa/internal/validator"
)

// User-facing messages for empty session selections. Returned with a
// 200 body, matching the polling UI contract.
const (
	msgNoSession   = "No session selected."
	msgNoDocuments = "No documents found for selected sessions."
	msgNoContext   = "No relevant context found."
	msgNeedTwo     = "Select at least 2 documents."
	msgNotEnough   = "Not enough documents to compare."
)

const (
	askPrompt = "Answer the question using ONLY the provided context.\n\n" +
		"Context:\n%s\n\nQuestion: %s\nAnswer:"
	summaryPrompt = "Summarize this document:\n\n%s\n\nSummary:"
	comparePrompt = "Compare the documents below.\nGive similarities and differences.\n\n%s\n\nComparison:"

	summaryQuery = "Summarize the document"
	compareQuery = "main topics"
)

// Config holds retrieval depths and generation budgets per flow.
type Config struct {
	TopK             int
	SummaryTopK      int
	AnswerMaxTokens  int
	SummaryMaxTokens int
	CompareMaxTokens int
}

// Service implements the QA flows over a session store and a generator.
type Service struct {
	sessions SessionStore
	gen      Generator
	load     Loader
	split    splitter.Config
	cfg      Config
	logger   *zap.Logger
}

// New creates the QA service.
func New(
	sessions SessionStore,
	gen Generator,
	load Loader,
	split splitter.Config,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		sessions: sessions,
		gen:      gen,
		load:     load,
		split:    split,
		cfg:      cfg,
		logger:   logger,
	}
}

// UploadResult describes a newly created session.
type UploadResult struct {
	SessionID string
	Filename  string
	Chunks    int
}

// AskResult is a validated answer with extraction provenance.
type AskResult struct {
	Answer     string
	AnswerType string
	Source     string
	Degraded   bool
}

// SummarizeResult holds a generated summary.
type SummarizeResult struct {
	Summary string
}

// CompareResult holds a generated cross-document comparison.
type CompareResult struct {
	Comparison string
}

// Upload parses the file at path, splits it into chunks and creates a
// session with a freshly built retrieval index.
func (s *Service) Upload(ctx context.Context, path, filename string) (UploadResult, error) {
	segments, err := s.load.Load(path, filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("load document: %w", err)
	}

	chunks := splitter.Split(segments, filename, s.split)

	id, err := s.sessions.Create(ctx, chunks, filename)
	if err != nil {
		return UploadResult{}, err
	}

	return UploadResult{SessionID: id, Filename: filename, Chunks: len(chunks)}, nil
}

// Ask answers a question against the selected sessions. Retrieval fans
// out per session, results are joined in selection order, reranked, and
// the generated answer is reconciled against the retrieved context.
// Generation failure degrades to context extraction instead of erroring.
func (s *Service) Ask(ctx context.Context, question string, sessionIDs []string) (AskResult, error) {
	if len(sessionIDs) == 0 {
		return AskResult{Answer: msgNoSession}, nil
	}

	s.sessions.Sweep()

	searches := s.resolveOrdered(sessionIDs)
	if len(searches) == 0 {
		return AskResult{Answer: msgNoDocuments}, nil
	}

	answerType := planner.Classify(question)
	expanded := planner.Expand(question)

	perSession, searchErr := s.fanOut(ctx, searches, expanded, s.cfg.TopK)

	var all []domain.Chunk
	for _, chunks := range perSession {
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		if searchErr != nil {
			return AskResult{}, searchErr
		}
		return AskResult{Answer: msgNoContext}, nil
	}
	if searchErr != nil {
		s.logger.Warn("partial retrieval failure", zap.Error(searchErr))
	}

	reranked := planner.Rerank(all, question, s.cfg.TopK)
	contextText := joinChunks(reranked)
	prompt := fmt.Sprintf(askPrompt, contextText, question)

	raw, genErr := s.gen.Generate(ctx, prompt, s.cfg.AnswerMaxTokens)
	degraded := false
	if genErr != nil {
		// Degraded mode: reconcile with an empty answer so the validator
		// extracts the value straight from the retrieved context.
		s.logger.Warn("generation unavailable, extracting from context", zap.Error(genErr))
		raw = ""
		degraded = true
	}

	result := validator.Reconcile(raw, question, contextText)
	metrics.AnswersBySource.WithLabelValues(answerType.String(), string(result.Source)).Inc()

	return AskResult{
		Answer:     result.Text,
		AnswerType: answerType.String(),
		Source:     string(result.Source),
		Degraded:   degraded,
	}, nil
}

// Summarize generates a summary over the selected sessions.
func (s *Service) Summarize(ctx context.Context, sessionIDs []string) (SummarizeResult, error) {
	if len(sessionIDs) == 0 {
		return SummarizeResult{Summary: msgNoSession}, nil
	}

	s.sessions.Sweep()

	searches := s.resolveOrdered(sessionIDs)
	if len(searches) == 0 {
		return SummarizeResult{Summary: msgNoDocuments}, nil
	}

	perSession, searchErr := s.fanOut(ctx, searches, summaryQuery, s.cfg.SummaryTopK)

	var all []domain.Chunk
	for _, chunks := range perSession {
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		if searchErr != nil {
			return SummarizeResult{}, searchErr
		}
		return SummarizeResult{Summary: msgNoContext}, nil
	}

	text, err := s.gen.Generate(ctx, fmt.Sprintf(summaryPrompt, joinChunks(all)), s.cfg.SummaryMaxTokens)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("generate summary: %w", err)
	}
	return SummarizeResult{Summary: text}, nil
}

// Compare contrasts two or more documents. Each selected session
// contributes its own retrieved context; sessions with nothing retrieved
// are skipped.
func (s *Service) Compare(ctx context.Context, sessionIDs []string) (CompareResult, error) {
	if len(sessionIDs) < 2 {
		return CompareResult{Comparison: msgNeedTwo}, nil
	}

	s.sessions.Sweep()

	searches := s.resolveOrdered(sessionIDs)
	if len(searches) == 0 {
		return CompareResult{Comparison: msgNoDocuments}, nil
	}

	perSession, searchErr := s.fanOut(ctx, searches, compareQuery, s.cfg.TopK)

	var contexts []string
	for _, chunks := range perSession {
		if len(chunks) == 0 {
			continue
		}
		contexts = append(contexts, joinChunks(chunks))
	}
	if len(contexts) < 2 {
		if searchErr != nil {
			return CompareResult{}, searchErr
		}
		return CompareResult{Comparison: msgNotEnough}, nil
	}

	combined := strings.Join(contexts, "\n\n---\n\n")
	text, err := s.gen.Generate(ctx, fmt.Sprintf(comparePrompt, combined), s.cfg.CompareMaxTokens)
	if err != nil {
		return CompareResult{}, fmt.Errorf("generate comparison: %w", err)
	}
	return CompareResult{Comparison: text}, nil
}

// DeleteSession removes a session. Unknown ids are a no-op.
func (s *Service) DeleteSession(id string) {
	s.sessions.Delete(id)
}

type sessionSearch struct {
	id         string
	retrievers []domain.Retriever
}

// resolveOrdered resolves the selection and preserves the caller's
// ordering; duplicates and unknown ids are dropped.
func (s *Service) resolveOrdered(ids []string) []sessionSearch {
	resolved := s.sessions.Resolve(ids)

	out := make([]sessionSearch, 0, len(resolved))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if retrievers, ok := resolved[id]; ok {
			out = append(out, sessionSearch{id: id, retrievers: retrievers})
		}
	}
	return out
}

// fanOut searches every session concurrently. Results are positional, so
// joining them preserves session selection order regardless of which
// goroutine finishes first. The first error is returned alongside the
// partial results.
func (s *Service) fanOut(
	ctx context.Context, searches []sessionSearch, query string, k int,
) ([][]domain.Chunk, error) {
	results := make([][]domain.Chunk, len(searches))
	errs := make([]error, len(searches))

	var wg sync.WaitGroup
	for i, sc := range searches {
		wg.Add(1)
		go func(i int, sc sessionSearch) {
			defer wg.Done()
			var chunks []domain.Chunk
			for _, r := range sc.retrievers {
				found, err := r.Search(ctx, query, k)
				if err != nil {
					errs[i] = fmt.Errorf("search session %s: %w", sc.id, err)
					return
				}
				chunks = append(chunks, found...)
			}
			results[i] = chunks
		}(i, sc)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func joinChunks(chunks []domain.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}
