// Package tutor is the conversation engine: it retrieves study material,
// calls the model and shapes the answer for the speaking avatar frontend.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/owlia-ai/owlia/internal/config"
	"github.com/owlia-ai/owlia/internal/emotion"
	"github.com/owlia-ai/owlia/internal/knowledge"
	"github.com/owlia-ai/owlia/internal/rag"
	"github.com/owlia-ai/owlia/internal/session"
)

const (
	// maxQuestionRunes bounds a single question.
	maxQuestionRunes = 4000

	// historyCacheSize is how many sessions keep their history in memory.
	// Evicted sessions reload from PostgreSQL on the next message.
	historyCacheSize = 256

	// fallbackResponse is returned when the model produces an empty answer.
	fallbackResponse = "I'm not sure how to answer that. Could you rephrase your question?"
)

// Sentinel errors for tutor operations.
var (
	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrQuestionTooLong indicates the question exceeds the input budget.
	ErrQuestionTooLong = errors.New("question too long")
)

// Reply is a tutor answer, ready for the frontend.
type Reply struct {
	Text    string
	Emotion emotion.Emotion
	Sources []string
}

// Config contains all parameters for the tutor Service.
type Config struct {
	Genkit    *genkit.Genkit
	Knowledge *knowledge.Store
	Sessions  *session.Store
	Logger    *slog.Logger

	ModelName   string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Temperature float32
	MaxTokens   int

	RetrievalK         int   // context chunks per question
	MaxHistoryMessages int32 // history window loaded per chat turn

	// Resilience settings; zero values use defaults.
	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter // nil = 10 req/s, burst 30
	TokenBudget          TokenBudget
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge store is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Service answers questions, single-turn or within a session.
//
// Service is stateless apart from the history cache and safe for
// concurrent use. Configuration is captured immutably at construction.
type Service struct {
	g         *genkit.Genkit
	knowledge *knowledge.Store
	sessions  *session.Store
	logger    *slog.Logger

	modelName   string
	temperature float32
	maxTokens   int

	retrievalK         int
	maxHistoryMessages int32

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter
	tokenBudget    TokenBudget

	// histories caches per-session conversation state so consecutive turns
	// skip the database read. The store remains the source of truth.
	histories *lru.Cache[uuid.UUID, *session.History]
}

// New creates a tutor Service.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 3
	}
	cfg.MaxHistoryMessages = config.NormalizeMaxHistoryMessages(cfg.MaxHistoryMessages)

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}
	tokenBudget := cfg.TokenBudget
	if tokenBudget.MaxHistoryTokens == 0 {
		tokenBudget.MaxHistoryTokens = DefaultTokenBudget().MaxHistoryTokens
	}
	if tokenBudget.MaxInputTokens == 0 {
		tokenBudget.MaxInputTokens = DefaultTokenBudget().MaxInputTokens
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	histories, err := lru.New[uuid.UUID, *session.History](historyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating history cache: %w", err)
	}

	s := &Service{
		g:         cfg.Genkit,
		knowledge: cfg.Knowledge,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,

		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,

		retrievalK:         cfg.RetrievalK,
		maxHistoryMessages: cfg.MaxHistoryMessages,

		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cfg.CircuitBreakerConfig),
		rateLimiter:    rl,
		tokenBudget:    tokenBudget,

		histories: histories,
	}

	s.logger.Info("tutor initialized",
		"model", s.modelName,
		"retrieval_k", s.retrievalK,
	)
	return s, nil
}

// Answer handles a single-turn question with no conversation history.
// topK overrides the configured retrieval depth when positive, clamped to
// MaxRetrievalK; the value arrives from untrusted request bodies.
func (s *Service) Answer(ctx context.Context, question string, topK int) (*Reply, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.retrievalK
	} else if topK > config.MaxRetrievalK {
		topK = config.MaxRetrievalK
	}

	results := s.retrieve(ctx, question, topK)
	text, err := s.generate(ctx, rag.BuildSystemPrompt(results), nil, question)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Text:    text,
		Emotion: emotion.Detect(text),
		Sources: rag.Sources(results),
	}, nil
}

// Chat handles a question within a session, carrying conversation history.
// The session must exist; the exchange is persisted after a successful
// answer.
func (s *Service) Chat(ctx context.Context, sessionID uuid.UUID, question string) (*Reply, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results := s.retrieve(ctx, question, s.retrievalK)
	text, err := s.generate(ctx, rag.BuildSystemPrompt(results), history.Messages(), question)
	if err != nil {
		return nil, err
	}

	// Persist first, then update the cache, so a write failure cannot leave
	// the cache ahead of the database.
	err = s.sessions.AppendMessages(ctx, sessionID, []session.Message{
		{Role: session.RoleUser, Content: question},
		{Role: session.RoleModel, Content: text},
	})
	if err != nil {
		s.logger.Warn("persisting exchange failed, evicting cached history",
			"session_id", sessionID, "error", err)
		s.histories.Remove(sessionID)
	} else {
		history.Add(question, text)
	}

	return &Reply{
		Text:    text,
		Emotion: emotion.Detect(text),
		Sources: rag.Sources(results),
	}, nil
}

// loadHistory returns the session's cached history, loading it from the
// store on a cache miss. Missing sessions surface session.ErrNotFound.
func (s *Service) loadHistory(ctx context.Context, sessionID uuid.UUID) (*session.History, error) {
	if history, ok := s.histories.Get(sessionID); ok {
		return history, nil
	}

	// Existence check before LoadHistory: an empty result set cannot
	// distinguish a new session from an unknown one.
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	history, err := s.sessions.LoadHistory(ctx, sessionID, s.maxHistoryMessages)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	s.histories.Add(sessionID, history)
	return history, nil
}

// retrieve searches the knowledge store, degrading to no context on error.
// A broken vector store should not take down question answering; the model
// still answers from general knowledge.
func (s *Service) retrieve(ctx context.Context, question string, topK int) []knowledge.Result {
	results, err := s.knowledge.Search(ctx, question, knowledge.WithTopK(topK))
	if err != nil {
		s.logger.Warn("knowledge retrieval failed, answering without context", "error", err)
		return nil
	}
	return results
}

// generate runs the model call behind the circuit breaker and retry loop.
func (s *Service) generate(ctx context.Context, systemPrompt string, history []*ai.Message, question string) (string, error) {
	messages := copyTextMessages(history)
	messages = s.truncateHistory(messages, s.tokenBudget.MaxHistoryTokens)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	opts := []ai.GenerateOption{
		ai.WithModelName(s.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(s.temperature),
			MaxOutputTokens: s.maxTokens,
		}),
	}

	if err := s.circuitBreaker.Allow(); err != nil {
		s.logger.Warn("circuit breaker open, rejecting request",
			"state", s.circuitBreaker.State().String())
		return "", fmt.Errorf("model unavailable: %w", err)
	}

	resp, err := s.generateWithRetry(ctx, opts)
	if err != nil {
		s.circuitBreaker.Failure()
		return "", err
	}
	s.circuitBreaker.Success()

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		s.logger.Warn("model returned empty response")
		text = fallbackResponse
	}
	return text, nil
}

// Title generation constants.
const (
	titleGenerationTimeout = 5 * time.Second
	titleMaxRunes          = 80
)

const titlePrompt = `Generate a concise title (max 80 characters) for a tutoring session
based on the student's first question. Return ONLY the title text, no quotes,
no trailing punctuation.

Question: %s

Title:`

// GenerateTitle derives a short session title from the first question.
// Best-effort: on any failure the truncated question is used instead.
func (s *Service) GenerateTitle(ctx context.Context, question string) string {
	ctx, cancel := context.WithTimeout(ctx, titleGenerationTimeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithPrompt(titlePrompt, question),
	)
	if err != nil {
		s.logger.Debug("title generation failed, truncating question", "error", err)
		return truncateRunes(question, titleMaxRunes)
	}

	title := strings.TrimSpace(resp.Text())
	if title == "" {
		return truncateRunes(question, titleMaxRunes)
	}
	return truncateRunes(title, titleMaxRunes)
}

func truncateRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-3]) + "..."
}

func validateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return ErrEmptyQuestion
	}
	if len([]rune(trimmed)) > maxQuestionRunes {
		return fmt.Errorf("%w: %d runes exceeds limit of %d", ErrQuestionTooLong, len([]rune(trimmed)), maxQuestionRunes)
	}
	return nil
}

// copyTextMessages makes independent copies of history messages.
// Genkit mutates message content in-place during rendering, so sharing
// cached message structs across concurrent requests would race.
func copyTextMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			p := *part
			parts[j] = &p
		}
		copied[i] = &ai.Message{Role: msg.Role, Content: parts}
	}
	return copied
}
