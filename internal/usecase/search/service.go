// Package search sequences one search request through the parser, the access
// governor and the session coordinator and renders the page-scoped view-model.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/access"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/query/contentdom"
	"github.com/kailas-cloud/searchgate/internal/domain/query/strategy"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
	"github.com/kailas-cloud/searchgate/internal/session"
)

// Service is the request orchestrator.
type Service struct {
	parser    QueryParser
	governor  Governor
	sessions  Coordinator
	retriever Retriever
	stats     StatsRecorder
	actions   ActionHandler
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Service. stats and actions can be nil.
func New(
	p QueryParser,
	g Governor,
	sessions Coordinator,
	retriever Retriever,
	stats StatsRecorder,
	actions ActionHandler,
	cfg Config,
	logger *zap.Logger,
) *Service {
	cfg.ApplyDefaults()
	if actions == nil {
		actions = LogActions{Logger: logger}
	}
	return &Service{
		parser:    p,
		governor:  g,
		sessions:  sessions,
		retriever: retriever,
		stats:     stats,
		actions:   actions,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Search runs one search request. A blocked request yields a minimal view-model
// with the block reason, not an error.
func (s *Service) Search(ctx context.Context, req Request, client access.Client) (ViewModel, error) {
	offset, count := s.window(req.Offset, req.Count)

	parsed := s.parser.Parse(req.Query, req.TZOffset)

	resource := req.Resource
	if resource != ResourceGlobal && resource != ResourceLocal {
		resource = s.cfg.DefaultResource
	}
	snippet := strategy.Parse(req.Verify)

	decision := s.governor.Check(client, access.Request{
		Global:  resource == ResourceGlobal,
		Resort:  true,
		Snippet: snippet.FetchesRemote(),
	})
	if decision.Block {
		s.recordBlock(decision.Reason, client)
		return blockedView(req.Query, offset, count, decision.Reason), nil
	}

	// Actions run only for requests the governor admitted and counted.
	if err := s.runActions(ctx, req.Actions, client); err != nil {
		return nil, err
	}

	if snippet.FetchesRemote() && !decision.Allowed(access.TierSnippet) {
		snippet = strategy.CacheOnly
	}
	params := query.NewParams(
		parsed.Goal,
		parsed.Modifier,
		contentdom.Parse(req.ContentDom),
		req.Language,
		req.Nav,
		snippet,
		resource == ResourceGlobal && decision.Allowed(access.TierGlobal),
		s.cfg.MaxResults,
	)

	vm := ViewModel{
		KeyQuery:           req.Query,
		KeyCanonicalQuery:  parsed.FullQuery(),
		KeyOffset:          offset,
		KeyItemsPerPage:    count,
		KeyTotalCount:      0,
		KeyBlocked:         false,
		KeyBlockReason:     "",
		KeyTooShort:        parsed.TooShort,
		KeyExcludedWords:   parsed.Excluded,
		KeyNotices:         parsed.Notices,
		KeyResource:        resourceName(params.Global),
		KeySnippetStrategy: string(params.Snippet),
		KeyContentDom:      string(params.ContentDom),
		KeyLanguage:        params.Language,
		KeyResortEnabled:   false,
		KeyItems:           []result.Item{},
	}
	if parsed.TooShort {
		return vm, nil
	}

	sess, created, err := s.sessions.GetOrCreate(ctx, params, s.build(params))
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if created {
		offset = 0
	}
	fillSession(vm, sess, offset, count)
	setResortEnabled(vm, sess, decision.Allowed(access.TierResort))
	vm[KeyCanonicalQuery] = parsed.FullQuery()

	if err := sess.Err(); err != nil {
		s.logger.Warn("Serving degraded session",
			zap.String("session_id", sess.Identity().String()),
			zap.Error(err),
		)
	}
	return vm, nil
}

// Resort reorders the session's items if the governor allows the resort tier
// and a permit is left. A refused resort still returns the current page.
func (s *Service) Resort(
	ctx context.Context, sessionID, order string, client access.Client,
) (ViewModel, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	ord, err := result.ParseOrder(order)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidParameter, err)
	}

	decision := s.governor.Check(client, access.Request{Resort: true})
	if decision.Block {
		s.recordBlock(decision.Reason, client)
		return blockedView("", 0, s.cfg.DefaultPageSize, decision.Reason), nil
	}

	applied := false
	if decision.Allowed(access.TierResort) {
		applied, err = s.sessions.Resort(id, ord)
		if err != nil {
			return nil, fmt.Errorf("resort session: %w", err)
		}
	}

	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	vm := ViewModel{KeyResorted: applied}
	fillSession(vm, sess, 0, s.cfg.DefaultPageSize)
	setResortEnabled(vm, sess, decision.Allowed(access.TierResort))
	return vm, nil
}

// Session renders a page of an existing session without running a search.
// The governor is not consulted, so the view carries the session's remaining
// resort permits instead of resortEnabled.
func (s *Service) Session(_ context.Context, sessionID string, offset, count int) (ViewModel, error) {
	id, err := parseSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	offset, count = s.window(offset, count)
	vm := ViewModel{}
	fillSession(vm, sess, offset, count)
	return vm, nil
}

// build returns the session build for params. It runs at most once per session.
func (s *Service) build(params query.Params) session.BuildFunc {
	return func(ctx context.Context, _ func(result.Set)) (*result.Set, error) {
		return s.retriever.RetrieveAndRank(ctx, params)
	}
}

func (s *Service) runActions(ctx context.Context, actions []Action, client access.Client) error {
	if len(actions) == 0 {
		return nil
	}
	if !client.Role.AtLeast(access.Extended) {
		return fmt.Errorf("%w: %s", domain.ErrAuthenticationRequired, actions[0].Kind)
	}
	for _, a := range actions {
		a.Client = client
		if err := s.actions.Handle(ctx, a); err != nil {
			return fmt.Errorf("%s: %w", a.Kind, err)
		}
	}
	return nil
}

// recordBlock persists the block reason without delaying the response.
func (s *Service) recordBlock(reason access.Reason, client access.Client) {
	s.logger.Info("Request blocked",
		zap.String("client", client.ID),
		zap.String("reason", string(reason)),
	)
	if s.stats == nil {
		return
	}
	at := s.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StatsTimeout)
		defer cancel()
		if err := s.stats.Record(ctx, reason, at); err != nil {
			s.logger.Warn("Failed to record block", zap.String("reason", string(reason)), zap.Error(err))
		}
	}()
}

// window applies defaults to unusable offset and count values.
func (s *Service) window(offset, count int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if count <= 0 {
		count = s.cfg.DefaultPageSize
	}
	if count > s.cfg.MaxPageSize {
		count = s.cfg.MaxPageSize
	}
	return offset, count
}

func parseSessionID(raw string) (query.Identity, error) {
	id := query.Identity(raw)
	if !id.IsValid() {
		return "", fmt.Errorf("%w: session id %q", domain.ErrInvalidParameter, raw)
	}
	return id, nil
}

// LogActions records actions without executing them. It is used when no
// bookmark or vote store is attached.
type LogActions struct {
	Logger *zap.Logger
}

// Handle logs the action.
func (l LogActions) Handle(_ context.Context, a Action) error {
	l.Logger.Info("Search action",
		zap.String("action", string(a.Kind)),
		zap.String("urlhash", a.URLHash),
		zap.String("client", a.Client.ID),
		zap.String("role", string(a.Client.Role)),
	)
	return nil
}
