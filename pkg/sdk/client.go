package searchgate

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/access"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
	"github.com/kailas-cloud/searchgate/internal/governor"
	"github.com/kailas-cloud/searchgate/internal/parser"
	"github.com/kailas-cloud/searchgate/internal/session"
	searchuc "github.com/kailas-cloud/searchgate/internal/usecase/search"
)

// Retriever runs a parsed query against the caller's index.
type Retriever interface {
	RetrieveAndRank(ctx context.Context, q Query) (*Results, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, q Query) (*Results, error)

// RetrieveAndRank calls f.
func (f RetrieverFunc) RetrieveAndRank(ctx context.Context, q Query) (*Results, error) {
	return f(ctx, q)
}

// searchUseCase is the internal interface for the request flow.
type searchUseCase interface {
	Search(ctx context.Context, req searchuc.Request, client access.Client) (searchuc.ViewModel, error)
	Resort(ctx context.Context, sessionID, order string, client access.Client) (searchuc.ViewModel, error)
	Session(ctx context.Context, sessionID string, offset, count int) (searchuc.ViewModel, error)
}

// Client is the searchgate SDK entry point. It is safe for concurrent use.
type Client struct {
	parser   *parser.Parser
	governor *governor.Governor
	sessions *session.Coordinator
	svc      searchUseCase
	obs      *observer
}

// New wires a Client around r.
func New(r Retriever, opts ...Option) (*Client, error) {
	if r == nil {
		return nil, errors.New("searchgate: retriever required")
	}

	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	logger := cfg.zapLogger
	if logger == nil {
		logger = zap.NewNop()
	}

	gc := cfg.governor
	gc.ApplyDefaults()
	if err := gc.Validate(); err != nil {
		return nil, fmt.Errorf("searchgate: rate limits: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	stopwords := parser.DefaultStopwords()
	stopwords.Add(cfg.stopwords...)
	p := parser.New(stopwords)

	gov := governor.New(cfg.governor, cfg.clock, logger)

	sessions, err := session.New(cfg.session, logger)
	if err != nil {
		return nil, fmt.Errorf("searchgate: session cache: %w", err)
	}

	svc := searchuc.New(p, gov, sessions, retrieverAdapter{inner: r}, nil, nil, cfg.search, logger)

	return &Client{
		parser:   p,
		governor: gov,
		sessions: sessions,
		svc:      svc,
		obs:      obs,
	}, nil
}

// Operation names used in logs and metrics.
const (
	opSearch  = "search"
	opResort  = "resort"
	opSession = "session"
)

// Close stops the session build pool and drops every session.
func (c *Client) Close() {
	c.sessions.Close()
}

// Search parses the query, checks the caller against the rate limits and
// returns a page of the shared session for the query. A blocked caller gets
// a Page with Blocked set, not an error.
func (c *Client) Search(ctx context.Context, req SearchRequest, caller Caller) (page *Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opSearch, start, page, err) }()

	resource := ""
	if req.Local {
		resource = searchuc.ResourceLocal
	}
	offset := req.Offset
	if offset < 0 {
		offset = -1
	}
	vm, err := c.svc.Search(ctx, searchuc.Request{
		Query:      req.Query,
		Offset:     offset,
		Count:      req.Count,
		Resource:   resource,
		ContentDom: req.ContentDom,
		Verify:     req.Verify,
		Nav:        req.Navigators,
		TZOffset:   req.TZOffset,
		Language:   req.Language,
	}, toClient(caller))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toPage(vm), nil
}

// Resort reorders a ready session and returns its first page. Resorting is
// limited per session and per caller; a refused resort returns the page
// unchanged with Resorted unset.
func (c *Client) Resort(ctx context.Context, sessionID string, order Order, caller Caller) (page *Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opResort, start, page, err) }()

	vm, err := c.svc.Resort(ctx, sessionID, string(order), toClient(caller))
	if err != nil {
		return nil, fmt.Errorf("resort: %w", err)
	}
	return toPage(vm), nil
}

// Session returns a page of an existing session without searching again.
func (c *Client) Session(ctx context.Context, sessionID string, offset, count int) (page *Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe(opSession, start, page, err) }()

	vm, err := c.svc.Session(ctx, sessionID, offset, count)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return toPage(vm), nil
}

// Parse parses a raw query without searching.
func (c *Client) Parse(raw string, tzOffset int) ParsedQuery {
	res := c.parser.Parse(raw, tzOffset)
	return ParsedQuery{
		Include:   res.Goal.Include(),
		Exclude:   res.Goal.Exclude(),
		Canonical: res.Canonical,
		FullQuery: res.FullQuery(),
		Excluded:  res.Excluded,
		Notices:   res.Notices,
		TooShort:  res.TooShort,
	}
}

// Cleanup drops every cached session.
func (c *Client) Cleanup() {
	c.sessions.Cleanup()
}

// Sessions returns the number of cached sessions.
func (c *Client) Sessions() int {
	return c.sessions.Len()
}

// TrackedClients returns the number of callers with rate-limit history.
func (c *Client) TrackedClients() int {
	return c.governor.TrackedClients()
}

// retrieverAdapter wraps the public Retriever to satisfy the internal one.
type retrieverAdapter struct {
	inner Retriever
}

func (a retrieverAdapter) RetrieveAndRank(ctx context.Context, p query.Params) (*result.Set, error) {
	res, err := a.inner.RetrieveAndRank(ctx, toQuery(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	if res == nil {
		return nil, nil
	}
	set := toSet(res)
	return &set, nil
}

func toClient(c Caller) access.Client {
	role := access.Role(c.Role)
	if !role.IsValid() {
		role = access.Anonymous
	}
	client := access.Client{ID: c.Addr, Role: role}
	if addr, err := netip.ParseAddr(c.Addr); err == nil {
		client.Addr = addr.Unmap()
		client.ID = client.Addr.String()
	}
	return client
}
