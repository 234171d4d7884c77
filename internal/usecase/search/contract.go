package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
	"github.com/kailas-cloud/searchgate/internal/parser"
	"github.com/kailas-cloud/searchgate/internal/session"
)

// QueryParser turns a raw query into a goal and modifier.
type QueryParser interface {
	Parse(raw string, tzOffsetMinutes int) parser.Result
}

// Governor decides which tiers a request may use.
type Governor interface {
	Check(client access.Client, req access.Request) access.Decision
}

// Coordinator shares search sessions by canonical identity.
type Coordinator interface {
	GetOrCreate(ctx context.Context, params query.Params, build session.BuildFunc) (*session.Session, bool, error)
	Get(id query.Identity) (*session.Session, bool)
	Resort(id query.Identity, order result.Order) (bool, error)
}

// Retriever runs the retrieval and ranking on the index backend.
type Retriever interface {
	RetrieveAndRank(ctx context.Context, p query.Params) (*result.Set, error)
}

// StatsRecorder persists block decisions.
type StatsRecorder interface {
	Record(ctx context.Context, reason access.Reason, at time.Time) error
}

// ActionHandler executes bookmark, vote and delete actions embedded in a search request.
type ActionHandler interface {
	Handle(ctx context.Context, action Action) error
}
