package main

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/config"
	"github.com/kailas-cloud/searchgate/internal/governor"
	"github.com/kailas-cloud/searchgate/internal/parser"
)

type governorConfigurer interface {
	SetConfig(cfg governor.Config)
}

type stopwordSetter interface {
	SetStopwords(set parser.StopwordSet)
}

type sessionCleaner interface {
	Cleanup()
}

// reloader applies a re-read config file to the running components.
// config.Watch calls apply from a single goroutine.
type reloader struct {
	current  config.Config
	governor governorConfigurer
	parser   stopwordSetter
	sessions sessionCleaner
	logger   *zap.Logger
}

func (r *reloader) apply(next config.Config) {
	r.governor.SetConfig(next.GovernorSettings())

	if !reflect.DeepEqual(r.current.Stopwords, next.Stopwords) {
		set, err := buildStopwords(next.Stopwords)
		if err != nil {
			r.logger.Warn("Stopwords not reloaded", zap.Error(err))
			next.Stopwords = r.current.Stopwords
		} else {
			r.parser.SetStopwords(set)
		}
	}

	if r.current.RankingChanged(&next) {
		r.sessions.Cleanup()
		r.logger.Info("Search sessions invalidated by config change")
	}

	if restart := restartOnly(r.current, next); len(restart) > 0 {
		r.logger.Warn("Config sections changed that only apply after a restart",
			zap.Strings("sections", restart))
	}

	r.current = next
}

// restartOnly lists changed sections that are read once at startup.
func restartOnly(prev, next config.Config) []string {
	var out []string
	if !reflect.DeepEqual(prev.HTTP, next.HTTP) {
		out = append(out, "http")
	}
	if !reflect.DeepEqual(prev.Database, next.Database) {
		out = append(out, "database")
	}
	if !reflect.DeepEqual(prev.Auth, next.Auth) {
		out = append(out, "auth")
	}
	if prev.Backend != next.Backend {
		out = append(out, "backend")
	}
	if prev.Search != next.Search {
		out = append(out, "search")
	}
	if prev.Memory != next.Memory {
		out = append(out, "memory")
	}
	return out
}
