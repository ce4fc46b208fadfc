// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/pdfsplit/internal/config"
	"github.com/jackzampolin/pdfsplit/internal/download"
	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/home"
	"github.com/jackzampolin/pdfsplit/internal/pdfeng"
	"github.com/jackzampolin/pdfsplit/internal/run"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Runner     *run.Manager
	Config     *config.Manager
	Engine     *pdfeng.Engine
	GS         *gs.Runner
	Downloader *download.Client
	Home       *home.Dir
	Logger     *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RunnerFrom extracts the run manager from context.
func RunnerFrom(ctx context.Context) *run.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// EngineFrom extracts the PDF engine from context.
func EngineFrom(ctx context.Context) *pdfeng.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// GSFrom extracts the Ghostscript runner from context.
func GSFrom(ctx context.Context) *gs.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.GS
	}
	return nil
}

// DownloaderFrom extracts the download client from context.
func DownloaderFrom(ctx context.Context) *download.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Downloader
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
