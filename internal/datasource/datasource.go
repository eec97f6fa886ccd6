// Package datasource opens the byte stream a pipeline reads from.
package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"csvingest/internal/config"
	"csvingest/internal/datasource/file"
	"csvingest/internal/datasource/httpds"
)

// Source yields a fresh reader per Open. The caller closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FromConfig builds the Source described by cfg.
func FromConfig(cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case "file", "":
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("datasource: file.path is required")
		}
		return file.NewLocal(cfg.File.Path), nil
	case "http":
		if cfg.HTTP.URL == "" {
			return nil, fmt.Errorf("datasource: http.url is required")
		}
		var timeout time.Duration
		if cfg.HTTP.Timeout != "" {
			d, err := time.ParseDuration(cfg.HTTP.Timeout)
			if err != nil {
				return nil, fmt.Errorf("datasource: http.timeout: %w", err)
			}
			timeout = d
		}
		hdr := make(http.Header, len(cfg.HTTP.Headers))
		for k, v := range cfg.HTTP.Headers {
			hdr.Set(k, v)
		}
		c := httpds.NewClient(httpds.Config{Timeout: timeout, BaseHeaders: hdr})
		return c.Source(cfg.HTTP.URL), nil
	default:
		return nil, fmt.Errorf("datasource: unsupported source.kind=%q", cfg.Kind)
	}
}
