package datasource

import (
	"testing"

	"csvingest/internal/config"
	"csvingest/internal/datasource/file"
	"csvingest/internal/datasource/httpds"
)

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Source
		want    string
		wantErr bool
	}{
		{name: "file", cfg: config.Source{Kind: "file", File: config.SourceFile{Path: "a.csv"}}, want: "file"},
		{name: "default kind is file", cfg: config.Source{File: config.SourceFile{Path: "a.csv"}}, want: "file"},
		{name: "file without path", cfg: config.Source{Kind: "file"}, wantErr: true},
		{name: "http", cfg: config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: "http://x/v.csv", Timeout: "5s"}}, want: "http"},
		{name: "http bad timeout", cfg: config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: "http://x", Timeout: "soon"}}, wantErr: true},
		{name: "unknown", cfg: config.Source{Kind: "s3"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := FromConfig(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("FromConfig: %v", err)
			}
			switch tc.want {
			case "file":
				if _, ok := src.(*file.Local); !ok {
					t.Fatalf("got %T", src)
				}
			case "http":
				if _, ok := src.(*httpds.Source); !ok {
					t.Fatalf("got %T", src)
				}
			}
		})
	}
}
