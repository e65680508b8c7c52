package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func testClient() *s3.Client {
	return s3.New(s3.Options{
		Region:      "eu-north-1",
		Credentials: credentials.NewStaticCredentialsProvider("access", "secret", ""),
	})
}

func TestReportKey(t *testing.T) {
	tests := []struct {
		company string
		job     string
		want    string
	}{
		{"556000-1111", "abc", "reports/556000-1111/abc.json"},
		{"a/b", "j1", "reports/a%2Fb/j1.json"},
	}
	for _, tt := range tests {
		if got := ReportKey(tt.company, tt.job); got != tt.want {
			t.Fatalf("ReportKey(%q, %q) = %q, want %q", tt.company, tt.job, got, tt.want)
		}
	}
}

func TestGenerateDownloadLink(t *testing.T) {
	t.Run("plain endpoint", func(t *testing.T) {
		store := NewS3Store(testClient(), "reports-bucket", "http://localhost:9000")
		link, err := store.GenerateDownloadLink(context.Background(), "reports/x/j.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		u, err := url.Parse(link)
		if err != nil {
			t.Fatalf("invalid url %q: %v", link, err)
		}
		if u.Host != "localhost:9000" {
			t.Fatalf("expected public host, got %q", u.Host)
		}
		if u.Path != "/reports-bucket/reports/x/j.json" {
			t.Fatalf("unexpected path %q", u.Path)
		}
		if u.Query().Get("X-Amz-Signature") == "" {
			t.Fatalf("expected a signed url, got %q", link)
		}
	})

	t.Run("prefixed endpoint", func(t *testing.T) {
		store := NewS3Store(testClient(), "b", "https://example.org/storage/")
		link, err := store.GenerateDownloadLink(context.Background(), "k.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(link, "https://example.org/storage/b/k.json?") {
			t.Fatalf("unexpected link %q", link)
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		store := NewS3Store(testClient(), "b", "not a url")
		if _, err := store.GenerateDownloadLink(context.Background(), "k.json"); err == nil {
			t.Fatalf("expected error")
		}
	})
}
