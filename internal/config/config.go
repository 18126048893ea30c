package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	GitHubToken        string
	GitHubRepo         string // "owner/repo"
	PostsPath          string // path of the posts document within the repo
	AllowPublicPosts   bool
	PostSharedSecret   string
	Debug              bool
	CorsAllowedOrigins []string
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubRepo:         getEnv("GITHUB_REPO", ""),
		PostsPath:          getEnv("POSTS_PATH", "posts/posts.json"),
		AllowPublicPosts:   parseBool(getEnv("ALLOW_PUBLIC_POSTS", "false")),
		PostSharedSecret:   getEnv("POST_SHARED_SECRET", ""),
		Debug:              parseBool(getEnv("DEBUG_POSTS", "false")),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	// Missing credentials are not fatal here: mutating requests answer
	// with a misconfiguration error instead, so a read-only deployment
	// still serves the feed.
	if cfg.GitHubToken == "" || cfg.GitHubRepo == "" {
		log.Print("warning: GITHUB_TOKEN or GITHUB_REPO not set; posting will fail")
	}

	return cfg
}

// Misconfigured reports whether the backing store credentials are
// incomplete.
func (c Config) Misconfigured() bool {
	return c.GitHubToken == "" || c.GitHubRepo == ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
