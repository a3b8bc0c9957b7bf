package buildinfo

import "fmt"

var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/darmiel/localhub",
		Service:    "LocalHub",
		Version:    Version,
		CommitHash: CommitHash,
	}
}

// UserAgent is sent on outbound provider requests so provider-side logs can be matched
// to our request logs.
func UserAgent(correlationID, userID, provider string) string {
	return fmt.Sprintf("LocalHub/%s (correlation_id=%s; user=%s; provider=%s)",
		Version, correlationID, userID, provider)
}
