package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	FeedsFile     string
	Port          string
	WorkerCount   int
	FetchTimeout  int
	FetchRetries  int
	APIAccessKey  string
	IngestOnStart bool

	// Selected command: ingest, serve or migrate
	Command string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetFetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FetchTimeout) * time.Second
}
