package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// HTTP server
	Port         string
	APIAccessKey string

	// Collection
	SourcesFile         string
	WorkerCount         int
	SchedulerInterval   int // seconds
	CooldownMinutes     int
	CollectionDeadline  int // seconds, per-topic wall clock
	TopicConcurrency    int // fleet-level cap on concurrent topic collections
	RateAcquireTimeout  int // seconds
	ExtractionBatchSize int

	// Digest
	DigestInterval   int // seconds between digest eligibility sweeps
	DigestGraceMin   int // minutes of trigger jitter tolerance
	BrevoAPIKey      string
	BrevoFromEmail   string
	BrevoFromName    string
	SummarizerURL    string
	SummarizerModel  string
	SummarizerAPIKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
