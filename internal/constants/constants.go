package constants

import "time"

// Fixed media type for every exchange call; content negotiation is not
// configurable per call.
const (
	ExchangeMediaType = "application/claim-exchange+json"
)

const (
	DefaultRetryAttempts   = 3
	DefaultRetryBaseDelay  = 1 * time.Second
	DefaultRetryMaxDelay   = 10 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	BatchTimeoutMultiplier = 2
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixFocusLock   = "focuslock:"
	CacheKeyPrefixEligibility = "eligibility:"
)

const (
	DefaultFocusLockTTL        = 30 * time.Second
	DefaultEligibilityCacheTTL = 15 * time.Minute
)

const (
	DefaultLifecycleTopic = "submission_lifecycle"
)

const (
	DefaultMongoDBName  = "claimgate"
	AuditCollectionName = "envelope_audit"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MinBatchSize = 2
	MaxBatchSize = 200
)

const (
	DefaultPendingSweepAge = 15 * time.Minute
)
