package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "x-access-token"

// DefaultPullBatchSize is the page size used when pulling records.
const DefaultPullBatchSize = 50
