package common

const (
	// AuthorizationHeaderName carries the bearer token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the expected scheme prefix of AuthorizationHeaderName.
	BearerScheme = "Bearer"
)
