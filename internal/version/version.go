package version

// Version is the current version of the router.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-router/internal/version.Version=1.2.3"
// The value "main" indicates a development build.
var Version = "main"

// GatewayProtocolVersion is the gateway wire protocol this build speaks.
const GatewayProtocolVersion = "1.2.0"

// GetVersion returns the current version of the router.
func GetVersion() string {
	return Version
}
