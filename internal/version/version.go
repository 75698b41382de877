package version

// Version is the current version of the quant-research toolkit.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/sirily11/quant-research-go/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// GetVersion returns the current version of the toolkit.
func GetVersion() string {
	return Version
}
