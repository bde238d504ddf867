package version

// Version is the gateway build version, set at build time with
// -ldflags "-X github.com/rxtech-lab/argo-gateway/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

func GetVersion() string {
	return Version
}
