package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// CheckConfigCompatibility reports whether a configuration file written for
// configVersion can be loaded by a gateway at gatewayVersion.
//
// Rules:
//   - "main" on either side skips the check
//   - major versions must match
//   - the gateway minor version must be at least the config's; patches are ignored
//
// Examples:
//   - gateway 1.4.0, config 1.2.0 -> OK
//   - gateway 1.2.0, config 1.2.7 -> OK
//   - gateway 1.1.0, config 1.2.0 -> ERROR (config needs a newer gateway)
//   - gateway 2.0.0, config 1.2.0 -> ERROR (major differs)
func CheckConfigCompatibility(gatewayVersion, configVersion string) error {
	gatewayVersion = strings.TrimPrefix(gatewayVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if gatewayVersion == "main" || configVersion == "main" {
		return nil
	}

	gateway, err := semver.NewVersion(gatewayVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid gateway version '%s'", gatewayVersion)
	}

	config, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version '%s'", configVersion)
	}

	if gateway.Major() != config.Major() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"major version mismatch: gateway is %d.x.x but config targets %d.x.x",
			gateway.Major(), config.Major())
	}

	if gateway.Minor() < config.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config targets %d.%d.x but gateway is %d.%d.x",
			config.Major(), config.Minor(), gateway.Major(), gateway.Minor())
	}

	return nil
}
