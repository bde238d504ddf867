package version

import (
	"testing"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name           string
		gatewayVersion string
		configVersion  string
		expectError    bool
		errorContains  string
	}{
		{
			name:           "exact match",
			gatewayVersion: "1.2.0",
			configVersion:  "1.2.0",
		},
		{
			name:           "config patch higher",
			gatewayVersion: "1.2.0",
			configVersion:  "1.2.7",
		},
		{
			name:           "gateway minor higher",
			gatewayVersion: "1.4.0",
			configVersion:  "1.2.0",
		},
		{
			name:           "config minor higher",
			gatewayVersion: "1.1.0",
			configVersion:  "1.2.0",
			expectError:    true,
			errorContains:  "config targets 1.2.x",
		},
		{
			name:           "major differs",
			gatewayVersion: "2.0.0",
			configVersion:  "1.2.0",
			expectError:    true,
			errorContains:  "major version mismatch",
		},
		{
			name:           "gateway is main",
			gatewayVersion: "main",
			configVersion:  "3.0.0",
		},
		{
			name:           "config is main",
			gatewayVersion: "1.0.0",
			configVersion:  "main",
		},
		{
			name:           "v prefix",
			gatewayVersion: "v1.2.0",
			configVersion:  "v1.2.0",
		},
		{
			name:           "prerelease gateway",
			gatewayVersion: "1.2.0-rc.1",
			configVersion:  "1.2.0",
		},
		{
			name:           "invalid config version",
			gatewayVersion: "1.2.0",
			configVersion:  "latest",
			expectError:    true,
			errorContains:  "invalid config version",
		},
		{
			name:           "empty gateway version",
			gatewayVersion: "",
			configVersion:  "1.2.0",
			expectError:    true,
			errorContains:  "invalid gateway version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.gatewayVersion, tt.configVersion)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIncompatibleConfigIsConfigurationError(t *testing.T) {
	err := CheckConfigCompatibility("2.0.0", "1.0.0")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
