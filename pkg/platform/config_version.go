package platform

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the current config API version.
const CurrentConfigVersion = "v1"

// supportedVersions lists the config API versions this build reads. A
// version mapped to false was removed and is rejected with a hint.
var supportedVersions = map[string]bool{
	CurrentConfigVersion: true,
}

// PeekVersion extracts the apiVersion from raw YAML bytes.
// Returns CurrentConfigVersion if the field is missing or empty.
func PeekVersion(data []byte) string {
	var envelope struct {
		APIVersion string `yaml:"apiVersion"`
	}
	if err := yaml.Unmarshal(data, &envelope); err != nil || envelope.APIVersion == "" {
		return CurrentConfigVersion
	}
	return envelope.APIVersion
}

func checkVersion(version string) error {
	active, known := supportedVersions[version]
	if known && active {
		return nil
	}
	if known {
		return fmt.Errorf("config apiVersion %q has been removed; use %s", version, CurrentConfigVersion)
	}

	var supported []string
	for v, ok := range supportedVersions {
		if ok {
			supported = append(supported, v)
		}
	}
	sort.Strings(supported)
	return fmt.Errorf("unsupported config apiVersion %q; supported versions: %s",
		version, strings.Join(supported, ", "))
}
