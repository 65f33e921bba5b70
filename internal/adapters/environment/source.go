package environment

import (
	"os"
	"strings"

	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// Snapshot is a frozen copy of environment variables. Parameters resolve
// against the snapshot taken at startup, after .env files were loaded, so a
// run sees one consistent environment.
type Snapshot map[string]string

// FromOS captures the process environment
func FromOS() Snapshot {
	env := make(Snapshot)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Lookup returns the variable. Empty values count as unset.
func (s Snapshot) Lookup(key string) (string, bool) {
	v, ok := s[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

var _ usecase.EnvironmentSource = Snapshot(nil)
