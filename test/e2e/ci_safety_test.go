//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// hostileEnv simulates a CI runner without traffic API credentials.
func hostileEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "RAPIDAPI_KEY=") || strings.HasPrefix(e, "SKYBALANCE_") {
			continue
		}
		env = append(env, e)
	}
	return append(env, "GITHUB_ACTIONS=true")
}

// TestCISafety ensures mock runs succeed without any credentials.
func TestCISafety(t *testing.T) {
	registry := WriteRegistry(t)
	outputDir := t.TempDir()

	out, err := Skybalance(t, hostileEnv(), "run",
		"--mock", "--headless",
		"--iterations", "3",
		"--airports", registry,
		"--output", outputDir,
		"--history", t.TempDir(),
		"--on-initial=", "--on-final=",
	)
	if err != nil {
		t.Fatalf("SkyBalance crashed in hostile CI environment: %v\nOutput: %s", err, out)
	}

	for _, name := range []string{"initial_aircraft_data.csv", "aircraft_data.csv", "airport_load.csv", "airports.csv", "adjusted_airports.csv"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); os.IsNotExist(err) {
			t.Fatalf("%s not generated in hostile CI environment", name)
		}
	}
}

// TestLiveRunRequiresKey ensures a live run refuses to start without a key.
func TestLiveRunRequiresKey(t *testing.T) {
	out, err := Skybalance(t, hostileEnv(), "run", "--headless", "--airports", WriteRegistry(t), "--output", t.TempDir())
	if err == nil {
		t.Fatalf("Expected failure without an api key, got: %s", out)
	}
	if !strings.Contains(string(out), "api key is required") {
		t.Fatalf("Unexpected error output: %s", out)
	}
}
