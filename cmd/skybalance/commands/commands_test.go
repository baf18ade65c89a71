package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/skybalance/pkg/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	resetFlags(analyzeCmd)
	resetFlags(runCmd)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags undoes what an earlier Execute left on a shared command.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.AppName)
	assert.Contains(t, out, version.Current)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	airports := writeFile(t, dir, "airports.csv", "name,latitude,longitude\nO,0,0\nN,1,0\n")

	var obs strings.Builder
	obs.WriteString("airport,icao,latitude,longitude\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&obs, "O,o%d,0.1,0\n", i)
	}
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&obs, "N,n%d,0.9,0\n", i)
	}
	dump := writeFile(t, dir, "aircraft_data.csv", obs.String())

	out, err := execute(t, "analyze", "--airports", airports, "--observations", dump, "--threshold", "7.8")
	require.NoError(t, err)
	assert.Contains(t, out, "OVERLOADED")
	assert.Contains(t, out, "move N and O together")
}

func TestAnalyzeZeroThresholdIsKept(t *testing.T) {
	dir := t.TempDir()
	airports := writeFile(t, dir, "airports.csv", "name,latitude,longitude\nO,0,0\nN,1,0\nI,9,9\n")
	dump := writeFile(t, dir, "aircraft_data.csv", "airport,icao,latitude,longitude\nO,o1,0.1,0\nN,n1,0.9,0\n")

	out, err := execute(t, "analyze", "--airports", airports, "--observations", dump, "--threshold", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Threshold: 0.00")
	assert.Equal(t, 2, strings.Count(out, "OVERLOADED"))
	assert.Contains(t, out, "idle")
}

func TestAnalyzeUsesAirportsFlagDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "airports.csv", "name,latitude,longitude\nO,0,0\nN,1,0\n")
	dump := writeFile(t, dir, "aircraft_data.csv", "airport,icao,latitude,longitude\nO,o1,0.1,0\n")
	t.Chdir(dir)

	out, err := execute(t, "analyze", "--observations", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "CLASSIFICATION")
}

func TestAnalyzeRequiresObservations(t *testing.T) {
	_, err := execute(t, "analyze", "--airports", "missing.csv", "--observations", filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
}

func TestRunHeadlessMock(t *testing.T) {
	dir := t.TempDir()
	airports := writeFile(t, dir, "airports.csv", "name,latitude,longitude\nA,0,0\nB,0.2,0\nC,5,5\n")

	out, err := execute(t, "run",
		"--headless", "--mock",
		"--iterations", "2",
		"--airports", airports,
		"--output", filepath.Join(dir, "out"),
		"--history", filepath.Join(dir, "ledger"),
		"--on-initial=", "--on-final=",
		"--log-file", filepath.Join(dir, "run.log"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN SUMMARY")
	assert.Contains(t, out, "Cycles:     2")

	for _, key := range []string{"initial_aircraft_data.csv", "aircraft_data.csv", "airport_load.csv", "airports.csv", "adjusted_airports.csv"} {
		assert.FileExists(t, filepath.Join(dir, "out", key))
	}

	out, err = execute(t, "history", "--history", filepath.Join(dir, "ledger"))
	require.NoError(t, err)
	assert.Contains(t, out, "(2 cycles)")
}
