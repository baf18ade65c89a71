//go:build e2e

package e2e

import (
	"slices"
	"strings"
	"testing"
)

// TestCloudTargets writes snapshots to S3 and the ledger to DynamoDB.
func TestCloudTargets(t *testing.T) {
	CreateBucket(t, "skybalance-e2e")
	CreateLedgerTable(t, "skybalance-ledger")

	out, err := Skybalance(t, nil, "run",
		"--mock", "--headless",
		"--iterations", "2",
		"--airports", WriteRegistry(t),
		"--output", "s3://skybalance-e2e/runs/e2e",
		"--history", "dynamodb://skybalance-ledger",
		"--on-initial=", "--on-final=",
		"--region", "us-east-1",
		"--aws-endpoint", endpointURL,
	)
	if err != nil {
		t.Fatalf("Run failed: %v\nOutput: %s", err, out)
	}

	keys := ListKeys(t, "skybalance-e2e", "runs/e2e/")
	for _, name := range []string{"initial_aircraft_data.csv", "aircraft_data.csv", "airport_load.csv", "airports.csv", "adjusted_airports.csv"} {
		if !slices.Contains(keys, "runs/e2e/"+name) {
			t.Fatalf("Missing s3 object %s (have %v)", name, keys)
		}
	}

	out, err = Skybalance(t, nil, "history",
		"--history", "dynamodb://skybalance-ledger",
		"--region", "us-east-1",
		"--aws-endpoint", endpointURL,
	)
	if err != nil {
		t.Fatalf("History failed: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(string(out), "(2 cycles)") {
		t.Fatalf("Unexpected trend output: %s", out)
	}
}
