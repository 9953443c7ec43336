// Package testutil provides shared test infrastructure for the simulator.
// It holds network fixtures and assertion helpers used by the sim/ and
// sim/topology/ test packages. It must not import sim/.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TandemNetworkYAML is the three-queue tandem network:
// fila1 (G/G/1) -> fila2 (G/G/2/5) -> fila3 (G/G/2/10).
const TandemNetworkYAML = `
queues:
  fila1:
    type: G/G/1
    arrival: {min: 2, max: 4}
    service: {min: 1, max: 2}
    routing:
      - fila2: 1.0
  fila2:
    type: G/G/2/5
    service: {min: 4, max: 8}
    routing:
      - fila3: 1.0
  fila3:
    type: G/G/2/10
    service: {min: 5, max: 15}
`

// WriteNetworkFile writes content to a network.yml in a fresh temp dir and returns its path.
func WriteNetworkFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write network file: %v", err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertFloat64Near compares two float64 values with absolute tolerance.
func AssertFloat64Near(t *testing.T, name string, want, got, absTol float64) {
	t.Helper()
	if math.Abs(want-got) > absTol {
		t.Errorf("%s: got %v, want %v ± %v", name, got, want, absTol)
	}
}
