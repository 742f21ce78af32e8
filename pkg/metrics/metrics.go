// Package metrics holds the Prometheus collectors of every kardex process.
// Constructors return nil without a registerer and every method accepts a nil
// receiver, so tests and tools can skip metrics entirely.
package metrics

const namespace = "kardex"

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
