package storage

import "fmt"

// Default advisor parameters. Operators can override any of them via
// the storage section of the YAML config; zero values fall back to
// these.
const (
	// DefaultBundleCapacity is the protocol ceiling on how many blobs a
	// single bundle may contain.
	DefaultBundleCapacity = 666
	// DefaultMaxBlobSize is the per-blob size ceiling for bundling.
	DefaultMaxBlobSize = 10 * 1024 * 1024
	// DefaultBaseCost is the fixed per-object storage overhead, in cost
	// units.
	DefaultBaseCost = 1000.0
	// DefaultPerKBCost is the marginal storage cost per KiB of payload.
	DefaultPerKBCost = 1.0
	// DefaultSavingsThreshold is the minimum savings percentage that
	// justifies bundling.
	DefaultSavingsThreshold = 20.0
)

// AdvisorConfig carries the cost-model parameters of the batching
// advisor. It is resolved once at startup and passed by reference.
type AdvisorConfig struct {
	BundleCapacity   int     `yaml:"bundle_capacity"`
	MaxBlobSize      int64   `yaml:"max_blob_size"`
	BaseCost         float64 `yaml:"base_cost"`
	PerKBCost        float64 `yaml:"per_kb_cost"`
	SavingsThreshold float64 `yaml:"savings_threshold"`
}

// withDefaults fills unset parameters with the protocol defaults.
func (c AdvisorConfig) withDefaults() AdvisorConfig {
	if c.BundleCapacity <= 0 {
		c.BundleCapacity = DefaultBundleCapacity
	}
	if c.MaxBlobSize <= 0 {
		c.MaxBlobSize = DefaultMaxBlobSize
	}
	if c.BaseCost <= 0 {
		c.BaseCost = DefaultBaseCost
	}
	if c.PerKBCost <= 0 {
		c.PerKBCost = DefaultPerKBCost
	}
	if c.SavingsThreshold <= 0 {
		c.SavingsThreshold = DefaultSavingsThreshold
	}
	return c
}

// BatchingDecision is the advisor's recommendation on whether many
// small artifacts should be combined into one bundle before upload.
type BatchingDecision struct {
	BlobCount       int     `json:"blob_count"`
	AverageBlobSize int64   `json:"average_blob_size"`
	Recommended     bool    `json:"recommended"`
	Reason          string  `json:"reason"`
	SavingsPercent  float64 `json:"savings_percent"`
}

// BatchingAdvisor is a pure cost model: it only advises. Actual
// bundling and upload stay with the object-store side.
type BatchingAdvisor struct {
	cfg AdvisorConfig
}

// NewBatchingAdvisor creates an advisor with the given parameters,
// falling back to protocol defaults for anything unset.
func NewBatchingAdvisor(cfg AdvisorConfig) *BatchingAdvisor {
	return &BatchingAdvisor{cfg: cfg.withDefaults()}
}

// Advise evaluates the decision rules in order; the first matching rule
// decides. A batch of fewer than two blobs, a batch above the bundle
// capacity, or oversized blobs are never bundled. Otherwise bundling is
// recommended iff amortizing the base cost across the bundle saves more
// than the configured threshold.
func (a *BatchingAdvisor) Advise(blobCount int, averageBlobSize int64) BatchingDecision {
	decision := BatchingDecision{
		BlobCount:       blobCount,
		AverageBlobSize: averageBlobSize,
	}

	switch {
	case blobCount < 2:
		decision.Reason = "no batching benefit"
		return decision
	case blobCount > a.cfg.BundleCapacity:
		decision.Reason = fmt.Sprintf("exceeds bundle capacity (%d > %d)", blobCount, a.cfg.BundleCapacity)
		return decision
	case averageBlobSize > a.cfg.MaxBlobSize:
		decision.Reason = fmt.Sprintf("oversized for bundling (%d > %d bytes)", averageBlobSize, a.cfg.MaxBlobSize)
		return decision
	}

	avgSizeKB := float64(averageBlobSize) / 1024.0
	individualCost := float64(blobCount) * (a.cfg.BaseCost + a.cfg.PerKBCost*avgSizeKB)
	bundledCost := a.cfg.BaseCost + a.cfg.PerKBCost*float64(blobCount)*avgSizeKB
	decision.SavingsPercent = (individualCost - bundledCost) / individualCost * 100

	if decision.SavingsPercent > a.cfg.SavingsThreshold {
		decision.Recommended = true
		decision.Reason = fmt.Sprintf("bundling saves %.1f%% of storage cost", decision.SavingsPercent)
	} else {
		decision.Reason = fmt.Sprintf("savings too small (%.1f%% <= %.1f%% threshold)",
			decision.SavingsPercent, a.cfg.SavingsThreshold)
	}
	return decision
}
