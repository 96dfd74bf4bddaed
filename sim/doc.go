// Package sim provides the core selection engine for the DMGT simulator.
//
// # Reading Guide
//
// Start with these files to understand the selection kernel:
//   - item.go: StreamItem, SelectedSet and per-class LabelCounts
//   - utility.go: marginal utility of a candidate under the square-root coverage objective
//   - dmgt.go: threshold-gated greedy selection (DMGT)
//   - sieve.go: parallel-guess streaming selection (SIEVE) over a geometric guess domain
//
// # Architecture
//
// The sim package defines interfaces and the selection algorithms; collaborators
// live in sub-packages:
//   - sim/calibration/: isotonic-regression confidence calibration per rarity group
//   - sim/classifier/: reference classifier (nearest-centroid softmax)
//   - sim/cluster/: two-tier distributed aggregation (per-agent, then central)
//   - sim/experiment/: round orchestration across algorithm lineages
//   - sim/workload/: synthetic imbalanced per-agent streams
//   - sim/trace/: per-item decision trace recording
//   - sim/metrics/: Prometheus collectors for selection activity
//
// # Key Interfaces
//
//   - Classifier: class-probability prediction and retraining on a selected set
//   - CalibrationModel: monotone map from raw top-class confidence to calibrated confidence
//   - Selector: one selection round over an ordered stream under a budget
//   - StreamSource: finite per-agent sequence of stream batches
package sim
