// Package writers turns ledger records into serialized outputs.
//
// Design:
//   - Writers own all presentation knowledge (styled text table, JSON).
//   - The ledger stays storage-only; the pipeline stays orchestration-only.
//   - JSON goes through pkg/api (v1) for a stable wire format.
package writers
