// Package store persists the local identity and session checkpoints on
// disk, encrypted at rest. Root and chain keys otherwise exist only in
// process memory; a checkpoint is a sealed snapshot used for recovery after
// restart.
package store
