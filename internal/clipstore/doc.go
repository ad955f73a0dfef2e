// Package clipstore stores clip payloads by their SHA-256 digest.
//
// Identical payloads map to the same digest and are written once. The store
// knows nothing about who references a blob; callers decide when a digest is
// unreferenced and may be deleted.
package clipstore
