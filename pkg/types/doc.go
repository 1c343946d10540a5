// Package types defines the data model shared by the coordinator and the
// workers: the document task and partial-result wire structures, the
// heartbeat record, and the broker key layout.
//
// Everything that crosses the broker is declared here with its exact JSON
// shape; pkg/broker is the only place those shapes are serialized.
package types
