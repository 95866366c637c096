// Package store is the persistence layer of the training-admin backend.
//
// A [Store] maps entities described in a [schema.Registry] onto a
// schemaless key-value store. Partial updates are compiled by package patch,
// reads are routed to the primary key, a secondary index or a scan by
// package route, and the resulting requests are issued to an [Adapter].
//
// # Adapters
//
// Two adapters implement the same contract:
//
//   - the live DynamoDB adapter (package dynamo)
//   - the in-memory fallback repository (package memstore), seeded at start
//
// # Degraded Mode
//
// The store starts in [Normal] mode. It moves to [Degraded] when the
// [CredentialSource] reports no usable credentials, or, under
// [FallbackOnAnyTransportError], when a live read fails with a
// [TransportError]. While degraded, reads and writes go to the fallback
// repository, which evaluates the same routed plan the live adapter would
// receive. Only [Store.CredentialsRefreshed] returns the store to Normal.
//
// Writes never fall back after a live failure; their transport errors are
// always returned.
//
//	st := store.New(reg, dynamo.New(client, logger), store.DefaultConfig(),
//	    store.WithFallback(memstore.New(reg)),
//	    store.WithCredentials(dynamo.CredentialSource(awsCfg.Credentials)),
//	)
//	res, err := st.Query(ctx, route.Spec{
//	    Entity:      "Course",
//	    Constraints: map[string]any{"catalogId": "c1"},
//	})
//
// # Errors
//
// Validation errors are returned before any I/O:
//
//   - [ErrUnknownEntity] - entity has no registered descriptor
//   - [ErrKeyFieldImmutable] - patch names a key attribute
//   - [ErrEmptyPatch] - patch has nothing to change
//   - [ErrUnroutableQuery] - query needs a scan and scans are disallowed
//
// Writes additionally return [ErrAlreadyExists] (create) and [ErrNotFound]
// (update). Reads report a missing item as an empty result. [KindOf]
// classifies any returned error.
package store
