/*
Package ddb provides the DynamoDB implementation of the datastore interfaces.

Tables are keyed by PartitionKey (hash) and RowKey (range) and created on first
use with on-demand billing. Reads are consistent. Merge is a single UpdateItem
that SETs every attribute the item carries, so attributes it does not carry
survive.

Each queue is its own table keyed by message id:

	client, err := ddb.NewClient(ctx, settings, log)
	backend := ddb.NewBackend(client, ddb.WithLogger(log))
	store, err := datastore.OpenQueue(backend, "billing-invoicecreated")

Leases are conditional writes. Receive picks the oldest visible message and
updates it on condition that nobody else leased it since the scan; ExtendLease
and Delete require the current receipt and an unexpired lease, and report
errors.ErrInvalidHandle when the condition fails. Expired messages are ignored
by every read and reclaimed by DynamoDB TTL on the expiresAtEpoch attribute.

Client errors DynamoDB will never accept (validation, authentication) are
marked permanent so the engines do not retry them. Throttling and server
errors are retried.

Development storage points the client at DynamoDB Local
(http://localhost:8000 by default).
*/
package ddb
