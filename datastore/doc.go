/*
Package datastore defines the backend interfaces the repository and queue engines
are built on.

TableStore is a handle on one partitioned table. It speaks attribute maps
(storagemodels.Item) and pages through results with an opaque start key:

	type TableStore interface {
	    Name() string
	    Ensure(ctx context.Context) error
	    Get(ctx context.Context, partitionKey, rowKey string) (storagemodels.Item, bool, error)
	    ScanPage(ctx context.Context, filter storagemodels.KeyFilter, start storagemodels.Item, opts storagemodels.ScanOptions) ([]storagemodels.Item, storagemodels.Item, error)
	    Merge(ctx context.Context, item storagemodels.Item) error
	    Delete(ctx context.Context, partitionKey, rowKey string) error
	}

QueueStore is a handle on one visibility-timeout queue. Leases are guarded by
receipts issued on every delivery; a stale receipt is rejected with
errors.ErrInvalidHandle.

OpenTable and OpenQueue apply the naming rules before a backend is touched.

Implementations:
  - ddb: DynamoDB tables, and queues stored as DynamoDB tables with conditional leases
  - redisq: Redis queues driven by Lua scripts
  - mock: in-memory tables and queues for tests
*/
package datastore
