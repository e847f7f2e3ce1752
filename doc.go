/*
Package cloudstore is a storage-access library for two cloud storage services: a
partitioned key/attribute table store and a durable message queue.

Two engines do the work:
  - repository.Repository[T] gives typed CRUD and queries over a table, with
    in-memory filtering, multi-key ordering and pagination.
  - queue.Queue is an at-least-once queue with delayed visibility, leases,
    lease extension and a seven day message lifespan.

Both retry transient backend failures with exponential backoff and report
failures as the kinds in package errors.

Backends live under datastore: DynamoDB (tables and queues), Redis (queues) and
an in-memory store for tests and local runs. The Provider picks them from
configuration:

	v, err := config.Load(config.Options{EnvFile: ".env"})
	p, err := cloudstore.NewProvider(ctx, v)
	defer p.Close()

	employees, err := cloudstore.Repository[Employee](p, "Employees")
	rowKey, err := employees.Upsert(ctx, &Employee{Record: storagemodels.NewRecord("sales")})

	invoices, err := p.Queue("Billing.InvoiceCreated")
	msg, err := invoices.Dequeue(ctx)

Configuration keys are SystemStorageConnectionString, LogLevel, StorageBackend,
QueueBackend, RedisAddress and MetricsNamespace, read from the environment with
the CLOUDSTORE_ prefix. Without a connection string the provider talks to
DynamoDB Local.
*/
package cloudstore
