/*
Package storagemodels defines the data structures shared by the engines and backends.

Key Types:

Record:
The identity embedded by every table entity:

	type Employee struct {
	    storagemodels.Record
	    Name    string
	    Address Address
	}

	e := &Employee{Record: storagemodels.NewRecord("sales"), Name: "Ada"}
	// e.RowKey is a fresh UUID; e.Timestamp is set by the repository on write.

Item and KeyFilter:
Backends store entities as DynamoDB attribute maps (Item) regardless of the actual
store, and evaluate the KeyFilter part of a query server-side.

Message:
A queue message with its delivery metadata and the opaque lease Receipt.

Page:
One slice of a client-side paginated query with the total match count.

ScanOptions:
Backend paging behaviour:

	opts := []ScanOption{
	    WithPageSize(25),
	    WithConsistentRead(),
	}
*/
package storagemodels
