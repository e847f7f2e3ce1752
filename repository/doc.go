/*
Package repository is the typed CRUD and query engine over a datastore.TableStore.

Entities are structs embedding storagemodels.Record:

	type Employee struct {
	    storagemodels.Record
	    FirstName string
	    Address   *Address
	}

	repo, err := repository.New[Employee](table, repository.WithLogger(log))

	rowKey, err := repo.Upsert(ctx, &Employee{Record: storagemodels.NewRecord("sales"), FirstName: "Ada"})

	for e, err := range repo.Query(ctx, repository.ByPartition[Employee]("sales"),
	    repository.WithOrderBy(ordering.Asc("Address.City"))) {
	    if err != nil {
	        return err
	    }
	    fmt.Println(e.FirstName)
	}

	page, err := repo.QueryPage(ctx, repository.All[Employee](), 2, 25)

Keys in a Predicate are evaluated by the backend, Where functions in process.
Results are ordered by Timestamp ascending by default. Pagination is done in
memory over the full ordered result.

Backend failures are retried with exponential backoff and then returned as
errors.TableError (Query, Save or Delete) carrying the table name and the cause.
Invalid keys are rejected with errors.ValidationError before any backend call.
*/
package repository
