/*
Package errors provides the error taxonomy of the cloudstore library.

Callers always receive one of the kinds below; backend (DynamoDB, Redis) errors are
only ever attached as the cause and never returned as the primary type.

	var (
	    ErrInvalidInput   = errors.New("invalid input")            // *ValidationError
	    ErrNotConfigured  = errors.New("storage not configured")   // *NotConfiguredError
	    ErrQuery          = errors.New("table query failed")       // *TableError{Op: OpQuery}
	    ErrSave           = errors.New("table save failed")        // *TableError{Op: OpSave}
	    ErrDelete         = errors.New("table delete failed")      // *TableError{Op: OpDelete}
	    ErrQueueOperation = errors.New("queue operation failed")   // *QueueError
	    ErrInvalidHandle  = errors.New("invalid message handle")   // *InvalidHandleError
	    ErrNotFound       = errors.New("entity not found")         // *NotFoundError
	)

Usage:

	_, err := repo.Upsert(ctx, employee)
	switch {
	case errors.IsValidationError(err):
	    // bad partition/row key, nothing was sent to the store
	case errors.IsSaveError(err):
	    var te *errors.TableError
	    stderrors.As(err, &te)
	    log.Printf("table %s unavailable: %v", te.Table, te.Cause)
	}

	if err := q.Delete(ctx, msg); errors.IsInvalidHandle(err) {
	    // lease expired and the message may already be with another consumer
	}

Validation errors are raised before any remote call and are never retried.
*/
package errors
