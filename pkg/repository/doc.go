/*
Package repository stores paused flow executions between requests.

Each execution lives in a conversation. A conversation keeps a group of
serialized snapshots, one per pause point, addressed by a CompositeKey of the
form "e<conversation>s<snapshot>". Going back to an older key restores the
older snapshot, which is what makes the browser back button work.

Mutations require the conversation lock: obtain it with GetLock, and pass the
context returned by Lock.Lock to PutFlowExecution and RemoveFlowExecution.

	lock := repo.GetLock(key)
	ctx, err := lock.Lock(ctx)
	if err != nil {
		return err
	}
	defer lock.Unlock(ctx)

	exec, err := repo.GetFlowExecution(ctx, key)
	...
	err = repo.PutFlowExecution(ctx, exec)
*/
package repository
