/*
Package redisq provides a Redis implementation of datastore.QueueStore.

Each message is a hash holding its payload, dequeue count, times and current
receipt; a sorted set orders message ids by the time they next become
visible. Receive, ChangeVisibility, Delete, ApproximateCount and Purge are Lua
scripts, so a lease changes hands atomically even with many consumers. Message
hashes carry a Redis expiry at the end of their lifespan; ids left behind in
the sorted set are dropped the next time a script meets them.

Keys are <prefix>{<queue>}:ready and <prefix>{<queue>}:msg:<id>. The hash tag
keeps a queue on one cluster slot.
*/
package redisq
