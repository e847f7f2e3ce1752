/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redisq

import "github.com/redis/go-redis/v9"

// Times are Unix microseconds, exact in Lua's doubles. They are only converted
// with tonumber for comparisons and always passed back to Redis as the original
// strings. Each message is a hash at <prefix><id>; the ready set scores ids by
// visibleAt.

// receiveScript leases the first visible, unexpired message.
// KEYS[1] ready set. ARGV: prefix, now, until, receipt.
// Returns {id, payload, dequeueCount, insertedAt, expiresAt, visibleAt} or nil.
var receiveScript = redis.NewScript(`
local ready, prefix = KEYS[1], ARGV[1]
local now, untilAt, receipt = tonumber(ARGV[2]), ARGV[3], ARGV[4]
while true do
  local ids = redis.call('ZRANGEBYSCORE', ready, '-inf', ARGV[2], 'LIMIT', 0, 16)
  if #ids == 0 then
    return nil
  end
  for _, id in ipairs(ids) do
    local key = prefix .. id
    local expires = redis.call('HGET', key, 'expiresAt')
    if not expires or tonumber(expires) <= now then
      redis.call('DEL', key)
      redis.call('ZREM', ready, id)
    else
      local count = redis.call('HINCRBY', key, 'dequeueCount', 1)
      redis.call('HSET', key, 'visibleAt', untilAt, 'receipt', receipt)
      redis.call('ZADD', ready, untilAt, id)
      local fields = redis.call('HMGET', key, 'payload', 'insertedAt', 'expiresAt')
      return {id, fields[1], tostring(count), fields[2], fields[3], untilAt}
    end
  end
end
`)

// leaseCheck is shared by change and delete: the receipt must be current and the
// lease unexpired.
const leaseCheck = `
local key, ready = KEYS[2], KEYS[1]
local now = tonumber(ARGV[2])
local fields = redis.call('HMGET', key, 'receipt', 'visibleAt', 'expiresAt')
if not fields[1] or fields[1] ~= ARGV[1] then
  return 0
end
if tonumber(fields[2]) <= now or tonumber(fields[3]) <= now then
  return 0
end
`

// changeScript moves a lease. KEYS: ready set, message. ARGV: receipt, now, until,
// new receipt, id. Returns 1, or 0 for an invalid handle.
var changeScript = redis.NewScript(leaseCheck + `
redis.call('HSET', key, 'visibleAt', ARGV[3], 'receipt', ARGV[4])
redis.call('ZADD', ready, ARGV[3], ARGV[5])
return 1
`)

// deleteScript removes a leased message. KEYS: ready set, message. ARGV: receipt,
// now, id. Returns 1, or 0 for an invalid handle.
var deleteScript = redis.NewScript(leaseCheck + `
redis.call('DEL', key)
redis.call('ZREM', ready, ARGV[3])
return 1
`)

// countScript drops ids whose message expired and returns what is left.
// KEYS[1] ready set. ARGV: prefix, now.
var countScript = redis.NewScript(`
local ready, prefix, now = KEYS[1], ARGV[1], tonumber(ARGV[2])
local n = 0
for _, id in ipairs(redis.call('ZRANGE', ready, 0, -1)) do
  local expires = redis.call('HGET', prefix .. id, 'expiresAt')
  if not expires or tonumber(expires) <= now then
    redis.call('DEL', prefix .. id)
    redis.call('ZREM', ready, id)
  else
    n = n + 1
  end
end
return n
`)

// purgeScript deletes every message and the ready set. KEYS[1] ready set.
// ARGV[1] prefix. Returns the number of ids removed.
var purgeScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return #ids
`)
