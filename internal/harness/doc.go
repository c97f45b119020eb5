// Package harness implements the fixed-duration, iteration-bounded saturation
// loop that drives a pool of asynchronous execution slots and collects
// per-item latencies. The loop keeps every slot busy by redispatching the
// moment a slot is observed idle; completed-but-unobserved work is flushed
// after a final drain.
package harness
