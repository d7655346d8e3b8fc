/*
Package taskrunner implements the control-plane task queue the design
notes call "LinkedRunner": a single-producer, single-consumer FIFO of
closures. Submit enqueues onto a mutex/condvar-guarded linked list rather
than a fixed-capacity channel, so a submitter is never blocked behind a
slow consumer — only strict submission order and at-most-one-task-in-
flight are guaranteed, matching the concurrency model's requirement that
checkpoint creation, meta flush and transfer orchestration never
interleave but also never stall a caller.
*/
package taskrunner
