// Package datasync runs sync cycles: for every entity type, patients first,
// it pushes locally pending records and then pulls remote changes page by
// page, merging them through the entity repository.
//
// A cycle starts by returning records stuck IN_FLIGHT (from a cancelled or
// crashed push) to PENDING. A push marks the batch IN_FLIGHT, sends it in
// one call, and moves the batch to DONE on success or back to PENDING on
// failure. The resume token of a pull is persisted only after its page is
// merged.
//
// At most one cycle runs at a time; concurrent callers share the result of
// the running cycle. A failure of one entity type does not undo the progress
// of the others; the cycle reports every failure in a CycleError.
package datasync
