/*
Package localstore provides the disk persistence layer for stash
records. It uses stash/shed abstractions.

The main type is DB which manages the storage by providing methods to
write, read and delete records and to manage their sync status.

Internally, DB stores record payloads and any required bookkeeping,
such as store and update timestamps, in shed indexes that are iterated
on by the eviction and cleanup routines:

  - the retrieval index holds full records keyed by id
  - the category index orders ids within a category, newest first
  - the expiration index orders expiring ids by their deadline
  - the gc index orders all ids by eviction precedence

Records with a passed expiry deadline are never returned by a read.
They are removed lazily when a read encounters them and eagerly by the
cleanup routines.

DB implements an internal eviction routine that keeps the total stored
size within a configured budget by removing records in gc index order:
synced records before unsynced ones, lower priorities before higher,
older records before newer. Eviction stops once the size drops to 80%
of the budget so that writes right at the threshold do not thrash.
*/
package localstore
