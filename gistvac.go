// Package gistvac defines the basic types and collaborator interfaces for
// vacuuming a disk-resident GiST-style index.
//
// The engine itself lives in the vacuum package. It runs single-threaded
// within one backend and talks to the shared on-disk page graph only through
// the interfaces below, so other backends may keep inserting, splitting and
// reading concurrently.
package gistvac

// BlockNumber identifies a page within an index file. Block 0 is the root.
type BlockNumber uint32

// InvalidBlock is the "no block" sentinel.
const InvalidBlock BlockNumber = ^BlockNumber(0)

// LSN is a position in the write-ahead log. Pages are stamped with the LSN
// of the last record that touched them; the same counter doubles as the
// split-generation source (a page's NSN is the LSN of its split record).
type LSN uint64

// TxID is a transaction identifier. Deleted pages carry a TxID horizon:
// a reader admitted before the horizon must not rely on the page's old
// identity.
type TxID uint64

// HeapPointer identifies a row in the indexed table.
type HeapPointer struct {
	Block  BlockNumber
	Offset uint16
}

// LockMode selects the strength of a page lock.
type LockMode int

const (
	Share LockMode = iota
	Exclusive
)

// PageGuard is a held page lock. Bytes stays valid until Release.
// Raw page memory never crosses this boundary unlocked.
type PageGuard interface {
	// Bytes returns the locked page image.
	Bytes() []byte

	// MarkDirty tells the store the page image was modified.
	MarkDirty()

	// Release drops the lock. The guard must not be used afterwards.
	Release()
}

// PageStore arbitrates access to the shared page graph. Acquire blocks,
// without timeout, while a conflicting lock is held by someone else.
type PageStore interface {
	Acquire(blkno BlockNumber, mode LockMode) (PageGuard, error)

	// NumBlocks returns the current page count, taken under the
	// relation-extension lock.
	NumBlocks() (BlockNumber, error)

	// Extend grows the file by n zeroed pages under the extension lock and
	// returns the block number of the first new page.
	Extend(n int) (BlockNumber, error)

	// PageSize returns the fixed page size in bytes.
	PageSize() int
}

// LogWriter appends one durable record per page-mutating step. Indexes that
// do not need durability substitute a writer that only hands out
// monotonically increasing placeholder LSNs.
type LogWriter interface {
	// AppendUpdate logs the removal of entries from a single page.
	AppendUpdate(blkno BlockNumber, removed []uint16) (LSN, error)

	// AppendDelete logs, as one atomic step, the removal of downlinks from
	// an internal page together with marking the referenced leaves deleted
	// under the given horizon.
	AppendDelete(parent BlockNumber, removed []uint16, leaves []BlockNumber, horizon TxID) (LSN, error)

	// Current returns the latest LSN without appending.
	Current() LSN
}

// TxOracle hands out transaction identifiers guaranteed newer than any
// transaction that could still be mid-traversal. The vacuum itself holds no
// transaction of its own.
type TxOracle interface {
	Next() TxID
}

// FreeSpaceMap tracks pages available for reuse by future splits.
type FreeSpaceMap interface {
	// RecordFree reports a recyclable block.
	RecordFree(blkno BlockNumber)

	// Vacuum runs a map-wide consistency sweep.
	Vacuum()
}

// DeleteChecker is the caller-supplied capability deciding whether the heap
// row an index entry points to is dead to every transaction, in which case
// the entry may be removed.
type DeleteChecker interface {
	Deletable(ptr HeapPointer) bool
}

// DeleteCheckerFunc adapts a plain function to the DeleteChecker interface.
type DeleteCheckerFunc func(HeapPointer) bool

func (f DeleteCheckerFunc) Deletable(ptr HeapPointer) bool { return f(ptr) }
