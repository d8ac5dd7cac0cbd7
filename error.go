package gistvac

import "errors"

var (
	ErrClosed        = errors.New("closed")
	ErrOutOfRange    = errors.New("block out of range")
	ErrPageSize      = errors.New("invalid page size")
	ErrPageFull      = errors.New("page full")
	ErrBadChecksum   = errors.New("bad checksum")
	ErrFileTruncated = errors.New("file truncated")
)
