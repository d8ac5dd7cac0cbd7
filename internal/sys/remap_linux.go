package sys

import (
	"os"

	"golang.org/x/sys/unix"
)

func Remap(file *os.File, newLength uint64, olddat []byte) (dat []byte, err error) {
	if len(olddat) == 0 {
		return MMap(file, newLength)
	}
	return unix.Mremap(olddat, int(newLength), unix.MREMAP_MAYMOVE)
}
