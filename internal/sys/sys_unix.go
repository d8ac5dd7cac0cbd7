//go:build unix

package sys

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func MMap(file *os.File, length uint64) (dat []byte, err error) {
	return unix.Mmap(int(file.Fd()), 0, int(length), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
}

func MUnmap(file *os.File, dat []byte) error {
	if len(dat) == 0 {
		return nil
	}
	return unix.Munmap(dat)
}

func MSync(dat []byte) error {
	if len(dat) == 0 {
		return nil
	}
	return unix.Msync(dat, unix.MS_SYNC)
}
