//go:build windows

package sys

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func MMap(file *os.File, length uint64) (dat []byte, err error) {
	hMap, err := windows.CreateFileMapping(
		windows.Handle(file.Fd()),
		nil,
		windows.PAGE_READWRITE,
		uint32(length>>32),
		uint32(length),
		nil,
	)
	if err != nil {
		return nil, err
	}

	addr, err := windows.MapViewOfFile(hMap, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(length))
	if err != nil {
		windows.CloseHandle(hMap)
		return nil, err
	}
	// Windows keeps the mapping alive until the view is unmapped
	windows.CloseHandle(hMap)

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length), nil
}

func MUnmap(file *os.File, dat []byte) error {
	if len(dat) == 0 {
		return nil
	}
	return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&dat[0])))
}

func Remap(file *os.File, newLength uint64, olddat []byte) (dat []byte, err error) {
	if err = MUnmap(file, olddat); err != nil {
		return
	}
	return MMap(file, newLength)
}

func MSync(dat []byte) error {
	if len(dat) == 0 {
		return nil
	}
	return windows.FlushViewOfFile(uintptr(unsafe.Pointer(&dat[0])), uintptr(len(dat)))
}
