package shm

import (
	"hash/crc32"
	"unsafe"

	"golang.org/x/sys/unix"
)

const shmAccess = 0o600

// Supported reports whether SysV shared memory is available on this platform.
const Supported = true

// Attach creates and attaches the segment. A private segment is marked for
// removal as soon as it is attached, the kernel frees it on the last detach.
func (m *Memory) Attach() error {
	if m.basep != nil {
		return nil
	}

	if m.shmid < 0 {
		key := unix.IPC_PRIVATE
		if m.shmkey != "" {
			key = int(crc32.ChecksumIEEE([]byte(m.shmkey)))
		}
		shmid, err := unix.SysvShmGet(key, int(m.bytes), unix.IPC_CREAT|shmAccess)
		if err != nil {
			return err
		}
		m.shmid = shmid
	}

	data, err := unix.SysvShmAttach(m.shmid, 0, 0)
	if err != nil {
		return err
	}
	if m.shmkey == "" {
		if _, err = unix.SysvShmCtl(m.shmid, unix.IPC_RMID, nil); err != nil {
			_ = unix.SysvShmDetach(data)
			return err
		}
	}

	m.data = data
	m.basep = unsafe.Pointer(unsafe.SliceData(data))
	return nil
}

func (m *Memory) Detach() (err error) {
	if m.data != nil {
		err = unix.SysvShmDetach(m.data)
		m.data = nil
		m.basep = nil
	}
	return
}

// Remove marks a keyed segment for removal.
func (m *Memory) Remove() error {
	if m.shmid < 0 {
		return nil
	}
	_, err := unix.SysvShmCtl(m.shmid, unix.IPC_RMID, nil)
	return err
}
