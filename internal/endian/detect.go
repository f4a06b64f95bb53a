package endian

import "unsafe"

// isLittleEndian is resolved once at package init rather than re-probed
// per call.
var isLittleEndian = func() bool {
	var probe uint16 = 0x0102
	b := (*[2]byte)(unsafe.Pointer(&probe))
	return b[0] == 0x02
}()
