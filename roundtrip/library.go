package roundtrip

/*
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef int (*specgo_codec_fn)(uint8_t *, size_t, void *);

static int specgo_call_codec(void *fn, uint8_t *buf, size_t n, void *strct) {
	return ((specgo_codec_fn)fn)(buf, n, strct);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Library is a compiled protocol shared object, loaded with dlopen the
// way the original Python harness loads it with ctypes.CDLL. Go has no
// dlopen in the standard library, so cgo is the idiomatic bridge; the
// generated functions are called through a single fixed-signature C
// trampoline rather than one per message, since every encode/decode
// pair shares the same (uint8_t*, size_t, void*) shape.
type Library struct {
	handle unsafe.Pointer
	path   string
}

// OpenLibrary dlopen()s the shared object at path with RTLD_NOW, so a
// missing symbol surfaces immediately rather than on first call.
func OpenLibrary(path string) (*Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW)
	if handle == nil {
		return nil, fmt.Errorf("roundtrip: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}
	return &Library{handle: handle, path: path}, nil
}

// Close dlclose()s the library. Safe to call on an already-closed
// Library.
func (l *Library) Close() error {
	if l.handle == nil {
		return nil
	}
	if C.dlclose(l.handle) != 0 {
		return fmt.Errorf("roundtrip: dlclose %s: %s", l.path, C.GoString(C.dlerror()))
	}
	l.handle = nil
	return nil
}

func (l *Library) symbol(name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any pending error before the lookup
	sym := C.dlsym(l.handle, cname)
	if sym == nil {
		if errStr := C.dlerror(); errStr != nil {
			return nil, fmt.Errorf("roundtrip: symbol %q: %s", name, C.GoString(errStr))
		}
		return nil, fmt.Errorf("roundtrip: symbol %q not found", name)
	}
	return sym, nil
}

// CodecFn is a resolved encode or decode C function pointer. Every
// generated protocol function — encode and decode, any message —
// shares the same three-argument shape, so one Go type serves both.
type CodecFn struct {
	fn unsafe.Pointer
}

// Codec resolves name (an encode_fn or decode_fn symbol per
// codegen.MessageSymbols) against the library.
func (l *Library) Codec(name string) (CodecFn, error) {
	sym, err := l.symbol(name)
	if err != nil {
		return CodecFn{}, err
	}
	return CodecFn{fn: sym}, nil
}

// Call invokes the bound C function against a CAN payload buffer and a
// raw struct buffer (the little-endian byte image of the generated
// <msg>_t), returning the C status code (SPECGO_OK and friends).
func (c CodecFn) Call(payload []byte, strct []byte) int {
	var payloadPtr *C.uint8_t
	if len(payload) > 0 {
		payloadPtr = (*C.uint8_t)(unsafe.Pointer(&payload[0]))
	}
	var structPtr unsafe.Pointer
	if len(strct) > 0 {
		structPtr = unsafe.Pointer(&strct[0])
	}
	return int(C.specgo_call_codec(c.fn, payloadPtr, C.size_t(len(payload)), structPtr))
}
