// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// SPSCIndirect is a SPSC queue for uintptr values.
//
// Indirect queues pass indices or handles instead of full objects. This is
// useful for buffer pools, object pools, or any index-based structure:
//
//	freeList := ordq.NewSPSCIndirect(1024)
//	pool := make([][]byte, freeList.Cap()) // 1023: one cell is reserved
//
//	for i := range pool {
//	    pool[i] = make([]byte, 4096)
//	    freeList.Enqueue(uintptr(i))
//	}
//
//	idx, _ := freeList.Dequeue()
//	buf := pool[idx]
type SPSCIndirect struct {
	_          pad
	head       atomix.Uint64
	_          pad
	cachedTail uint64
	_          pad
	tail       atomix.Uint64
	_          pad
	cachedHead uint64
	_          pad
	buffer     []uintptr
	mask       uint64
}

// NewSPSCIndirect creates a new SPSC queue for uintptr values.
// Capacity rounds up to the next power of 2; one cell is reserved.
func NewSPSCIndirect(capacity int) *SPSCIndirect {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSCIndirect{
		buffer: make([]uintptr, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element (producer only).
func (q *SPSCIndirect) Enqueue(elem uintptr) error {
	tail := q.tail.LoadRelaxed()

	if tail-q.cachedHead >= q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.mask {
			return ErrWouldBlock
		}
	}

	// Bounds check eliminated: tail&mask is always < len(buffer)
	// because mask = len(buffer)-1 and x&mask <= mask
	*(*uintptr)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(q.buffer)), int(tail&q.mask)*ptrSize)) = elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
func (q *SPSCIndirect) Dequeue() (uintptr, error) {
	head := q.head.LoadRelaxed()

	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return 0, ErrWouldBlock
		}
	}

	// Bounds check eliminated: head&mask is always < len(buffer)
	elem := *(*uintptr)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(q.buffer)), int(head&q.mask)*ptrSize))
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the usable queue capacity.
func (q *SPSCIndirect) Cap() int {
	return int(q.mask)
}

// SPSCPtr is a SPSC queue for unsafe.Pointer values.
// Useful for zero-copy pointer passing between goroutines: the producer
// transfers ownership of the pointed-to object to the consumer.
type SPSCPtr struct {
	_          pad
	head       atomix.Uint64
	_          pad
	cachedTail uint64
	_          pad
	tail       atomix.Uint64
	_          pad
	cachedHead uint64
	_          pad
	buffer     []unsafe.Pointer
	mask       uint64
}

// NewSPSCPtr creates a new SPSC queue for unsafe.Pointer values.
// Capacity rounds up to the next power of 2; one cell is reserved.
func NewSPSCPtr(capacity int) *SPSCPtr {
	if capacity < 2 {
		panic("ordq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSCPtr{
		buffer: make([]unsafe.Pointer, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element (producer only).
func (q *SPSCPtr) Enqueue(elem unsafe.Pointer) error {
	tail := q.tail.LoadRelaxed()

	if tail-q.cachedHead >= q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.mask {
			return ErrWouldBlock
		}
	}
	// Pointer arithmetic avoids slice bounds checking in hot path.
	// Equivalent to q.buffer[tail&q.mask] = elem
	*(*unsafe.Pointer)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(q.buffer)), int(tail&q.mask)*ptrSize)) = elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
func (q *SPSCPtr) Dequeue() (unsafe.Pointer, error) {
	head := q.head.LoadRelaxed()

	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			return nil, ErrWouldBlock
		}
	}
	// Pointer arithmetic avoids slice bounds checking in hot path.
	// Equivalent to elem := q.buffer[head&q.mask]
	elem := *(*unsafe.Pointer)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(q.buffer)), int(head&q.mask)*ptrSize))
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the usable queue capacity.
func (q *SPSCPtr) Cap() int {
	return int(q.mask)
}
