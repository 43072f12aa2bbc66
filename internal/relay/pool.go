package relay

import "sync"

const copyBufferSize = 32 * 1024

var copyBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, copyBufferSize)
		return &b
	},
}

func getBuffer() *[]byte {
	return copyBuffers.Get().(*[]byte)
}

func putBuffer(b *[]byte) {
	copyBuffers.Put(b)
}
