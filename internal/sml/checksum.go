package sml

import "hash/crc32"

// CRC32C, the Castagnoli variant. The whole body (everything after the
// 8-byte header) is checksummed in chunks so the decoder can yield between
// them; chunking never changes the result.
const checksumChunk = 64 << 10

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func bodyChecksum(body []byte, checkpoint func() error) (uint32, error) {
	var crc uint32
	for len(body) > 0 {
		n := len(body)
		if n > checksumChunk {
			n = checksumChunk
		}
		crc = crc32.Update(crc, castagnoli, body[:n])
		body = body[n:]
		if err := checkpoint(); err != nil {
			return 0, err
		}
	}
	return crc, nil
}
