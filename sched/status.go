package sched

import "encoding/binary"

// Status-region layout. The identifier record is written once at
// start-up; the progress record is rewritten on every busy/idle
// transition so a polling host can observe completion without
// interrupts.
const (
	// StatusMagic identifies the batch engine in the status region.
	StatusMagic uint32 = 0x42454E47 // "BENG"

	// StatusVersion is the status-record layout version.
	StatusVersion uint32 = 1

	// StatusIdentOffset is the offset of the identifier record.
	StatusIdentOffset = 0

	// StatusProgressOffset is the offset of the progress record.
	StatusProgressOffset = 8

	// StatusIdentBytes is the size of the identifier record.
	StatusIdentBytes = 8

	// StatusProgressBytes is the size of the progress record: the busy
	// bitmap word followed by the completed-batch counter.
	StatusProgressBytes = 16
)

// encodeIdentRecord builds the one-time identifier/version record.
func encodeIdentRecord() []byte {
	data := make([]byte, StatusIdentBytes)
	binary.LittleEndian.PutUint32(data[0:], StatusMagic)
	binary.LittleEndian.PutUint32(data[4:], StatusVersion)

	return data
}

// encodeProgressRecord builds the live progress record.
func encodeProgressRecord(busyBitmap, batchesCompleted uint64) []byte {
	data := make([]byte, StatusProgressBytes)
	binary.LittleEndian.PutUint64(data[0:], busyBitmap)
	binary.LittleEndian.PutUint64(data[8:], batchesCompleted)

	return data
}

// DecodeIdentRecord unpacks the identifier record, for polling readers.
func DecodeIdentRecord(data []byte) (magic, version uint32) {
	return binary.LittleEndian.Uint32(data[0:]),
		binary.LittleEndian.Uint32(data[4:])
}

// DecodeProgressRecord unpacks the progress record, for polling readers.
func DecodeProgressRecord(data []byte) (busyBitmap, batchesCompleted uint64) {
	return binary.LittleEndian.Uint64(data[0:]),
		binary.LittleEndian.Uint64(data[8:])
}
