package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	documentPrefix   = "snpdoc"
	instancePrefix   = "orcinst"
	historyPrefix    = "orchist"
	historySeqPrefix = "orchistn"
)

// makeDocumentKey generates a key for a document by name.
func makeDocumentKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, name))
}

// makeInstanceKey generates a key for an orchestration instance by ID.
func makeInstanceKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", instancePrefix, id))
}

// makeHistoryKey generates a composite key for one history event.
// Format: prefix:instanceID:seq, with seq written in BigEndian order so
// lexicographic iteration yields events in append order.
func makeHistoryKey(instanceID string, seq uint64) []byte {
	prefix := historyPrefix + ":" + instanceID + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeHistoryIterPrefix generates the iteration prefix for an instance's history.
func makeHistoryIterPrefix(instanceID string) []byte {
	return []byte(historyPrefix + ":" + instanceID + ":")
}

// makeHistorySeqKey generates the key holding an instance's next event sequence.
func makeHistorySeqKey(instanceID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", historySeqPrefix, instanceID))
}
