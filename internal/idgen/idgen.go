// Package idgen generates the 24-character identifiers assigned to records
// on the client.
//
// An id is 12 bytes rendered as lowercase hex:
//
//	[0:4]  unix seconds, big endian
//	[4:9]  random value chosen once per Generator
//	[9:12] counter, big endian, starting at a random value
//
// Ids are unique across devices without coordination and roughly sortable by
// creation time. The same layout is used by MongoDB ObjectIDs, so a server
// may store them as native object ids.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"
)

const (
	byteLen = 12
	hexLen  = byteLen * 2
)

// ErrInvalidID is returned by Timestamp for malformed ids.
var ErrInvalidID = errors.New("invalid id")

// Generator produces ids. It is safe for concurrent use.
type Generator struct {
	random  [5]byte
	counter atomic.Uint32
	now     func() time.Time
}

// New seeds a Generator from crypto/rand. If the system source is
// unavailable, the random segment falls back to bytes derived from the
// current time; ids stay well-formed.
func New() *Generator {
	g := &Generator{now: time.Now}

	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		binary.BigEndian.PutUint64(seed[:], uint64(time.Now().UnixNano()))
	}
	copy(g.random[:], seed[:5])
	g.counter.Store(uint32(seed[5])<<16 | uint32(seed[6])<<8 | uint32(seed[7]))

	return g
}

// NewID returns a fresh id. It never fails.
func (g *Generator) NewID() string {
	var b [byteLen]byte

	binary.BigEndian.PutUint32(b[0:4], uint32(g.now().Unix()))
	copy(b[4:9], g.random[:])

	c := g.counter.Add(1) & 0xFFFFFF
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)

	return hex.EncodeToString(b[:])
}

var defaultGenerator = New()

// NewID returns an id from the process-wide Generator.
func NewID() string {
	return defaultGenerator.NewID()
}

// IsValid reports whether id is 24 lowercase hex characters.
func IsValid(id string) bool {
	if len(id) != hexLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Timestamp returns the creation second embedded in id.
func Timestamp(id string) (time.Time, error) {
	if !IsValid(id) {
		return time.Time{}, ErrInvalidID
	}
	b, err := hex.DecodeString(id[:8])
	if err != nil {
		return time.Time{}, ErrInvalidID
	}
	return time.Unix(int64(binary.BigEndian.Uint32(b)), 0).UTC(), nil
}
