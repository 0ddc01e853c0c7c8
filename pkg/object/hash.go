package object

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashSize is the length in bytes of a raw object digest.
const HashSize = sha1.Size

// HashBytes computes the SHA-1 of data and returns it as a lowercase
// hex-encoded Hash. Objects are hashed over their exact canonical bytes
// with no type envelope.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// EmptyTreeHash is the hash of a tree with no entries.
var EmptyTreeHash = HashBytes(nil)

// Valid reports whether h is 40 lowercase hex characters.
func (h Hash) Valid() bool {
	if len(h) != 2*HashSize {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short returns the first seven characters of h for display.
func (h Hash) Short() string {
	if len(h) <= 7 {
		return string(h)
	}
	return string(h[:7])
}

// ParseHash validates s and returns it as a Hash.
func ParseHash(s string) (Hash, error) {
	h := Hash(s)
	if !h.Valid() {
		return "", &ObjectError{Op: "parse hash", Hash: h, Err: ErrInvalidHash}
	}
	return h, nil
}

// raw decodes h into its 20 digest bytes.
func (h Hash) raw() ([]byte, error) {
	if !h.Valid() {
		return nil, &ObjectError{Op: "encode hash", Hash: h, Err: ErrInvalidHash}
	}
	return hex.DecodeString(string(h))
}
