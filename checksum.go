package mountfs

import (
	"crypto/md5" //nolint:gosec // fingerprint comparison, not security
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint computes the md5 content fingerprint as a hex string. md5 is
// used so a computed fingerprint compares correctly against the
// metadata-level hash of single-part object-store uploads (the S3 ETag).
func Fingerprint(r io.Reader) (string, error) {
	h := md5.New() //nolint:gosec // fingerprint comparison, not security
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintBytes is Fingerprint over an in-memory buffer.
func FingerprintBytes(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // fingerprint comparison, not security
	return hex.EncodeToString(sum[:])
}

// QuickDigest computes a xxhash64 digest as a prefixed hex string. It is only
// valid to compare two QuickDigest values with each other, never against a
// metadata-level fingerprint; the prefix makes an accidental cross-comparison
// fail instead of silently matching.
func QuickDigest(data []byte) string {
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(data))
	return "xxh64:" + hex.EncodeToString(sum[:])
}
