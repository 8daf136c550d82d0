package mountfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type checksumSuite struct {
	suite.Suite
}

func (s *checksumSuite) TestFingerprint() {
	got, err := Fingerprint(strings.NewReader("hello"))
	s.NoError(err)
	s.Equal("5d41402abc4b2a76b9719d911017c592", got)

	s.Equal(got, FingerprintBytes([]byte("hello")), "reader and byte forms agree")
	s.NotEqual(got, FingerprintBytes([]byte("hello!")))
}

func (s *checksumSuite) TestQuickDigest() {
	a := QuickDigest([]byte("hello"))
	s.True(strings.HasPrefix(a, "xxh64:"))
	s.Equal(a, QuickDigest([]byte("hello")), "stable for equal input")
	s.NotEqual(a, QuickDigest([]byte("world")))
}

func TestChecksumSuite(t *testing.T) {
	suite.Run(t, new(checksumSuite))
}
