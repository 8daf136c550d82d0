package b64

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/backend/mem"
)

type b64Suite struct {
	suite.Suite
	ctx context.Context
	b   *Backend
}

func (s *b64Suite) SetupTest() {
	s.ctx = context.Background()
	s.b = New()
}

func (s *b64Suite) TestRoundTrip() {
	path, err := s.b.WriteContent(s.ctx, "", []byte("hello world"))
	s.NoError(err)
	s.Equal(base64.URLEncoding.EncodeToString([]byte("hello world")), path)

	data, err := s.b.Read(s.ctx, path)
	s.NoError(err)
	s.Equal("hello world", string(data))

	size, err := s.b.Size(s.ctx, path)
	s.NoError(err)
	s.EqualValues(11, size)

	exists, err := s.b.Exists(s.ctx, path)
	s.NoError(err)
	s.True(exists)
}

func (s *b64Suite) TestMalformedPath() {
	_, err := s.b.Read(s.ctx, "!!! not base64 !!!")
	s.ErrorIs(err, mountfs.ErrNotExist)

	exists, err := s.b.Exists(s.ctx, "!!! not base64 !!!")
	s.NoError(err)
	s.False(exists)
}

func (s *b64Suite) TestPlainWriteUnsupported() {
	s.ErrorIs(s.b.Write(s.ctx, "anything", []byte("x")), mountfs.ErrNotSupported)
	_, err := s.b.List(s.ctx, "")
	s.ErrorIs(err, mountfs.ErrNotSupported)
}

func (s *b64Suite) TestCopyToContentAddressedRewritesPath() {
	src := mem.New(mem.Options{})
	s.NoError(src.Write(s.ctx, "f.txt", []byte("payload")))

	rewritten, err := src.Copy(s.ctx, "f.txt", s.b, "ignored")
	s.NoError(err)
	s.Equal(base64.URLEncoding.EncodeToString([]byte("payload")), rewritten,
		"content-addressed destination reports where the data landed")
}

func (s *b64Suite) TestContentHash() {
	path, err := s.b.WriteContent(s.ctx, "", []byte("abc"))
	s.NoError(err)

	hash, err := s.b.ContentHash(s.ctx, path)
	s.NoError(err)
	s.Equal(mountfs.FingerprintBytes([]byte("abc")), hash)
}

func TestB64Suite(t *testing.T) {
	suite.Run(t, new(b64Suite))
}
