package os

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/softwell/mountfs"
)

type osSuite struct {
	suite.Suite
	ctx context.Context
	b   *Backend
}

func (s *osSuite) SetupTest() {
	s.ctx = context.Background()
	s.b = New(Options{Path: s.T().TempDir()})
}

func (s *osSuite) TestName() {
	s.Equal("os", s.b.Name())
	s.False(s.b.Capabilities().Has(mountfs.CapabilityVersioning))
}

func (s *osSuite) TestWriteRead() {
	s.NoError(s.b.Write(s.ctx, "docs/readme.md", []byte("# hi")))

	data, err := s.b.Read(s.ctx, "docs/readme.md")
	s.NoError(err)
	s.Equal("# hi", string(data))

	isFile, err := s.b.IsFile(s.ctx, "docs/readme.md")
	s.NoError(err)
	s.True(isFile)

	isDir, err := s.b.IsDir(s.ctx, "docs")
	s.NoError(err)
	s.True(isDir, "write created the parent directory")

	size, err := s.b.Size(s.ctx, "docs/readme.md")
	s.NoError(err)
	s.EqualValues(4, size)
}

func (s *osSuite) TestMissing() {
	_, err := s.b.Read(s.ctx, "nope.txt")
	s.ErrorIs(err, mountfs.ErrNotExist)

	exists, err := s.b.Exists(s.ctx, "nope.txt")
	s.NoError(err)
	s.False(exists)

	_, err = s.b.List(s.ctx, "nope")
	s.ErrorIs(err, mountfs.ErrNotExist)
}

func (s *osSuite) TestList() {
	s.NoError(s.b.Write(s.ctx, "d/b.txt", []byte("b")))
	s.NoError(s.b.Write(s.ctx, "d/a.txt", []byte("a")))
	s.NoError(s.b.Mkdir(s.ctx, "d/sub", true, true))

	names, err := s.b.List(s.ctx, "d")
	s.NoError(err)
	s.Equal([]string{"a.txt", "b.txt", "sub"}, names)
}

func (s *osSuite) TestDelete() {
	s.NoError(s.b.Write(s.ctx, "d/a.txt", []byte("a")))

	s.ErrorIs(s.b.Delete(s.ctx, "d", false), mountfs.ErrNotEmpty)
	s.NoError(s.b.Delete(s.ctx, "d", true))

	// deleting a missing path is a no-op
	s.NoError(s.b.Delete(s.ctx, "d", true))
}

func (s *osSuite) TestMkdir() {
	s.ErrorIs(s.b.Mkdir(s.ctx, "p/q", false, false), mountfs.ErrNotExist)
	s.NoError(s.b.Mkdir(s.ctx, "p/q", true, false))
	s.ErrorIs(s.b.Mkdir(s.ctx, "p/q", false, false), mountfs.ErrExist)
	s.NoError(s.b.Mkdir(s.ctx, "p/q", false, true))
}

func (s *osSuite) TestRename() {
	s.NoError(s.b.Write(s.ctx, "old/f.txt", []byte("x")))
	s.NoError(s.b.Rename(s.ctx, "old/f.txt", "new/g.txt"))

	data, err := s.b.Read(s.ctx, "new/g.txt")
	s.NoError(err)
	s.Equal("x", string(data))

	exists, err := s.b.Exists(s.ctx, "old/f.txt")
	s.NoError(err)
	s.False(exists)

	s.ErrorIs(s.b.Rename(s.ctx, "missing.txt", "x.txt"), mountfs.ErrNotExist)
}

func (s *osSuite) TestCrossBackendCopy() {
	s.NoError(s.b.Write(s.ctx, "src.txt", []byte("payload")))

	other := New(Options{Path: s.T().TempDir()})
	rewritten, err := s.b.Copy(s.ctx, "src.txt", other, "dst.txt")
	s.NoError(err)
	s.Empty(rewritten, "disk destinations keep their path")

	data, err := other.Read(s.ctx, "dst.txt")
	s.NoError(err)
	s.Equal("payload", string(data))
}

func TestOSSuite(t *testing.T) {
	suite.Run(t, new(osSuite))
}
