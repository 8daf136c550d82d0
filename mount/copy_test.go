package mount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/softwell/mountfs"
)

type copySuite struct {
	suite.Suite
	ctx context.Context
	m   *Manager
}

func (s *copySuite) SetupTest() {
	s.ctx = context.Background()
	s.m = newTestManager()
	s.Require().NoError(s.m.Configure([]Config{
		{Name: "src", Protocol: "mem"},
		{Name: "dst", Protocol: "mem"},
	}))
}

func (s *copySuite) TearDownTest() {
	s.NoError(s.m.Close())
}

func (s *copySuite) node(address string) *Node {
	n, err := s.m.Node(address)
	s.Require().NoError(err)
	return n
}

func (s *copySuite) write(address, content string) *Node {
	n := s.node(address)
	s.Require().NoError(n.Write(s.ctx, []byte(content)))
	return n
}

func (s *copySuite) TestCopyFile() {
	src := s.write("src:a.txt", "payload")
	dst := s.node("dst:b.txt")

	out, err := src.CopyTo(s.ctx, dst)
	s.NoError(err)
	s.Equal("dst:b.txt", out.String())

	content, err := dst.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("payload", content)
}

func (s *copySuite) TestCopyMissing() {
	_, err := s.node("src:ghost.txt").CopyTo(s.ctx, s.node("dst:x.txt"))
	var nferr *mountfs.NotFoundError
	s.ErrorAs(err, &nferr)
}

func (s *copySuite) TestSkipExists() {
	src := s.write("src:a.txt", "new content")
	dst := s.write("dst:a.txt", "old content")

	var skips []string
	_, err := src.CopyTo(s.ctx, dst,
		WithSkip(SkipExists),
		WithOnSkip(func(_ *Node, reason string) { skips = append(skips, reason) }))
	s.NoError(err)

	content, err := dst.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("old content", content, "the destination is left untouched")
	s.Equal([]string{SkipReasonExists}, skips, "on-skip fires exactly once")
}

func (s *copySuite) TestSkipHash() {
	src := s.write("src:a.txt", "same bytes")
	dst := s.write("dst:a.txt", "same bytes")

	skipped := 0
	_, err := src.CopyTo(s.ctx, dst,
		WithSkip(SkipHash),
		WithOnSkip(func(*Node, string) { skipped++ }))
	s.NoError(err)
	s.Equal(1, skipped, "identical content skips")

	// one byte of difference copies
	src2 := s.write("src:b.txt", "same bytes!")
	dst2 := s.write("dst:b.txt", "same bytes?")
	copied := 0
	_, err = src2.CopyTo(s.ctx, dst2,
		WithSkip(SkipHash),
		WithOnFile(func(*Node, *Node) { copied++ }))
	s.NoError(err)
	s.Equal(1, copied)

	content, err := dst2.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("same bytes!", content)
}

func (s *copySuite) TestSkipSize() {
	src := s.write("src:a.txt", "12345")
	dst := s.write("dst:a.txt", "abcde")

	skipped := 0
	_, err := src.CopyTo(s.ctx, dst,
		WithSkip(SkipSize),
		WithOnSkip(func(*Node, string) { skipped++ }))
	s.NoError(err)
	s.Equal(1, skipped, "equal sizes skip even when content differs")
}

func (s *copySuite) TestSkipCustom() {
	src := s.write("src:a.txt", "x")
	dst := s.node("dst:a.txt")

	var reason string
	_, err := src.CopyTo(s.ctx, dst,
		WithSkipFunc(func(context.Context, *Node, *Node) (bool, error) { return true, nil }),
		WithOnSkip(func(_ *Node, r string) { reason = r }))
	s.NoError(err)
	s.Equal(SkipReasonCustom, reason)
}

// A broken comparison must copy, never skip.
func (s *copySuite) TestComparisonErrorCopies() {
	src := s.write("src:a.txt", "payload")
	dst := s.node("dst:a.txt")

	copied := 0
	_, err := src.CopyTo(s.ctx, dst,
		WithSkipFunc(func(context.Context, *Node, *Node) (bool, error) {
			return true, mountfs.Error("comparison backend is down")
		}),
		WithOnFile(func(*Node, *Node) { copied++ }))
	s.NoError(err)
	s.Equal(1, copied)
}

func (s *copySuite) TestUnknownStrategy() {
	_, err := s.write("src:a.txt", "x").CopyTo(s.ctx, s.node("dst:a.txt"), WithSkip("sometimes"))
	s.Error(err)
}

func (s *copySuite) TestCopyTree() {
	s.write("src:tree/a.txt", "A")
	s.write("src:tree/b.log", "B")
	s.write("src:tree/sub/c.txt", "C")

	var progress [][2]int
	copied := 0
	_, err := s.node("src:tree").CopyTo(s.ctx, s.node("dst:tree"),
		WithOnFile(func(*Node, *Node) { copied++ }),
		WithProgress(func(index, total int) { progress = append(progress, [2]int{index, total}) }))
	s.NoError(err)
	s.Equal(3, copied)
	s.Equal([][2]int{{1, 3}, {2, 3}, {3, 3}}, progress, "progress fires once per considered file")

	content, err := s.node("dst:tree/sub/c.txt").ReadString(s.ctx)
	s.NoError(err)
	s.Equal("C", content)
}

func (s *copySuite) TestCopyTreeGlobs() {
	s.write("src:tree/a.txt", "A")
	s.write("src:tree/b.log", "B")
	s.write("src:tree/c.txt", "C")

	var skips []string
	copied := 0
	_, err := s.node("src:tree").CopyTo(s.ctx, s.node("dst:tree"),
		WithInclude("*.txt"),
		WithExclude("c.*"),
		WithOnFile(func(*Node, *Node) { copied++ }),
		WithOnSkip(func(_ *Node, r string) { skips = append(skips, r) }))
	s.NoError(err)
	s.Equal(1, copied, "only a.txt passes both filters")
	s.ElementsMatch([]string{SkipReasonNotIncluded, SkipReasonExcluded}, skips)
}

func (s *copySuite) TestCopyTreeFilterErrorKeepsWalking() {
	s.write("src:tree/a.txt", "A")
	s.write("src:tree/b.txt", "B")

	var skips []string
	copied := 0
	_, err := s.node("src:tree").CopyTo(s.ctx, s.node("dst:tree"),
		WithFilter(func(n *Node) (bool, error) {
			if n.Base() == "a.txt" {
				return false, mountfs.Error("filter exploded")
			}
			return true, nil
		}),
		WithOnFile(func(*Node, *Node) { copied++ }),
		WithOnSkip(func(_ *Node, r string) { skips = append(skips, r) }))
	s.NoError(err)
	s.Equal(1, copied, "the walk continues past the failing file")
	s.Equal([]string{SkipReasonFiltered}, skips)
}

func (s *copySuite) TestCopyEmptyTree() {
	s.Require().NoError(s.node("src:empty").Mkdir(s.ctx))

	_, err := s.node("src:empty").CopyTo(s.ctx, s.node("dst:empty"))
	s.NoError(err)

	isDir, err := s.node("dst:empty").IsDir(s.ctx)
	s.NoError(err)
	s.True(isDir, "an empty source still creates the destination directory")
}

func (s *copySuite) TestCopyIntoDerivedMount() {
	s.Require().NoError(s.m.Configure([]Config{
		{Name: "site", Protocol: "mem"},
		{Name: "docs", Path: "site:documents"},
	}))

	src := s.write("src:report.txt", "quarterly numbers")
	out, err := src.CopyTo(s.ctx, s.node("docs:report.txt"))
	s.Require().NoError(err)
	s.Equal("docs:report.txt", out.String())

	content, err := s.node("docs:report.txt").ReadString(s.ctx)
	s.NoError(err)
	s.Equal("quarterly numbers", content)

	// the copy landed under the parent prefix
	content, err = s.node("site:documents/report.txt").ReadString(s.ctx)
	s.NoError(err)
	s.Equal("quarterly numbers", content)
}

func (s *copySuite) TestCopyAcrossDerivedMounts() {
	s.Require().NoError(s.m.Configure([]Config{
		{Name: "site", Protocol: "mem"},
		{Name: "in", Path: "site:inbox"},
		{Name: "out", Path: "site:outbox"},
	}))

	src := s.write("in:a.txt", "payload")
	_, err := src.CopyTo(s.ctx, s.node("out:a.txt"))
	s.Require().NoError(err)

	content, err := s.node("site:outbox/a.txt").ReadString(s.ctx)
	s.NoError(err)
	s.Equal("payload", content)
}

// Disk mounts keep no metadata-level hash, so the hash strategy compares
// content digests instead.
func (s *copySuite) TestSkipHashOnDiskMounts() {
	s.Require().NoError(s.m.Configure([]Config{
		{Name: "left", Protocol: "os", Path: s.T().TempDir()},
		{Name: "right", Protocol: "os", Path: s.T().TempDir()},
	}))

	src := s.write("left:a.txt", "same bytes")
	dst := s.write("right:a.txt", "same bytes")

	skipped, copied := 0, 0
	_, err := src.CopyTo(s.ctx, dst,
		WithSkip(SkipHash),
		WithOnSkip(func(*Node, string) { skipped++ }),
		WithOnFile(func(*Node, *Node) { copied++ }))
	s.NoError(err)
	s.Equal(1, skipped, "identical content skips")
	s.Equal(0, copied)

	src2 := s.write("left:b.txt", "same bytes!")
	dst2 := s.write("right:b.txt", "same bytes?")
	_, err = src2.CopyTo(s.ctx, dst2,
		WithSkip(SkipHash),
		WithOnFile(func(*Node, *Node) { copied++ }))
	s.NoError(err)
	s.Equal(1, copied)
}

func (s *copySuite) TestCopyIntoReadonly() {
	s.Require().NoError(s.m.Configure([]Config{{Name: "ro", Protocol: "mem", Permissions: "readonly"}}))

	src := s.write("src:a.txt", "x")
	_, err := src.CopyTo(s.ctx, s.node("ro:a.txt"))
	var perr *mountfs.PermissionError
	s.ErrorAs(err, &perr)
}

func TestCopySuite(t *testing.T) {
	suite.Run(t, new(copySuite))
}
