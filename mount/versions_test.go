package mount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/softwell/mountfs"
)

type versionsSuite struct {
	suite.Suite
	ctx context.Context
	m   *Manager
}

func (s *versionsSuite) SetupTest() {
	s.ctx = context.Background()
	s.m = newTestManager()
	s.Require().NoError(s.m.Configure([]Config{
		{Name: "vault", Protocol: "mem", Params: map[string]any{"versioning": true}},
		{Name: "flat", Protocol: "mem"},
	}))
}

func (s *versionsSuite) TearDownTest() {
	s.NoError(s.m.Close())
}

func (s *versionsSuite) node(address string) *Node {
	n, err := s.m.Node(address)
	s.Require().NoError(err)
	return n
}

// writeHistory writes the contents in order, one version each.
func (s *versionsSuite) writeHistory(address string, contents ...string) *Node {
	n := s.node(address)
	for _, c := range contents {
		s.Require().NoError(n.Write(s.ctx, []byte(c)))
	}
	return n
}

func (s *versionsSuite) TestVersions() {
	n := s.writeHistory("vault:doc.txt", "one", "two")

	records, err := n.Versions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.True(records[1].IsLatest, "oldest to newest")

	_, err = s.node("flat:doc.txt").Versions(s.ctx)
	s.ErrorIs(err, mountfs.ErrNotSupported, "versioning is capability gated")
}

func (s *versionsSuite) TestSnapshots() {
	n := s.writeHistory("vault:doc.txt", "one", "two", "three")

	current, err := n.AtVersion(-1)
	s.Require().NoError(err)
	content, err := current.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("three", content)

	previous, err := n.AtVersion(-2)
	s.Require().NoError(err)
	content, err = previous.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("two", content)

	size, err := previous.Size(s.ctx)
	s.NoError(err)
	s.EqualValues(3, size)

	records, err := n.Versions(s.ctx)
	s.Require().NoError(err)
	byID, err := n.AtVersionID(records[0].ID)
	s.Require().NoError(err)
	content, err = byID.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("one", content)

	asOf, err := n.AsOf(records[1].LastModified)
	s.Require().NoError(err)
	content, err = asOf.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("two", content)
}

func (s *versionsSuite) TestSnapshotIsReadOnly() {
	n := s.writeHistory("vault:doc.txt", "one", "two")

	snap, err := n.AtVersion(-2)
	s.Require().NoError(err)
	s.ErrorIs(snap.Write(s.ctx, []byte("rewrite history")), mountfs.ErrVersionedWrite)
	s.ErrorIs(snap.Delete(s.ctx), mountfs.ErrVersionedWrite)
}

func (s *versionsSuite) TestSelectorsAreExclusive() {
	n := s.writeHistory("vault:doc.txt", "one")

	snap, err := n.AtVersion(-1)
	s.Require().NoError(err)
	_, err = snap.AtVersionID("whatever")
	s.ErrorIs(err, mountfs.ErrVersionSelector)

	_, err = n.AtVersion(0)
	s.Error(err, "indices count back from -1")
}

func (s *versionsSuite) TestSnapshotOutOfRange() {
	n := s.writeHistory("vault:doc.txt", "one")

	snap, err := n.AtVersion(-5)
	s.Require().NoError(err)
	exists, err := snap.Exists(s.ctx)
	s.NoError(err)
	s.False(exists)

	_, err = snap.Read(s.ctx)
	var nferr *mountfs.NotFoundError
	s.ErrorAs(err, &nferr)
}

func (s *versionsSuite) TestRestore() {
	n := s.writeHistory("vault:doc.txt", "good", "bad")

	snap, err := n.AtVersion(-2)
	s.Require().NoError(err)
	s.NoError(snap.Restore(s.ctx, n))

	content, err := n.ReadString(s.ctx)
	s.NoError(err)
	s.Equal("good", content)

	records, err := n.Versions(s.ctx)
	s.NoError(err)
	s.Len(records, 3, "restore appends, history is never rewound")
}

func (s *versionsSuite) TestCompact() {
	// consecutive duplicate at index 1; the trailing repeat of A is not
	// consecutive and must survive
	n := s.writeHistory("vault:doc.txt", "A", "A", "B", "A")

	removed, err := n.CompactVersions(s.ctx, true)
	s.NoError(err)
	s.Equal(1, removed)

	records, err := n.Versions(s.ctx)
	s.NoError(err)
	s.Len(records, 4, "dry run removes nothing")

	removed, err = n.CompactVersions(s.ctx, false)
	s.NoError(err)
	s.Equal(1, removed)

	records, err = n.Versions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	a := mountfs.FingerprintBytes([]byte("A"))
	b := mountfs.FingerprintBytes([]byte("B"))
	s.Equal([]string{a, b, a}, []string{records[0].Fingerprint, records[1].Fingerprint, records[2].Fingerprint})
}

func (s *versionsSuite) TestCompactSingleVersion() {
	n := s.writeHistory("vault:doc.txt", "only")

	removed, err := n.CompactVersions(s.ctx, false)
	s.NoError(err)
	s.Zero(removed, "the last remaining version is never removed")
}

func (s *versionsSuite) TestWriteIfChanged() {
	n := s.node("vault:doc.txt")

	wrote, err := n.WriteIfChanged(s.ctx, []byte("content"))
	s.NoError(err)
	s.True(wrote, "first write always happens")

	wrote, err = n.WriteIfChanged(s.ctx, []byte("content"))
	s.NoError(err)
	s.False(wrote, "identical content is skipped")

	records, err := n.Versions(s.ctx)
	s.NoError(err)
	s.Len(records, 1, "exactly one version was added")

	wrote, err = n.WriteIfChanged(s.ctx, []byte("changed"))
	s.NoError(err)
	s.True(wrote)
}

func TestVersionsSuite(t *testing.T) {
	suite.Run(t, new(versionsSuite))
}
