package mount

import (
	"context"
	"errors"
	"time"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/dualmode"
	"github.com/softwell/mountfs/utils"
)

func (n *Node) versionsFn() dualmode.Func[[]mountfs.VersionRecord] {
	return func(ctx context.Context) ([]mountfs.VersionRecord, error) {
		if !n.rec.Capabilities.Has(mountfs.CapabilityVersioning) {
			return nil, mountfs.ErrNotSupported
		}
		v, ok := n.rec.Backend.(mountfs.Versioner)
		if !ok {
			return nil, mountfs.ErrNotSupported
		}
		records, err := v.Versions(ctx, n.addr.Path)
		if err != nil {
			return nil, n.notFound(err)
		}
		return records, nil
	}
}

// Versions lists the stored versions of the file, oldest to newest.
func (n *Node) Versions(ctx context.Context) ([]mountfs.VersionRecord, error) {
	return n.ad.versions.Block(ctx, n.versionsFn())
}

func (n *Node) snapshot() *Node {
	s := n.clone(n.addr)
	s.verIdx = n.verIdx
	s.verID = n.verID
	s.asOf = n.asOf
	return s
}

// AtVersion returns a read-only snapshot node bound to the version at the
// given negative index: -1 is the current version, -2 the one before it.
func (n *Node) AtVersion(index int) (*Node, error) {
	if n.isSnapshot() {
		return nil, mountfs.ErrVersionSelector
	}
	if index >= 0 {
		return nil, mountfs.Error("version index must be negative, -1 selects the current version")
	}
	s := n.snapshot()
	s.verIdx = utils.Ptr(index)
	return s, nil
}

// AtVersionID returns a read-only snapshot node bound to one version id.
func (n *Node) AtVersionID(id string) (*Node, error) {
	if n.isSnapshot() {
		return nil, mountfs.ErrVersionSelector
	}
	if id == "" {
		return nil, mountfs.Error("version id must not be empty")
	}
	s := n.snapshot()
	s.verID = id
	return s, nil
}

// AsOf returns a read-only snapshot node bound to the newest version written
// at or before t.
func (n *Node) AsOf(t time.Time) (*Node, error) {
	if n.isSnapshot() {
		return nil, mountfs.ErrVersionSelector
	}
	s := n.snapshot()
	s.asOf = utils.Ptr(t)
	return s, nil
}

// resolveVersion maps the node's selector onto a concrete stored version.
// An out-of-range index, unknown id or too-early as-of time resolves to
// ErrNotExist.
func (n *Node) resolveVersion(ctx context.Context) (mountfs.VersionRecord, error) {
	records, err := n.versionsFn()(ctx)
	if err != nil {
		return mountfs.VersionRecord{}, err
	}
	switch {
	case n.verIdx != nil:
		i := len(records) + *n.verIdx
		if i < 0 || i >= len(records) {
			return mountfs.VersionRecord{}, mountfs.ErrNotExist
		}
		return records[i], nil
	case n.verID != "":
		for _, rec := range records {
			if rec.ID == n.verID {
				return rec, nil
			}
		}
		return mountfs.VersionRecord{}, mountfs.ErrNotExist
	case n.asOf != nil:
		for i := len(records) - 1; i >= 0; i-- {
			if !records[i].LastModified.After(*n.asOf) {
				return records[i], nil
			}
		}
		return mountfs.VersionRecord{}, mountfs.ErrNotExist
	}
	return mountfs.VersionRecord{}, mountfs.ErrVersionSelector
}

// Restore writes the snapshot's content through live so it becomes the
// current version. History is never rewound; restoring appends.
func (n *Node) Restore(ctx context.Context, live *Node) error {
	if !n.isSnapshot() {
		return mountfs.Error("restore requires a version snapshot node")
	}
	data, err := n.Read(ctx)
	if err != nil {
		return err
	}
	return live.Write(ctx, data)
}

// CompactVersions removes stored versions whose fingerprint equals their
// immediate predecessor's, oldest to newest, and returns how many were (or
// with dryRun, would be) removed. Non-consecutive repeats survive, and the
// last remaining version is never removed.
func (n *Node) CompactVersions(ctx context.Context, dryRun bool) (int, error) {
	if err := n.checkDelete("compact versions"); err != nil {
		return 0, err
	}
	records, err := n.Versions(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := n.rec.Backend.(mountfs.Versioner)
	if !ok {
		return 0, mountfs.ErrNotSupported
	}

	removed := 0
	remaining := len(records)
	for i := 1; i < len(records); i++ {
		if records[i].Fingerprint == "" || records[i].Fingerprint != records[i-1].Fingerprint {
			continue
		}
		if remaining == 1 {
			break
		}
		if !dryRun {
			if err := v.DeleteVersion(ctx, n.addr.Path, records[i].ID); err != nil {
				return removed, err
			}
		}
		removed++
		remaining--
	}
	if removed > 0 {
		n.Refresh()
	}
	return removed, nil
}

// WriteIfChanged writes data only when its fingerprint differs from the
// current content's, reporting whether a write happened. A missing file
// always writes.
func (n *Node) WriteIfChanged(ctx context.Context, data []byte) (bool, error) {
	if err := n.checkWrite("write"); err != nil {
		return false, err
	}
	current, err := n.Hash(ctx)
	if err != nil && !errors.Is(err, mountfs.ErrNotExist) {
		return false, err
	}
	if err == nil && current == mountfs.FingerprintBytes(data) {
		return false, nil
	}
	if err := n.Write(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}
