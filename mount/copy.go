package mount

import (
	"context"
	"errors"

	"github.com/gobwas/glob"

	"github.com/softwell/mountfs"
)

// SkipStrategy names a built-in rule for leaving destination files untouched
// during a copy.
type SkipStrategy string

const (
	// SkipNever always copies.
	SkipNever SkipStrategy = "never"

	// SkipExists skips when the destination exists at all.
	SkipExists SkipStrategy = "exists"

	// SkipSize skips when source and destination sizes match.
	SkipSize SkipStrategy = "size"

	// SkipHash skips when source and destination fingerprints match.
	SkipHash SkipStrategy = "hash"
)

// Skip reasons reported to the on-skip callback.
const (
	SkipReasonExists      = "exists"
	SkipReasonSize        = "size"
	SkipReasonHash        = "hash"
	SkipReasonCustom      = "custom"
	SkipReasonNotIncluded = "not included"
	SkipReasonExcluded    = "excluded"
	SkipReasonFiltered    = "filtered"
)

// SkipFunc decides whether to skip one file. True skips with reason
// "custom".
type SkipFunc func(ctx context.Context, src, dst *Node) (bool, error)

// FilterFunc decides whether a source file takes part in a directory copy.
type FilterFunc func(src *Node) (bool, error)

// FileFunc observes one completed file copy.
type FileFunc func(src, dst *Node)

// SkipNoticeFunc observes one skipped file and why.
type SkipNoticeFunc func(src *Node, reason string)

// ProgressFunc observes walk progress as (considered, total) over the files
// enumerated up front.
type ProgressFunc func(index, total int)

type copyOptions struct {
	strategy SkipStrategy
	skipFunc SkipFunc
	include  []glob.Glob
	exclude  []glob.Glob
	filter   FilterFunc
	onFile   FileFunc
	onSkip   SkipNoticeFunc
	progress ProgressFunc
}

// CopyOption configures a copy.
type CopyOption func(*copyOptions) error

// WithSkip selects a built-in skip strategy.
func WithSkip(s SkipStrategy) CopyOption {
	return func(o *copyOptions) error {
		switch s {
		case SkipNever, SkipExists, SkipSize, SkipHash:
			o.strategy = s
			return nil
		}
		return mountfs.Error("unknown skip strategy " + `"` + string(s) + `"`)
	}
}

// WithSkipFunc installs a custom skip decision, applied after the built-in
// strategy.
func WithSkipFunc(fn SkipFunc) CopyOption {
	return func(o *copyOptions) error {
		o.skipFunc = fn
		return nil
	}
}

// WithInclude restricts a directory copy to files whose base name matches at
// least one pattern.
func WithInclude(patterns ...string) CopyOption {
	return func(o *copyOptions) error {
		globs, err := compileGlobs(patterns)
		if err != nil {
			return err
		}
		o.include = append(o.include, globs...)
		return nil
	}
}

// WithExclude drops files whose base name matches any pattern from a
// directory copy.
func WithExclude(patterns ...string) CopyOption {
	return func(o *copyOptions) error {
		globs, err := compileGlobs(patterns)
		if err != nil {
			return err
		}
		o.exclude = append(o.exclude, globs...)
		return nil
	}
}

// WithFilter installs a per-file predicate for directory copies. A predicate
// error skips the file and the walk continues.
func WithFilter(fn FilterFunc) CopyOption {
	return func(o *copyOptions) error {
		o.filter = fn
		return nil
	}
}

// WithOnFile installs a callback fired after each copied file.
func WithOnFile(fn FileFunc) CopyOption {
	return func(o *copyOptions) error {
		o.onFile = fn
		return nil
	}
}

// WithOnSkip installs a callback fired for each skipped file.
func WithOnSkip(fn SkipNoticeFunc) CopyOption {
	return func(o *copyOptions) error {
		o.onSkip = fn
		return nil
	}
}

// WithProgress installs a progress callback, fired once per considered file
// after its copy-or-skip decision.
func WithProgress(fn ProgressFunc) CopyOption {
	return func(o *copyOptions) error {
		o.progress = fn
		return nil
	}
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, &mountfs.PathError{Address: p, Reason: "invalid glob pattern: " + err.Error()}
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// CopyTo copies the node (file or directory subtree) to dst and returns the
// destination node. Content-addressed destinations rebind the returned node
// to the rewritten path.
func (n *Node) CopyTo(ctx context.Context, dst *Node, opts ...CopyOption) (*Node, error) {
	o := copyOptions{strategy: SkipNever}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	isDir, err := n.IsDir(ctx)
	if err != nil {
		return nil, err
	}
	if isDir {
		if err := n.copyTree(ctx, dst, &o); err != nil {
			return nil, err
		}
		return dst, nil
	}

	isFile, err := n.IsFile(ctx)
	if err != nil {
		return nil, err
	}
	if !isFile {
		return nil, &mountfs.NotFoundError{Address: n.String()}
	}
	return n.copyFile(ctx, dst, &o)
}

// copyFile copies one file, honoring the skip strategy and custom skip
// decision. A skipped file returns the unchanged destination node.
func (n *Node) copyFile(ctx context.Context, dst *Node, o *copyOptions) (*Node, error) {
	if err := dst.checkWrite("copy"); err != nil {
		return nil, err
	}

	if reason := n.shouldSkip(ctx, dst, o); reason != "" {
		if o.onSkip != nil {
			o.onSkip(n, reason)
		}
		return dst, nil
	}

	if err := dst.ensureParent(ctx); err != nil {
		return nil, err
	}
	rewritten, err := n.rec.Backend.Copy(ctx, n.addr.Path, dst.rec.Backend, dst.addr.Path)
	if err != nil {
		return nil, n.notFound(err)
	}
	dst.Refresh()
	if rewritten != "" {
		dst.addr.Path = rewritten
	}
	if o.onFile != nil {
		o.onFile(n, dst)
	}
	return dst, nil
}

// shouldSkip evaluates the built-in strategy then the custom decision and
// returns the skip reason, or "" to copy. A failed comparison never skips:
// copying twice is recoverable, trusting a broken comparison is not.
func (n *Node) shouldSkip(ctx context.Context, dst *Node, o *copyOptions) string {
	switch o.strategy {
	case SkipExists:
		if exists, err := dst.Exists(ctx); err == nil && exists {
			return SkipReasonExists
		}
	case SkipSize:
		srcSize, err := n.Size(ctx)
		if err == nil {
			if dstSize, err := dst.Size(ctx); err == nil && srcSize == dstSize {
				return SkipReasonSize
			}
		}
	case SkipHash:
		if n.rec.Capabilities.Has(mountfs.CapabilityHash) || dst.rec.Capabilities.Has(mountfs.CapabilityHash) {
			srcHash, err := n.Hash(ctx)
			if err == nil {
				if dstHash, err := dst.Hash(ctx); err == nil && srcHash == dstHash {
					return SkipReasonHash
				}
			}
		} else if srcData, err := n.Read(ctx); err == nil {
			// neither side keeps a metadata-level hash, so both sides
			// would be full reads anyway; compare the cheaper digest
			if dstData, err := dst.Read(ctx); err == nil &&
				mountfs.QuickDigest(srcData) == mountfs.QuickDigest(dstData) {
				return SkipReasonHash
			}
		}
	}
	if o.skipFunc != nil {
		if skip, err := o.skipFunc(ctx, n, dst); err == nil && skip {
			return SkipReasonCustom
		}
	}
	return ""
}

type copyItem struct {
	src *Node
	rel []string
}

// copyTree copies a directory subtree depth-first. Files are enumerated up
// front so the progress callback sees a stable total; the destination
// directory is created even when nothing matches.
func (n *Node) copyTree(ctx context.Context, dst *Node, o *copyOptions) error {
	if err := dst.checkWrite("copy"); err != nil {
		return err
	}
	if dst.rec.Capabilities.Has(mountfs.CapabilityMkdir) {
		if err := dst.Mkdir(ctx); err != nil && !errors.Is(err, mountfs.ErrNotSupported) {
			return err
		}
	}

	var items []copyItem
	if err := n.enumerate(ctx, nil, &items); err != nil {
		return err
	}

	total := len(items)
	for i, item := range items {
		if err := n.copyTreeItem(ctx, dst, item, o); err != nil {
			return err
		}
		if o.progress != nil {
			o.progress(i+1, total)
		}
	}
	return nil
}

func (n *Node) copyTreeItem(ctx context.Context, dst *Node, item copyItem, o *copyOptions) error {
	name := item.src.Base()
	if len(o.include) > 0 && !matchAny(o.include, name) {
		if o.onSkip != nil {
			o.onSkip(item.src, SkipReasonNotIncluded)
		}
		return nil
	}
	if matchAny(o.exclude, name) {
		if o.onSkip != nil {
			o.onSkip(item.src, SkipReasonExcluded)
		}
		return nil
	}
	if o.filter != nil {
		keep, err := o.filter(item.src)
		if err != nil || !keep {
			if o.onSkip != nil {
				o.onSkip(item.src, SkipReasonFiltered)
			}
			return nil
		}
	}
	fileDst, err := dst.Child(item.rel...)
	if err != nil {
		return err
	}
	_, err = item.src.copyFile(ctx, fileDst, o)
	return err
}

// enumerate walks the subtree depth-first collecting file nodes with their
// paths relative to n.
func (n *Node) enumerate(ctx context.Context, rel []string, items *[]copyItem) error {
	base := n
	if len(rel) > 0 {
		var err error
		base, err = n.Child(rel...)
		if err != nil {
			return err
		}
	}
	names, err := base.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		child, err := base.Child(name)
		if err != nil {
			return err
		}
		childRel := append(append([]string{}, rel...), name)
		isDir, err := child.IsDir(ctx)
		if err != nil {
			return err
		}
		if isDir {
			if err := n.enumerate(ctx, childRel, items); err != nil {
				return err
			}
			continue
		}
		*items = append(*items, copyItem{src: child, rel: childRel})
	}
	return nil
}
