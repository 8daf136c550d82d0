package mount

import (
	"context"
	"time"

	"github.com/softwell/mountfs"
	"github.com/softwell/mountfs/dualmode"
)

// AsyncNode is the suspending view of a Node: every operation returns a
// *dualmode.Task to be awaited. Under a running cooperative loop the work is
// scheduled on it; outside one the first calls complete eagerly and the
// returned task is already done. Once any call has been observed under a
// loop, that operation's adapter hands out genuinely pending tasks from then
// on.
//
// The view shares the node's adapters, cache and policies; mixing Node and
// AsyncNode calls on the same instance is supported.
type AsyncNode struct {
	n *Node
}

// Async returns the suspending view of the node.
func (n *Node) Async() *AsyncNode {
	return &AsyncNode{n: n}
}

// Node returns the underlying blocking node.
func (a *AsyncNode) Node() *Node { return a.n }

func invoke[T any](ctx context.Context, ad *dualmode.Adapter[T], fn dualmode.Func[T]) *dualmode.Task[T] {
	val, task, err := ad.Invoke(ctx, fn)
	if task != nil {
		return task
	}
	return dualmode.Completed(val, err)
}

// Exists resolves to whether the node exists.
func (a *AsyncNode) Exists(ctx context.Context) *dualmode.Task[bool] {
	return invoke(ctx, a.n.ad.exists, a.n.existsFn())
}

// IsFile resolves to whether the node is a file.
func (a *AsyncNode) IsFile(ctx context.Context) *dualmode.Task[bool] {
	return invoke(ctx, a.n.ad.isFile, a.n.isFileFn())
}

// IsDir resolves to whether the node is a directory.
func (a *AsyncNode) IsDir(ctx context.Context) *dualmode.Task[bool] {
	return invoke(ctx, a.n.ad.isDir, a.n.isDirFn())
}

// Size resolves to the file size in bytes.
func (a *AsyncNode) Size(ctx context.Context) *dualmode.Task[int64] {
	return invoke(ctx, a.n.ad.size, a.n.sizeFn())
}

// LastModified resolves to the file modification time.
func (a *AsyncNode) LastModified(ctx context.Context) *dualmode.Task[time.Time] {
	return invoke(ctx, a.n.ad.mtime, a.n.lastModifiedFn())
}

// Hash resolves to the content fingerprint.
func (a *AsyncNode) Hash(ctx context.Context) *dualmode.Task[string] {
	return invoke(ctx, a.n.ad.hash, a.n.hashFn())
}

// Read resolves to the full content.
func (a *AsyncNode) Read(ctx context.Context) *dualmode.Task[[]byte] {
	return invoke(ctx, a.n.ad.read, a.n.readFn())
}

// Write replaces the content.
func (a *AsyncNode) Write(ctx context.Context, data []byte) *dualmode.Task[struct{}] {
	return invoke(ctx, a.n.ad.write, a.n.writeFn(data))
}

// Delete removes the file or directory subtree.
func (a *AsyncNode) Delete(ctx context.Context) *dualmode.Task[struct{}] {
	return invoke(ctx, a.n.ad.del, a.n.deleteFn())
}

// Mkdir creates the directory, parents included.
func (a *AsyncNode) Mkdir(ctx context.Context) *dualmode.Task[struct{}] {
	return invoke(ctx, a.n.ad.mkdir, a.n.mkdirFn())
}

// List resolves to the base names of the entries directly under the node.
func (a *AsyncNode) List(ctx context.Context) *dualmode.Task[[]string] {
	return invoke(ctx, a.n.ad.list, a.n.listFn())
}

// Versions resolves to the stored versions, oldest to newest.
func (a *AsyncNode) Versions(ctx context.Context) *dualmode.Task[[]mountfs.VersionRecord] {
	return invoke(ctx, a.n.ad.versions, a.n.versionsFn())
}
