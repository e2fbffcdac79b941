// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// CacheFilesystemPaths stats the "$path" of every node under
// descriptor, relative to workspace, and records the result in the
// node's FilePath or FolderPath. Paths that cannot be stat'ed are left
// unrecorded. Sibling subtrees are probed concurrently; the call
// returns once every probe has finished, or with the context error if
// ctx was cancelled along the way.
func CacheFilesystemPaths(ctx context.Context, workspace string, descriptor *Descriptor) error {
	if descriptor == nil || descriptor.Tree == nil {
		return nil
	}
	cacheNode(ctx, workspace, descriptor.Tree)
	return ctx.Err()
}

func cacheNode(ctx context.Context, workspace string, node *Node) {
	if ctx.Err() != nil {
		return
	}
	if node.Path != "" {
		info, err := os.Stat(filepath.Join(workspace, filepath.FromSlash(node.Path)))
		if err == nil {
			switch {
			case info.Mode().IsRegular():
				node.FilePath = node.Path
			case info.IsDir():
				node.FolderPath = node.Path
			}
		}
	}

	switch len(node.Children) {
	case 0:
		return
	case 1:
		cacheNode(ctx, workspace, node.Children[0].Node)
		return
	}

	var waitGroup sync.WaitGroup
	waitGroup.Add(len(node.Children))
	for _, child := range node.Children {
		go func(child *Node) {
			defer waitGroup.Done()
			cacheNode(ctx, workspace, child)
		}(child.Node)
	}
	waitGroup.Wait()
}

// MergeInto copies the paths recorded by CacheFilesystemPaths onto the
// matching nodes of snapshot. The descriptor's root, under its Name,
// is matched against snapshot as the sole child of a virtual parent,
// so a descriptor whose name differs from the snapshot root's merges
// nothing. Matching continues by child name, first match wins, and
// only into snapshot nodes that exist: no node is ever created.
//
// A matched node takes the recorded folder path, and the recorded file
// path is appended to its file paths unless already present. The
// descriptor is not modified.
func MergeInto(descriptor *Descriptor, snapshot *sourcemap.Node) {
	if descriptor == nil || descriptor.Tree == nil || snapshot == nil {
		return
	}
	if snapshot.Name != descriptor.Name {
		return
	}
	mergeNode(descriptor.Tree, snapshot)
}

func mergeNode(node *Node, snapshot *sourcemap.Node) {
	if node.FolderPath != "" {
		snapshot.FolderPath = node.FolderPath
	}
	if node.FilePath != "" && !snapshot.HasFilePath(node.FilePath) {
		snapshot.FilePaths = append(snapshot.FilePaths, node.FilePath)
	}

	for _, child := range node.Children {
		for _, snapshotChild := range snapshot.Children {
			if snapshotChild.Name == child.Name {
				mergeNode(child.Node, snapshotChild)
				break
			}
		}
	}
}
