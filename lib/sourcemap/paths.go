// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

import (
	"path"
	"strings"
)

// scriptExtensions are the script suffixes the tool maps to instances,
// most specific first so "server.luau" wins over "luau".
var scriptExtensions = []string{
	"server.luau",
	"server.lua",
	"client.luau",
	"client.lua",
	"luau",
	"lua",
}

// binaryExtensions are files that cannot be opened as text. They are
// excluded from primary path selection unless explicitly allowed.
var binaryExtensions = []string{
	".rbxm",
	".rbxl",
	".png",
	".jpg",
	".jpeg",
	".bmp",
	".tga",
	".ogg",
	".mp3",
	".wav",
	".ttf",
	".otf",
}

// ScriptExtension returns the script extension of filePath without the
// leading dot ("server.luau", "lua", ...), or "" if it is not a script.
func ScriptExtension(filePath string) string {
	fileName := path.Base(toSlash(filePath))
	for _, extension := range scriptExtensions {
		if strings.HasSuffix(fileName, "."+extension) {
			return extension
		}
	}
	return ""
}

// IsInitFilePath reports whether filePath is an init script such as
// "init.luau" or "init.server.lua", which stand in for their directory.
func IsInitFilePath(filePath string) bool {
	extension := ScriptExtension(filePath)
	if extension == "" {
		return false
	}
	fileName := path.Base(toSlash(filePath))
	return strings.TrimSuffix(fileName, "."+extension) == "init"
}

// IsProjectFilePath reports whether filePath names a project
// descriptor ("*.project.json").
func IsProjectFilePath(filePath string) bool {
	return strings.HasSuffix(filePath, ".project.json")
}

// IsBinaryFilePath reports whether filePath is a binary asset.
func IsBinaryFilePath(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, extension := range binaryExtensions {
		if strings.HasSuffix(lower, extension) {
			return true
		}
	}
	return false
}

// toSlash converts Windows separators so that workspace-relative paths
// from any platform compare and match the same way.
func toSlash(filePath string) string {
	return strings.ReplaceAll(filePath, "\\", "/")
}
