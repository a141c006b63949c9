package launcher

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions are the media types a launcher plays when none are
// configured.
var DefaultExtensions = []string{".mp4", ".mkv", ".avi"}

// SelectMedia picks what to open from the extracted files. With openAll every
// file is returned; otherwise the first file whose extension is listed wins.
// Extension matching ignores case.
func SelectMedia(files, extensions []string, openAll bool) []string {
	if openAll {
		return append([]string(nil), files...)
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				return []string{file}
			}
		}
	}
	return nil
}
