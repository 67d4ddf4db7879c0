package linktree

import (
	"maps"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
)

// mediaReason matches the reason recorded by the crawler for media links.
var mediaReason = regexp.MustCompile(`(?i)media url \((image|video|document)\)`)

var (
	imageExtensions = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true, "svg": true,
		"bmp": true, "ico": true, "tif": true, "tiff": true, "avif": true, "heic": true,
	}
	videoExtensions = map[string]bool{
		"mp4": true, "webm": true, "mov": true, "avi": true, "mkv": true, "flv": true,
		"wmv": true, "m4v": true, "ogv": true, "mpeg": true, "mpg": true, "3gp": true,
	}
	documentExtensions = map[string]bool{
		"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "ppt": true,
		"pptx": true, "odt": true, "ods": true, "odp": true, "rtf": true, "txt": true,
		"csv": true, "zip": true, "epub": true,
	}
)

type skipCategory int

const (
	skipOther skipCategory = iota
	skipInternal
	skipExternal
	skipImage
	skipVideo
	skipDocument
)

// CategorizeSkippedURLs sorts skipped URLs (url → reason) into internal,
// external, media and other buckets relative to rootURL. URLs that already
// appear as error-bearing nodes among existingChildren are left out. An
// unparsable rootURL makes every web URL external. Output within each
// bucket is ordered by URL.
func CategorizeSkippedURLs(skipped map[string]string, rootURL string, existingChildren []*Tree) *SkippedLinks {
	errored := make(map[string]bool)
	for _, child := range existingChildren {
		Walk(child, func(node *Tree) bool {
			if node.Error != "" {
				errored[node.URL] = true
			}
			return true
		})
	}

	rootHost := hostname(rootURL)

	result := &SkippedLinks{}
	media := &SkippedMedia{}
	for _, rawURL := range slices.Sorted(maps.Keys(skipped)) {
		if errored[rawURL] {
			continue
		}
		entry := SkippedURL{URL: rawURL, Reason: skipped[rawURL]}

		switch classifySkipped(rawURL, entry.Reason, rootHost) {
		case skipImage:
			media.Images = append(media.Images, entry)
		case skipVideo:
			media.Videos = append(media.Videos, entry)
		case skipDocument:
			media.Documents = append(media.Documents, entry)
		case skipInternal:
			result.Internal = append(result.Internal, entry)
		case skipExternal:
			result.External = append(result.External, entry)
		default:
			result.Other = append(result.Other, entry)
		}
	}

	if !media.IsEmpty() {
		result.Media = media
	}
	return result
}

func classifySkipped(rawURL, reason, rootHost string) skipCategory {
	if m := mediaReason.FindStringSubmatch(reason); m != nil {
		switch strings.ToLower(m[1]) {
		case "image":
			return skipImage
		case "video":
			return skipVideo
		default:
			return skipDocument
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		if kind, ok := mediaFromPath(strings.ToLower(rawURL)); ok {
			return kind
		}
		return skipOther
	}

	if kind, ok := mediaFromPath(strings.ToLower(parsed.Path)); ok {
		return kind
	}

	if rootHost == "" {
		return skipExternal
	}
	host := strings.ToLower(parsed.Hostname())
	if host == rootHost || strings.HasSuffix(host, "."+rootHost) {
		return skipInternal
	}
	return skipExternal
}

// mediaFromPath guesses a media category from a lowercased URL path.
func mediaFromPath(p string) (skipCategory, bool) {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	switch {
	case imageExtensions[ext]:
		return skipImage, true
	case videoExtensions[ext]:
		return skipVideo, true
	case documentExtensions[ext]:
		return skipDocument, true
	case strings.Contains(p, "/image"), strings.Contains(p, "/img/"):
		return skipImage, true
	}
	return skipOther, false
}
