package engine

import "strings"

// Extensions that are interchangeable for search purposes. Querying any
// member of a class matches entries carrying any other member.
var equivalenceClasses = [][]string{
	{"jpg", "jpeg", "jfif"},
	{"tif", "tiff"},
	{"htm", "html"},
	{"mpg", "mpeg"},
	{"yml", "yaml"},
	{"md", "markdown"},
	{"mov", "qt"},
	{"aif", "aiff"},
	{"midi", "mid"},
	{"tar.gz", "tgz"},
}

// Coarse media categories for mediatype: queries.
var mediaCategories = map[string][]string{
	"image": {
		"jpg", "jpeg", "jfif", "png", "gif", "webp", "bmp", "tif", "tiff",
		"heic", "heif", "avif", "svg", "ico", "raw", "cr2", "nef",
	},
	"video": {
		"mp4", "mkv", "webm", "mov", "qt", "avi", "wmv", "flv", "mpg",
		"mpeg", "m4v", "3gp", "ts",
	},
	"audio": {
		"mp3", "wav", "flac", "ogg", "m4a", "aac", "opus", "wma", "aif",
		"aiff", "mid", "midi",
	},
	"document": {
		"pdf", "doc", "docx", "odt", "rtf", "epub", "mobi", "ppt", "pptx",
		"odp", "xls", "xlsx", "ods",
	},
	"archive": {
		"zip", "rar", "7z", "tar", "gz", "tgz", "tar.gz", "bz2", "xz",
	},
	"text": {
		"txt", "md", "markdown", "csv", "tsv", "json", "xml", "yml", "yaml",
		"html", "htm", "ini", "toml", "log",
	},
}

var (
	extClass    map[string][]string // ext -> every ext in its class, itself included
	extCategory map[string]string   // ext -> media category
)

func init() {
	extClass = make(map[string][]string)

	for _, class := range equivalenceClasses {
		for _, ext := range class {
			extClass[ext] = class
		}
	}

	extCategory = make(map[string]string)

	for category, exts := range mediaCategories {
		for _, ext := range exts {
			extCategory[ext] = category
		}
	}
}

// normalizeExt strips a leading dot and lowercases, so ".JPG", "JPG" and
// "jpg" are the same extension.
func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// equivalentExts returns every extension that should match a filetype query
// for ext, always including ext itself.
func equivalentExts(ext string) []string {
	normalized := normalizeExt(ext)

	if class, ok := extClass[normalized]; ok {
		return class
	}

	return []string{normalized}
}

// mediaCategoryOf maps an entry suffix to its coarse category.
func mediaCategoryOf(suffix string) (string, bool) {
	category, ok := extCategory[normalizeExt(suffix)]

	return category, ok
}
