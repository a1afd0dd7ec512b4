package tags

// FileMeta carries the media attributes the dimension tagger reads.
type FileMeta struct {
	Width    int
	Height   int
	FileSize int64
}

const hugeFileSize = 10 * 1024 * 1024

var autoTagNames = map[string]bool{
	"incredibly_absurdres": true,
	"absurdres":            true,
	"highres":              true,
	"lowres":               true,
	"huge_filesize":        true,
	"wide_image":           true,
	"tall_image":           true,
	"long_image":           true,
}

// StripAutoTags removes every dimension-derived tag so stale ones never
// survive a metadata change.
func StripAutoTags(names []string) []string {
	kept := names[:0]
	for _, name := range names {
		if !autoTagNames[name] {
			kept = append(kept, name)
		}
	}
	return kept
}

// AutoTags derives the dimension tags for the given media attributes.
func AutoTags(meta FileMeta) []string {
	var derived []string
	w, h := meta.Width, meta.Height

	if w >= 10000 || h >= 10000 {
		derived = append(derived, "incredibly_absurdres")
	}
	if w >= 3200 || h >= 2400 {
		derived = append(derived, "absurdres")
	}
	if w >= 1600 || h >= 1200 {
		derived = append(derived, "highres")
	}
	if w <= 500 && h <= 500 && (w > 0 || h > 0) {
		derived = append(derived, "lowres")
	}
	if meta.FileSize >= hugeFileSize {
		derived = append(derived, "huge_filesize")
	}
	if h > 0 && w >= 1024 && float64(w)/float64(h) >= 4 {
		derived = append(derived, "wide_image", "long_image")
	}
	if w > 0 && h >= 1024 && float64(h)/float64(w) >= 4 {
		derived = append(derived, "tall_image", "long_image")
	}
	return derived
}
