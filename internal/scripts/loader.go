package scripts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/saintfish/chardet"
)

// DefaultMaxBytes caps the decoded size of a script.
const DefaultMaxBytes = 1 << 20

var (
	ErrTooLarge       = errors.New("script exceeds size limit")
	ErrNotText        = errors.New("script is not text")
	ErrEncoding       = errors.New("script is not valid UTF-8")
	ErrUnsupported    = errors.New("unsupported script extension")
	ErrOutsideRoot    = errors.New("script path escapes script root")
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Source is a script ready to evaluate.
type Source struct {
	Name string // resource name reported in stacks and logs
	Path string
	Code string
}

// Loader reads scripts from disk.
type Loader struct {
	root     string
	maxBytes int64
}

// NewLoader creates a loader resolving relative paths against root.
func NewLoader(root string, maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if root == "" {
		root = "."
	}
	return &Loader{root: root, maxBytes: maxBytes}
}

// Root returns the script root directory.
func (l *Loader) Root() string { return l.root }

// Resolve maps a path relative to the root onto the filesystem, refusing
// paths that leave the root, lexically or through a symlink. The file must
// exist.
func (l *Loader) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	full := filepath.Join(l.root, rel)
	if !within(l.root, full) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}

	root, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		return "", fmt.Errorf("script root: %w", err)
	}
	target, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rel, err)
	}
	if !within(root, target) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return full, nil
}

func within(root, path string) bool {
	r, err := filepath.Rel(root, path)
	return err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

// Load reads and validates the script at path. Plain .js/.mjs files are read
// as is; .gz and .zst bundles are decompressed first.
func (l *Loader) Load(path string) (Source, error) {
	decode, name, err := decoderFor(path)
	if err != nil {
		return Source{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decode(f)
	if err != nil {
		return Source{}, fmt.Errorf("decompress %s: %w", path, err)
	}
	defer closeFn()

	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > l.maxBytes {
		return Source{}, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, path, l.maxBytes)
	}

	if err := checkText(data); err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}

	return Source{Name: name, Path: path, Code: string(data)}, nil
}

// Glob returns every file under the root whose slash-separated relative path
// matches pattern, sorted.
func (l *Loader) Glob(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	var (
		mu      sync.Mutex
		matches []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, l.root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return nil
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil || !ok {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			if _, err := l.Resolve(rel); err != nil {
				return nil
			}
		}

		mu.Lock()
		matches = append(matches, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

type decodeFunc func(io.Reader) (io.Reader, func(), error)

func decoderFor(path string) (decodeFunc, string, error) {
	base := filepath.Base(path)
	inner := base
	var decode decodeFunc = func(r io.Reader) (io.Reader, func(), error) {
		return r, func() {}, nil
	}

	switch ext := filepath.Ext(base); ext {
	case ".gz":
		inner = strings.TrimSuffix(base, ext)
		decode = func(r io.Reader) (io.Reader, func(), error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, func() { zr.Close() }, nil
		}
	case ".zst":
		inner = strings.TrimSuffix(base, ext)
		decode = func(r io.Reader) (io.Reader, func(), error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr.Close, nil
		}
	}

	switch filepath.Ext(inner) {
	case ".js", ".mjs", ".cjs":
		return decode, inner, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, base)
}

func checkText(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if bytes.IndexByte(data, 0) >= 0 || !isText(mimetype.Detect(data)) {
		return ErrNotText
	}
	if !utf8.Valid(data) {
		if res, err := chardet.NewTextDetector().DetectBest(data); err == nil && res != nil {
			return fmt.Errorf("%w: detected %s", ErrEncoding, res.Charset)
		}
		return ErrEncoding
	}
	return nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
