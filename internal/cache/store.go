package cache

import (
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
)

// traversalPattern 匹配前后都有分隔符的 ".."，与宿主机使用 / 还是 \ 无关。
var traversalPattern = regexp.MustCompile(`[\\/]\.\.[\\/]`)

// Store 负责缓存条目的全部生命周期。磁盘布局遵循：
//
//	<StoragePath>/<path>/index.html    # HTML 类正文
//	<StoragePath>/<path>/index.js      # 脚本/JSON 正文
//	<StoragePath>/<path>/index.bin     # 其他二进制正文
//
// Store 是条目的唯一写入/删除方，不做任何进程内加锁，同一路径并发写入以最后一次为准。
type Store struct {
	finder Finder
}

// NewStore 基于 Finder 构建 Store。
func NewStore(finder Finder) *Store {
	return &Store{finder: finder}
}

// Exists 判断 path 对应的正文文件是否可读，条目不存在时仅返回 false。
// 同名目录（例如 /foo/index.html 条目留下的目录）不算正文。
func (s *Store) Exists(path string) bool {
	path = normalizePath(path)
	if isTraversal(path) {
		return false
	}
	_, ok := s.lookup(path)
	return ok
}

// List 列出所有已缓存的路径。parent 非空时只保留以其开头的条目；
// 这是纯字符串前缀匹配，/sand 同样会匹配 /sandbox。
func (s *Store) List(parent string) ([]string, error) {
	files, err := s.finder.ListFiles()
	if err != nil {
		return nil, err
	}

	root := s.finder.RootPath()
	seen := make(map[string]struct{}, len(files))
	entries := make([]string, 0, len(files))
	for _, file := range files {
		if _, ok := contentTypeOf(filepath.Base(file)); !ok {
			continue
		}
		entry := entryPath(root, filepath.Dir(file))
		if parent != "" && !strings.HasPrefix(entry, parent) {
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete 删除单个条目，条目不存在时返回 false。
func (s *Store) Delete(path string) bool {
	path = normalizePath(path)
	if isTraversal(path) {
		return false
	}

	deleted := false
	for _, t := range contentTypes {
		file := contentFile(path, t)
		if s.finder.IsReadable(file) && s.finder.DeleteFile(file) {
			deleted = true
		}
	}
	if !deleted {
		return false
	}

	// 若 /sandbox/test 仍存在，/sandbox 目录无法删除，忽略即可
	s.finder.DeleteDirectory(entryDir(path))
	return true
}

// DeleteRecursive 删除 path 及其下所有条目。删除 /sandbox 会同时移除
// /sandbox/info、/sandbox/test 等。目录不存在时返回 false，I/O 失败返回 FilesystemError。
func (s *Store) DeleteRecursive(path string) (bool, error) {
	path = normalizePath(path)
	if isTraversal(path) {
		return false, nil
	}

	dir := entryDir(path)
	if !s.finder.IsDirectory(dir) {
		return false, nil
	}
	return s.finder.DeleteDirectoryRecursive(dir)
}

// Clear 清空所有缓存条目，等价于 DeleteRecursive("/")。
func (s *Store) Clear() (bool, error) {
	return s.DeleteRecursive("/")
}

// Save 以 HTML 分类写入条目正文，已存在则覆盖。包含 ".." 段的路径返回
// SecurityViolationError，且不会触发任何写入。
func (s *Store) Save(path string, content []byte) (bool, error) {
	return s.save(path, content, ContentHTML)
}

// SaveEntry 写入 Entry，内容分类决定正文文件名。
func (s *Store) SaveEntry(entry Entry) (bool, error) {
	return s.save(entry.Path, entry.Content, entry.Type)
}

func (s *Store) save(path string, content []byte, t ContentType) (bool, error) {
	path = normalizePath(path)
	if isTraversal(path) {
		return false, &SecurityViolationError{Path: path}
	}
	ok, err := s.finder.WriteFile(contentFile(path, t), content)
	if err != nil || !ok {
		return ok, err
	}

	// 分类变化时移除旧分类的正文，保证目录下只有一个正文文件
	for _, other := range contentTypes {
		if other == t {
			continue
		}
		if file := contentFile(path, other); s.finder.IsReadable(file) {
			s.finder.DeleteFile(file)
		}
	}
	return true, nil
}

// Read 返回条目正文，不存在时返回 ErrNotFound。
func (s *Store) Read(path string) ([]byte, error) {
	entry, err := s.ReadEntry(path)
	if err != nil {
		return nil, err
	}
	return entry.Content, nil
}

// ReadEntry 返回条目正文及写入时记录的内容分类，不存在时返回 ErrNotFound。
func (s *Store) ReadEntry(path string) (Entry, error) {
	path = normalizePath(path)
	if isTraversal(path) {
		return Entry{}, ErrNotFound
	}

	t, ok := s.lookup(path)
	if !ok {
		return Entry{}, ErrNotFound
	}
	data, err := s.finder.ReadFile(contentFile(path, t))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, &FilesystemError{Op: "read", Path: path, Err: err}
	}
	return Entry{Path: path, Content: data, Type: t}, nil
}

// lookup 按固定顺序寻找条目的正文文件，返回其分类。
func (s *Store) lookup(path string) (ContentType, bool) {
	for _, t := range contentTypes {
		if s.finder.IsReadable(contentFile(path, t)) {
			return t, true
		}
	}
	return ContentBinary, false
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// isTraversal 在末尾补上分隔符后再匹配，因为实际写入位置是 <path>/index.html，结尾的 /.. 同样危险。
func isTraversal(path string) bool {
	return traversalPattern.MatchString(path + "/")
}

func entryDir(path string) string {
	return filepath.FromSlash(path)
}

func contentFile(path string, t ContentType) string {
	return filepath.Join(filepath.FromSlash(path), t.FileName())
}

func entryPath(root, dir string) string {
	rel := strings.TrimPrefix(dir, root)
	if rel == "" {
		return "/"
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}
