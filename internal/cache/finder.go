package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	tempFilePrefix  = ".supercache-"
	tempFilePattern = tempFilePrefix + "*"
)

// Finder 是 Store 依赖的文件访问协作者。所有 name 均相对于 RootPath，
// 使用宿主机的目录分隔符。
type Finder interface {
	// IsReadable 仅对可打开的普通文件返回 true，目录一律视为不可读。
	IsReadable(name string) bool
	IsDirectory(name string) bool
	ListFiles() ([]string, error)
	RootPath() string
	DeleteFile(name string) bool
	// DeleteDirectory 只删除空目录；目录仍有子项时返回 false 而不是报错。
	DeleteDirectory(name string) bool
	DeleteDirectoryRecursive(name string) (bool, error)
	WriteFile(name string, data []byte) (bool, error)
	ReadFile(name string) ([]byte, error)
}

// FSFinder 基于 afero.Fs 实现 Finder，生产环境使用 OsFs，测试可替换为内存文件系统。
type FSFinder struct {
	fsys afero.Fs
	root string
}

// NewOSFinder 以 basePath 为根目录构建磁盘 Finder，整站复用一份实例。
func NewOSFinder(basePath string) (*FSFinder, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	return NewFinder(afero.NewOsFs(), abs)
}

// NewFinder 在任意 afero.Fs 上构建 Finder，根目录不存在时自动创建。
func NewFinder(fsys afero.Fs, root string) (*FSFinder, error) {
	if fsys == nil {
		return nil, errors.New("filesystem required")
	}
	if root == "" {
		return nil, errors.New("storage path required")
	}
	root = filepath.Clean(root)

	exists, err := afero.DirExists(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("stat storage path: %w", err)
	}
	if !exists {
		if err := fsys.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create storage path: %w", err)
		}
	}

	return &FSFinder{fsys: fsys, root: root}, nil
}

func (f *FSFinder) RootPath() string {
	return f.root
}

func (f *FSFinder) IsReadable(name string) bool {
	file, err := f.fsys.Open(f.abs(name))
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (f *FSFinder) IsDirectory(name string) bool {
	exists, err := afero.DirExists(f.fsys, f.abs(name))
	return err == nil && exists
}

// ListFiles 返回根目录下所有正文文件的完整路径，写入中的临时文件会被跳过。
func (f *FSFinder) ListFiles() ([]string, error) {
	var files []string
	err := afero.Walk(f.fsys, f.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), tempFilePrefix) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, &FilesystemError{Op: "list", Path: f.root, Err: err}
	}
	return files, nil
}

func (f *FSFinder) DeleteFile(name string) bool {
	return f.fsys.Remove(f.abs(name)) == nil
}

func (f *FSFinder) DeleteDirectory(name string) bool {
	dir := f.abs(name)
	if dir == f.root {
		return false
	}
	// 部分 afero 实现删除非空目录不会报错，这里先确认为空
	empty, err := afero.IsEmpty(f.fsys, dir)
	if err != nil || !empty {
		return false
	}
	return f.fsys.Remove(dir) == nil
}

// DeleteDirectoryRecursive 删除目录及其全部子项；针对根目录时只清空内容，保留根目录本身。
func (f *FSFinder) DeleteDirectoryRecursive(name string) (bool, error) {
	dir := f.abs(name)
	if dir != f.root {
		if err := f.fsys.RemoveAll(dir); err != nil {
			return false, &FilesystemError{Op: "remove", Path: dir, Err: err}
		}
		return true, nil
	}

	children, err := afero.ReadDir(f.fsys, dir)
	if err != nil {
		return false, &FilesystemError{Op: "readdir", Path: dir, Err: err}
	}
	for _, child := range children {
		childPath := filepath.Join(dir, child.Name())
		if err := f.fsys.RemoveAll(childPath); err != nil {
			return false, &FilesystemError{Op: "remove", Path: childPath, Err: err}
		}
	}
	return true, nil
}

// WriteFile 通过临时文件 + rename 写入正文，失败时清理临时文件。
func (f *FSFinder) WriteFile(name string, data []byte) (bool, error) {
	target := f.abs(name)
	dir := filepath.Dir(target)
	if err := f.fsys.MkdirAll(dir, 0o755); err != nil {
		return false, &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	tempFile, err := afero.TempFile(f.fsys, dir, tempFilePattern)
	if err != nil {
		return false, &FilesystemError{Op: "write", Path: target, Err: err}
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = f.fsys.Remove(tempName)
		return false, &FilesystemError{Op: "write", Path: target, Err: err}
	}

	if err := f.fsys.Rename(tempName, target); err != nil {
		_ = f.fsys.Remove(tempName)
		return false, &FilesystemError{Op: "rename", Path: target, Err: err}
	}
	return true, nil
}

func (f *FSFinder) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(f.fsys, f.abs(name))
}

func (f *FSFinder) abs(name string) string {
	return filepath.Join(f.root, name)
}
