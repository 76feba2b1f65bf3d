package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
)

var errFSDisabled = errors.New("file system access is disabled")

type fileEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size *int64 `json:"size"`
}

type fileOperations struct {
	guard       *PathGuard
	maxFileSize int64
	enabled     bool
}

func (f *fileOperations) Invoke(ctx context.Context, args map[string]any) (any, error) {
	data, err := f.run(args)
	if err != nil {
		return nil, fmt.Errorf("File operation failed: %w", err)
	}
	return data, nil
}

func (f *fileOperations) run(args map[string]any) (any, error) {
	if !f.enabled {
		return nil, errFSDisabled
	}
	op := stringArg(args, "operation")
	path, err := f.guard.Resolve(stringArg(args, "path"))
	if err != nil {
		return nil, err
	}
	recursive := boolArg(args, "recursive", false)

	switch op {
	case "read":
		return f.read(path)
	case "write":
		content, ok := args["content"].(string)
		if !ok {
			return nil, invalidArgf("content is required for write operation")
		}
		return write(path, content)
	case "list":
		return list(path)
	case "delete":
		return remove(path, recursive)
	case "mkdir":
		return mkdir(path, recursive)
	default:
		return nil, invalidArgf("unknown operation: %s", op)
	}
}

func (f *fileOperations) read(path string) (any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if f.maxFileSize > 0 && info.Size() > f.maxFileSize {
		return nil, fmt.Errorf("file is %s, larger than the %s limit",
			units.BytesSize(float64(info.Size())), units.BytesSize(float64(f.maxFileSize)))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"content": string(b), "size": len(b)}, nil
}

func write(path, content string) (any, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, err
	}
	return map[string]any{"message": "File written successfully", "path": path}, nil
}

func list(path string) (any, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	files := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		fe := fileEntry{Name: e.Name(), Type: "file"}
		if e.IsDir() {
			fe.Type = "directory"
		} else if info, err := e.Info(); err == nil {
			size := info.Size()
			fe.Size = &size
		}
		files = append(files, fe)
	}
	return map[string]any{"files": files}, nil
}

func remove(path string, recursive bool) (any, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{"message": "Path does not exist", "path": path}, nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		if recursive {
			err = os.RemoveAll(path)
		} else if err = os.Remove(path); err != nil {
			if entries, rerr := os.ReadDir(path); rerr == nil && len(entries) > 0 {
				return nil, fmt.Errorf("directory %s is not empty, set recursive to true to delete it", path)
			}
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"message": "Directory deleted successfully", "path": path}, nil
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	return map[string]any{"message": "File deleted successfully", "path": path}, nil
}

func mkdir(path string, recursive bool) (any, error) {
	var err error
	if recursive {
		err = os.MkdirAll(path, 0o755)
	} else {
		err = os.Mkdir(path, 0o755)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": "Directory created successfully", "path": path}, nil
}
