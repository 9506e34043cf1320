package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
)

// FileAppender appends entries to a file and rotates it by size:
// trail.log -> trail.log.1 -> ... -> trail.log.N. With Compress the backups
// are zstd streams named trail.log.N.zst.
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
	level       Level
	formatJSON  bool
	compress    bool
}

// FileAppenderConfig - MaxSize is in megabytes; zero values take 100 MB and 5 backups.
type FileAppenderConfig struct {
	FilePath   string
	MaxSize    int64
	MaxBackups int
	Level      Level
	FormatJSON bool
	Compress   bool
}

// NewFileAppender opens (or creates) the trail file and its directory.
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	file, err := openTrail(config.FilePath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat audit file: %w", err)
	}

	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := config.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	return &FileAppender{
		file:        file,
		filePath:    config.FilePath,
		maxSize:     maxSize * 1024 * 1024,
		maxBackups:  maxBackups,
		currentSize: info.Size(),
		level:       config.Level,
		formatJSON:  config.FormatJSON,
		compress:    config.Compress,
	}, nil
}

func openTrail(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return file, nil
}

// Append writes entry, rotating first if it would overflow the file.
func (fa *FileAppender) Append(_ context.Context, entry *Entry) error {
	data, err := encode(entry.FilterByLevel(fa.level), fa.formatJSON)
	if err != nil {
		return err
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return fmt.Errorf("audit file %s is closed", fa.filePath)
	}
	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate audit file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	fa.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}
	fa.file = nil

	if err := os.Remove(fa.BackupPath(fa.maxBackups)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := fa.maxBackups - 1; i > 0; i-- {
		from := fa.BackupPath(i)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, fa.BackupPath(i+1)); err != nil {
				return err
			}
		}
	}

	first := fa.filePath + ".1"
	if err := os.Rename(fa.filePath, first); err != nil {
		return err
	}
	if fa.compress {
		if err := compressFile(first, fa.BackupPath(1)); err != nil {
			return err
		}
		if err := os.Remove(first); err != nil {
			return err
		}
	}

	file, err := openTrail(fa.filePath)
	if err != nil {
		return err
	}
	fa.file = file
	fa.currentSize = 0
	return nil
}

// BackupPath returns the name of the n-th rotated file.
func (fa *FileAppender) BackupPath(n int) string {
	name := fmt.Sprintf("%s.%d", fa.filePath, n)
	if fa.compress {
		name += ".zst"
	}
	return name
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Flush syncs the file to disk.
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.file != nil {
		return fa.file.Sync()
	}
	return nil
}

// Close closes the file; later appends fail.
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.file == nil {
		return nil
	}
	err := fa.file.Close()
	fa.file = nil
	return err
}

// FilePath returns the active trail path.
func (fa *FileAppender) FilePath() string {
	return fa.filePath
}
