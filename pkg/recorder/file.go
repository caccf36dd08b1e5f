package recorder

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
)

const fileBufferSize = 32 * 1024

// file is a buffered append-only capture file with one seekable
// exception: the WAV header is patched in at close time.
type file struct {
	sync.Mutex

	f *os.File
	w *bufio.Writer
}

func newFile(dir string, name string) (*file, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &file{f: f, w: bufio.NewWriterSize(f, fileBufferSize)}, nil
}

func (f *file) Write(data []byte) error {
	f.Lock()
	defer f.Unlock()
	_, err := f.w.Write(data)
	return err
}

// Size flushes buffered writes and reports the on-disk size.
func (f *file) Size() (int64, error) {
	f.Lock()
	defer f.Unlock()
	if err := f.w.Flush(); err != nil {
		return -1, err
	}
	inf, err := f.f.Stat()
	if err != nil {
		return -1, err
	}
	return inf.Size(), nil
}

// WriteAtStart patches the beginning of the file in place, bypassing
// the write buffer. The file must not use O_APPEND.
func (f *file) WriteAtStart(data []byte) error {
	f.Lock()
	defer f.Unlock()
	if err := f.w.Flush(); err != nil {
		return err
	}
	_, err := f.f.WriteAt(data, 0)
	return err
}

func (f *file) Close() error {
	f.Lock()
	defer f.Unlock()
	err := f.w.Flush()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	return err
}
