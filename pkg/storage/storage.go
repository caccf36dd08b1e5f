// Package storage uploads finished capture sessions to a remote
// backend. The default is a no-op keeping everything local.
package storage

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/u64view/u64view/pkg/config"
)

// CloudStorage saves local files under a remote name.
type CloudStorage interface {
	Save(name string, localPath string) error
}

func GetCloudStorage(conf config.Storage) (CloudStorage, error) {
	switch conf.Provider {
	case "google":
		return NewGoogleCloudClient(conf.Bucket, conf.Key)
	case "", "none":
		return NewNoopCloudStorage(), nil
	}
	return nil, fmt.Errorf("unknown storage provider: %v", conf.Provider)
}

// UploadDir saves every regular file of a capture session directory,
// prefixed with the session name.
func UploadDir(s CloudStorage, dir string) error {
	session := filepath.Base(dir)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		return s.Save(session+"/"+d.Name(), path)
	})
}
