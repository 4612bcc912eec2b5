// Package profiles stores named workspace profiles, so that a user who
// scaffolds many projects against the same workspace does not have to
// repeat --workspace-host.
//
// The store is a YAML file (default: ~/.mlbundle/profiles) mapping
// profile name to profile. It may hold tokens one day, so it is kept
// 0600 and written through a safe create + backup dance.
package profiles

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hectane/go-acl"
	"github.com/mlbundle/mlbundle/internal/config/open"
	yaml "gopkg.in/yaml.v3"
)

var ErrStoreNotFound = errors.New("profile store is not found")
var ErrCannotCreateStore = errors.New("cannot create profile store")
var ErrCannotUpdateStore = errors.New("cannot update profile store")
var ErrProfileInvalid = errors.New("workspace profile is invalid")

// Store is a map from profile name to WorkspaceProfile.
type Store map[string]*WorkspaceProfile

// WorkspaceProfile points at one Databricks workspace.
type WorkspaceProfile struct {
	// workspace URL, e.g. https://your-workspace.cloud.databricks.com
	Host string `yaml:"host"`

	// default Unity Catalog for projects generated against this
	// workspace (optional).
	Catalog string `yaml:"catalog,omitempty"`
}

// Verify the profile.
//
// # Return
//
// nil if it is valid. Otherwise, ErrProfileInvalid error.
func (p *WorkspaceProfile) Verify() error {
	u, err := url.Parse(p.Host)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: host is not a URL: %s", ErrProfileInvalid, p.Host)
	}
	return nil
}

// Load reads the profile store from file.
func Load(filepath string) (Store, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrStoreNotFound, filepath)
		}
		return nil, err
	}
	return Unmarshal(buf)
}

// Unmarshal the profile store from yaml in byte array.
func Unmarshal(buf []byte) (Store, error) {
	ret := map[string]*WorkspaceProfile{}
	if err := yaml.Unmarshal(buf, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Save writes the profile store to file, keeping it 0600.
//
// The previous content is copied to <path>.backup while writing; the
// backup is removed once the write succeeds.
func (s *Store) Save(path string) error {
	saving := false

	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700)); err != nil {
		return err
	}

	bkpath := path + ".backup"
	bk, err := open.NewSafeFile(bkpath)
	if err != nil {
		return err
	}
	defer func() {
		if !saving {
			os.Remove(bkpath)
		}
	}()
	defer bk.Close()

	f, err := os.OpenFile(path, os.O_RDWR, os.FileMode(0600))
	if err == nil {
		// In case of the existing file with loose permissions,
		// enforce permission to 0600.
		if err := acl.Chmod(path, os.FileMode(0600)); err != nil {
			return err
		}
	} else {
		if os.IsPermission(err) {
			return fmt.Errorf(
				"%w, because no permission to write file at %s",
				ErrCannotUpdateStore, path,
			)
		} else if os.IsNotExist(err) {
			f_, err_ := open.NewSafeFile(path)
			if err_ != nil {
				return fmt.Errorf(
					"%w: cannot create a file at %s",
					ErrCannotCreateStore, path,
				)
			}
			f = f_
		} else {
			return err
		}
	}
	defer f.Close()

	if _, err := io.Copy(bk, f); err != nil {
		return err
	}

	saving = true
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	buf, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = f.Write(buf)

	if err == nil {
		saving = false
	}
	return err
}
