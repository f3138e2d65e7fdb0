// Package archive collects rendered cards into a single zip download.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"time"
)

// Archive is an in-memory zip under construction. It is not safe for
// concurrent use.
type Archive struct {
	buf     bytes.Buffer
	zw      *zip.Writer
	names   map[string]bool
	order   []string
	modTime time.Time
	closed  bool
}

func New() *Archive {
	a := &Archive{names: map[string]bool{}, modTime: time.Now()}
	a.zw = zip.NewWriter(&a.buf)
	return a
}

// Add stores data under name. Names must be unique.
func (a *Archive) Add(name string, data []byte) error {
	if a.closed {
		return fmt.Errorf("archive closed")
	}
	if a.names[name] {
		return fmt.Errorf("duplicate archive entry %q", name)
	}
	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store, // PNGs are already compressed
		Modified: a.modTime,
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	a.names[name] = true
	a.order = append(a.order, name)
	return nil
}

func (a *Archive) Has(name string) bool { return a.names[name] }

func (a *Archive) Len() int { return len(a.order) }

// Names returns the entry names sorted.
func (a *Archive) Names() []string {
	out := append([]string(nil), a.order...)
	sort.Strings(out)
	return out
}

// Bytes finalizes the archive and returns the zip file. Further Adds fail.
func (a *Archive) Bytes() ([]byte, error) {
	if !a.closed {
		if err := a.zw.Close(); err != nil {
			return nil, err
		}
		a.closed = true
	}
	return a.buf.Bytes(), nil
}
