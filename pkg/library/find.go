package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

var (
	photoExts = []string{".jpg", ".jpeg"}
	videoExts = []string{".mp4", ".mov", ".m4v"}
)

// Metadata reads and updates embedded image metadata.
type Metadata interface {
	Read(path string) (Image, error)
	SetKeywords(path string, keywords []string) error
	Close() error
}

// exifMetadata is Metadata backed by a running exiftool process.
type exifMetadata struct {
	et *exiftool.Exiftool
}

// NewExifMetadata starts exiftool.
func NewExifMetadata() (Metadata, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &exifMetadata{et: et}, nil
}

func (m *exifMetadata) Close() error {
	return m.et.Close()
}

func (m *exifMetadata) Read(path string) (Image, error) {
	fis := m.et.ExtractMetadata(path)
	fi := fis[0]
	i := Image{}
	var err error

	if fi.Err != nil {
		return i, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(3).Infof("%q=%v\n", k, v)
	}

	i.Make, err = fi.GetString("Make")
	if err != nil {
		klog.V(1).Infof("unable to get make for %s: %v", path, err)
	}

	i.Model, err = fi.GetString("Model")
	if err != nil {
		klog.V(1).Infof("unable to get model for %s: %v", path, err)
	}

	i.Height, err = fi.GetInt("ImageHeight")
	if err != nil {
		return i, fmt.Errorf("get ImageHeight: %w", err)
	}

	i.Width, err = fi.GetInt("ImageWidth")
	if err != nil {
		return i, fmt.Errorf("get ImageWidth: %w", err)
	}

	i.Keywords, err = fi.GetStrings("Keywords")
	if err != nil {
		klog.V(2).Infof("no keywords for %s: %v", path, err)
	}

	i.Description, _ = fi.GetString("ImageDescription")

	i.Title, err = fi.GetString("Headline")
	if err != nil {
		klog.V(2).Infof("unable to get headline: %v", err)
	}

	ds, err := fi.GetString("DateTimeOriginal")
	if err != nil {
		// videos carry CreateDate instead
		ds, err = fi.GetString("CreateDate")
	}
	if err != nil {
		klog.V(1).Infof("unable to get date time for %s: %v", path, err)
		return i, nil
	}

	i.Taken, err = time.ParseInLocation(exifDate, ds, time.Local)
	if err != nil {
		return i, fmt.Errorf("parse time %q: %w", ds, err)
	}

	return i, nil
}

func (m *exifMetadata) SetKeywords(path string, keywords []string) error {
	fis := m.et.ExtractMetadata(path)
	if fis[0].Err != nil {
		return fmt.Errorf("extract fail for %q: %w", path, fis[0].Err)
	}
	fis[0].SetStrings("Keywords", keywords)
	m.et.WriteMetadata(fis)
	if fis[0].Err != nil {
		return fmt.Errorf("write metadata for %q: %w", path, fis[0].Err)
	}
	return nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Find walks root and returns the photos and videos below it.
func Find(root string, md Metadata) ([]*Image, error) {
	found := []*Image{}
	root = filepath.Clean(root)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			base := filepath.Base(path)
			if path != root && (base[0] == '.' || base == "_") {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}

			video := hasExt(path, videoExts)
			if !video && !hasExt(path, photoExts) {
				return nil
			}

			klog.V(1).Infof("found %s", path)
			i, err := md.Read(path)
			if err != nil {
				klog.Errorf("read failure: %v", err)
				return err
			}

			i.Video = video
			i.InPath = path
			i.RelPath, err = filepath.Rel(root, path)
			if err != nil {
				return err
			}
			i.Hier = strings.Split(i.RelPath, string(filepath.Separator))

			fi, err := os.Stat(path)
			if err != nil {
				klog.Errorf("stat failure: %v", err)
				return err
			}
			i.ModTime = fi.ModTime()
			if i.Taken.IsZero() {
				i.Taken = i.ModTime
			}

			found = append(found, &i)
			return nil
		},
	})

	return found, err
}

// idEscaper maps characters that need escaping in URLs to "_XX" hex codes. "_" itself
// is doubled so that distinct paths never share an ID.
var idEscaper = strings.NewReplacer("_", "__", " ", "_20", "#", "_23", "?", "_3F", "%", "_25")

// urlSafePath returns p with slashes as separators and URL-unsafe characters escaped.
func urlSafePath(p string) string {
	return idEscaper.Replace(filepath.ToSlash(p))
}
