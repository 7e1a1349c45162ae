// Package diskimage is the in-memory/file-backed disk image model
// cmd/nnimage builds against. It turns a parsed bootcfg.Block list
// into a flat file: each partition's raw bytes at its sector-aligned
// offset, images copied in verbatim from the build directory. No
// partition table is written into the file; the layout exists only as
// the in-memory Image. Grounded in the teacher's own disk-image
// assembly step (mazboot's image_data.go embeds a prebuilt image
// rather than building one); the github.com/pkg/errors wrapping
// matches the rest of the host-side tooling.
package diskimage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"nexke/internal/bootcfg"
)

const sectorSize = 512

// Partition is one partition-table entry: its slot within the image,
// size in bytes (rounded up to a sector), and payload source path
// (empty for an empty/reserved partition).
type Partition struct {
	Name       string
	Offset     int64
	Size       int64
	SourcePath string
}

// Image is the assembled disk image: an ordered partition list plus
// the total size, built from a bootcfg.Block list and a source
// directory to resolve relative paths against.
type Image struct {
	Partitions []Partition
	TotalSize  int64
}

// Plan computes an Image's layout from parsed configuration blocks
// without touching disk, so cmd/nnimage's "create" and "partition"
// actions can validate a config before writing anything.
func Plan(blocks []bootcfg.Block, dir string) (*Image, error) {
	var img Image
	var offset int64

	for _, b := range blocks {
		switch b.Type {
		case bootcfg.Partition:
			size, err := optionSize(b.Options, "size")
			if err != nil {
				return nil, errors.Wrapf(err, "partition block at line %d", b.Line)
			}
			img.Partitions = append(img.Partitions, Partition{
				Name:   partitionLabel(len(img.Partitions)),
				Offset: offset,
				Size:   roundUpSector(size),
			})
			offset += roundUpSector(size)
		case bootcfg.Image:
			source := optionValue(b.Options, "source")
			if source == "" {
				return nil, errors.Errorf("image block %q at line %d: missing required \"source\" option", b.Name, b.Line)
			}
			path := filepath.Join(dir, source)
			info, err := os.Stat(path)
			if err != nil {
				return nil, errors.Wrapf(err, "image block %q: source %q", b.Name, source)
			}
			size := roundUpSector(info.Size())
			img.Partitions = append(img.Partitions, Partition{
				Name:       b.Name,
				Offset:     offset,
				Size:       size,
				SourcePath: path,
			})
			offset += size
		}
	}

	img.TotalSize = offset
	return &img, nil
}

// Write materializes img to a file at outputPath, creating it if
// needed and truncating any existing content.
func Write(img *Image, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outputPath)
	}
	defer f.Close()

	for _, p := range img.Partitions {
		if _, err := f.Seek(p.Offset, io.SeekStart); err != nil {
			return errors.Wrapf(err, "seek to partition %q", p.Name)
		}
		if p.SourcePath == "" {
			continue
		}
		src, err := os.Open(p.SourcePath)
		if err != nil {
			return errors.Wrapf(err, "open source for partition %q", p.Name)
		}
		_, copyErr := io.Copy(f, src)
		src.Close()
		if copyErr != nil {
			return errors.Wrapf(copyErr, "write partition %q", p.Name)
		}
	}

	if err := f.Truncate(img.TotalSize); err != nil {
		return errors.Wrapf(err, "truncate %s to %d bytes", outputPath, img.TotalSize)
	}
	return nil
}

func roundUpSector(n int64) int64 {
	if n%sectorSize == 0 {
		return n
	}
	return (n/sectorSize + 1) * sectorSize
}

func partitionLabel(index int) string {
	return fmt.Sprintf("part%d", index)
}

func optionValue(options []string, key string) string {
	for _, opt := range options {
		if k, v, ok := splitOption(opt); ok && k == key {
			return v
		}
	}
	return ""
}

func optionSize(options []string, key string) (int64, error) {
	v := optionValue(options, key)
	if v == "" {
		return 0, errors.Errorf("missing required %q option", key)
	}
	return parseSize(v)
}

func splitOption(opt string) (key, value string, ok bool) {
	for i := 0; i < len(opt); i++ {
		if opt[i] == ' ' || opt[i] == '\t' {
			return opt[:i], trimLeadingSpace(opt[i+1:]), true
		}
	}
	return "", "", false
}

func trimLeadingSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	return s
}

// parseSize parses sizes like "64M", "512K", "2G", or a bare byte
// count.
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty size")
	}
	mult := int64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'K', 'k':
		mult = 1024
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid size %q", s)
		}
		n = n*10 + int64(c-'0')
	}
	return n * mult, nil
}
