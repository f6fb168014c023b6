// Package archive packs a serialized database image plus a small metadata
// record into a compressed, portable container, and unpacks such containers
// back. The container is a zip with two members: the raw database image and
// a JSON metadata object.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	databaseMember = "flashcard_database.db"
	metadataMember = "export_info.json"

	// FormatVersion is written into every archive's metadata.
	FormatVersion = "1.0.0"

	// ScopeDatabase marks a whole-database archive, ScopeDeck a single-deck
	// subset.
	ScopeDatabase = "database"
	ScopeDeck     = "deck"
)

// ErrInvalidArchive indicates the container is not a readable archive or is
// missing the database member.
var ErrInvalidArchive = errors.New("invalid archive")

// Metadata describes an export.
type Metadata struct {
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
	UserID     string    `json:"userId"`
	Scope      string    `json:"scope,omitempty"`
}

// Pack wraps a database image and its metadata into a compressed archive.
func Pack(dbImage []byte, meta Metadata) ([]byte, error) {
	if meta.Version == "" {
		meta.Version = FormatVersion
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(databaseMember)
	if err != nil {
		return nil, fmt.Errorf("failed to add database member: %w", err)
	}
	if _, err := w.Write(dbImage); err != nil {
		return nil, fmt.Errorf("failed to write database member: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	w, err = zw.Create(metadataMember)
	if err != nil {
		return nil, fmt.Errorf("failed to add metadata member: %w", err)
	}
	if _, err := w.Write(metaJSON); err != nil {
		return nil, fmt.Errorf("failed to write metadata member: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack extracts the database image and metadata from an archive. A missing
// database member is a hard failure; missing or unreadable metadata is not,
// and yields a zero Metadata.
func Unpack(data []byte) ([]byte, Metadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	var (
		dbImage []byte
		meta    Metadata
	)
	for _, f := range zr.File {
		switch f.Name {
		case databaseMember:
			dbImage, err = readMember(f)
			if err != nil {
				return nil, Metadata{}, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
			}
		case metadataMember:
			raw, err := readMember(f)
			if err == nil {
				_ = json.Unmarshal(raw, &meta)
			}
		}
	}

	if dbImage == nil {
		return nil, Metadata{}, fmt.Errorf("%w: missing %s", ErrInvalidArchive, databaseMember)
	}
	return dbImage, meta, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
