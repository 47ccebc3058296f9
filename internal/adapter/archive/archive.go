// Package archive moves the purchase log in and out of zstd-compressed
// JSON-lines files. The first line is a header; every following line is one
// committed plot in purchase order.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/ports"
)

const (
	Format  = "land-purchase-log"
	Version = 1

	maxPrealloc = 4096
)

var ErrBadArchive = errors.New("archive: not a purchase log")

type Header struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exportedAt"`
}

func Write(w io.Writer, plots []domain.Plot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	je := json.NewEncoder(bw)

	if err := je.Encode(Header{Format: Format, Version: Version, Count: len(plots), ExportedAt: time.Now().UTC()}); err != nil {
		_ = enc.Close()
		return err
	}

	for _, p := range plots {
		if err := je.Encode(p); err != nil {
			_ = enc.Close()
			return fmt.Errorf("encode plot %s: %w", p.ID, err)
		}
	}

	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}

	return enc.Close()
}

func Read(r io.Reader) (Header, []domain.Plot, error) {
	var h Header

	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 64*1024))
	if err := jd.Decode(&h); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}
	if h.Format != Format || h.Version != Version {
		return h, nil, fmt.Errorf("%w: format %q version %d", ErrBadArchive, h.Format, h.Version)
	}
	if h.Count < 0 {
		return h, nil, fmt.Errorf("%w: negative entry count %d", ErrBadArchive, h.Count)
	}

	// the header is untrusted, so it only hints the allocation
	plots := make([]domain.Plot, 0, min(h.Count, maxPrealloc))
	for {
		var p domain.Plot
		err := jd.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return h, nil, fmt.Errorf("%w: entry %d: %v", ErrBadArchive, len(plots)+1, err)
		}
		plots = append(plots, p)
	}

	if len(plots) != h.Count {
		return h, nil, fmt.Errorf("%w: header says %d entries, found %d", ErrBadArchive, h.Count, len(plots))
	}

	return h, plots, nil
}

// Export writes every stored purchase to path.
func Export(ctx context.Context, repo ports.PurchaseRepository, path string) (int, error) {
	plots, err := repo.ListPurchases(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := Write(f, plots); err != nil {
		return 0, err
	}

	return len(plots), f.Sync()
}

// Import loads an archive into an empty repository. The log is replayed
// into a scratch ledger first so a corrupt archive writes nothing.
func Import(ctx context.Context, repo ports.PurchaseRepository, cfg domain.LedgerConfig, path string) (int, error) {
	existing, err := repo.ListPurchases(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, fmt.Errorf("%w: target already holds %d purchases", domain.ErrCorruptLog, len(existing))
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	_, plots, err := Read(f)
	if err != nil {
		return 0, err
	}

	scratch, err := domain.NewLedger(cfg)
	if err != nil {
		return 0, err
	}
	if err := scratch.Replay(plots); err != nil {
		return 0, err
	}

	for _, p := range plots {
		if err := repo.AppendPurchase(ctx, p); err != nil {
			return 0, fmt.Errorf("import plot %s: %w", p.ID, err)
		}
	}

	return len(plots), nil
}
