package engine

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/redesblock/stash/core/events"
	"github.com/redesblock/stash/core/storage"
)

const (
	// exportVersionFilename is the first file in every export archive.
	exportVersionFilename = ".stash-export-version"
	// currentExportVersion of the archive layout.
	currentExportVersion = "1"
)

var (
	// ErrInvalidArchive is returned for archives missing the leading
	// version file.
	ErrInvalidArchive = errors.New("engine: invalid archive")
	// ErrUnsupportedExportVersion is returned for archives written by
	// an incompatible layout version.
	ErrUnsupportedExportVersion = errors.New("engine: unsupported export version")
)

// Export writes a tar archive of the full engine state: all live
// records, the sync queue and the settings and metadata singletons.
func (e *Engine) Export(ctx context.Context, w io.Writer) error {
	if e.closed() {
		return ErrClosed
	}
	tw := tar.NewWriter(w)
	defer tw.Close()

	if err := writeArchiveFile(tw, exportVersionFilename, []byte(currentExportVersion)); err != nil {
		return err
	}

	err := e.store.Iterate(ctx, func(r storage.Record) (stop bool, err error) {
		b, err := json.Marshal(r)
		if err != nil {
			return true, err
		}
		return false, writeArchiveFile(tw, "records/"+r.ID+".json", b)
	})
	if err != nil {
		return err
	}

	ops, err := e.syncer.Pending()
	if err != nil {
		return err
	}
	for _, op := range ops {
		b, err := json.Marshal(op)
		if err != nil {
			return err
		}
		if err := writeArchiveFile(tw, fmt.Sprintf("syncqueue/%016x.json", op.Seq), b); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e.settings.Settings())
	if err != nil {
		return err
	}
	if err := writeArchiveFile(tw, "settings.json", b); err != nil {
		return err
	}
	b, err = json.Marshal(e.settings.Metadata())
	if err != nil {
		return err
	}
	return writeArchiveFile(tw, "metadata.json", b)
}

// Import replaces all engine state with the archive contents and emits
// data_imported. The archive must start with the version file written
// by Export.
func (e *Engine) Import(ctx context.Context, r io.Reader) error {
	if e.closed() {
		return ErrClosed
	}
	tr := tar.NewReader(r)

	hdr, err := tr.Next()
	if err != nil {
		return ErrInvalidArchive
	}
	if hdr.Name != exportVersionFilename {
		return ErrInvalidArchive
	}
	version, err := ioutil.ReadAll(tr)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(string(version)); v != currentExportVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedExportVersion, v)
	}

	var (
		records  []storage.Record
		ops      []storage.SyncOperation
		settings *storage.Settings
		metadata *storage.Metadata
	)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		b, err := ioutil.ReadAll(tr)
		if err != nil {
			return err
		}
		switch {
		case strings.HasPrefix(hdr.Name, "records/"):
			var rec storage.Record
			if err := json.Unmarshal(b, &rec); err != nil {
				return fmt.Errorf("engine: archive record %s: %w", hdr.Name, err)
			}
			records = append(records, rec)
		case strings.HasPrefix(hdr.Name, "syncqueue/"):
			var op storage.SyncOperation
			if err := json.Unmarshal(b, &op); err != nil {
				return fmt.Errorf("engine: archive operation %s: %w", hdr.Name, err)
			}
			ops = append(ops, op)
		case hdr.Name == "settings.json":
			settings = new(storage.Settings)
			if err := json.Unmarshal(b, settings); err != nil {
				return fmt.Errorf("engine: archive settings: %w", err)
			}
		case hdr.Name == "metadata.json":
			metadata = new(storage.Metadata)
			if err := json.Unmarshal(b, metadata); err != nil {
				return fmt.Errorf("engine: archive metadata: %w", err)
			}
		default:
			e.logger.Warningf("engine: skipping unknown archive entry %q", hdr.Name)
		}
	}

	// the archive replaces everything
	if _, err := e.store.Clear(ctx); err != nil {
		return err
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		sem     = semaphore.NewWeighted(int64(runtime.NumCPU()))
	)
	for i := range records {
		rec := records[i]
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return e.store.Restore(gctx, rec)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.syncer.ImportOps(ctx, ops); err != nil {
		return err
	}

	if settings != nil {
		m := e.settings.Metadata()
		if metadata != nil {
			m = *metadata
		}
		if err := e.settings.Replace(*settings, m); err != nil {
			return err
		}
		e.store.SetCompression(settings.CompressionEnabled)
		e.store.SetCapacity(settings.MaxCacheSize)
		e.syncer.SetPriorityOrdering(settings.PriorityOrdering)
	}
	if err := e.recomputeTotalSize(); err != nil {
		return err
	}

	e.bus.Emit(events.DataImported{Records: len(records), Operations: len(ops)})
	return nil
}

func writeArchiveFile(tw *tar.Writer, name string, b []byte) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Mode:    0600,
		Size:    int64(len(b)),
		ModTime: time.Now(),
	}); err != nil {
		return err
	}
	_, err := tw.Write(b)
	return err
}
