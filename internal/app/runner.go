package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/internal/infrastructure"
	"go.uber.org/zap"
)

const copyChunkSize = 64 * 1024

// JobRunner executes single jobs against the provider and the artifact store
type JobRunner struct {
	provider domain.Provider
	store    domain.ArtifactStore
	logger   *zap.Logger
}

// NewJobRunner creates a new job runner
func NewJobRunner(provider domain.Provider, store domain.ArtifactStore, logger *zap.Logger) *JobRunner {
	return &JobRunner{
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// RunVideo downloads the highest resolution audio+video stream
func (r *JobRunner) RunVideo(ctx context.Context, url string, sink EventSink) (*domain.Artifact, error) {
	return r.runSingle(ctx, url, sink, (*domain.Media).BestProgressive)
}

// RunAudio downloads the highest bitrate audio-only stream
func (r *JobRunner) RunAudio(ctx context.Context, url string, sink EventSink) (*domain.Artifact, error) {
	return r.runSingle(ctx, url, sink, (*domain.Media).BestAudio)
}

func (r *JobRunner) runSingle(ctx context.Context, url string, sink EventSink, pick func(*domain.Media) (domain.Stream, error)) (*domain.Artifact, error) {
	media, err := r.provider.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	stream, err := pick(media)
	if err != nil {
		return nil, err
	}

	progress := newProgressReporter(sink)
	artifact, err := r.download(ctx, media, stream, "", progress)
	if err != nil {
		return nil, err
	}

	if err := progress.Finish(); err != nil {
		r.store.Discard(artifact.Path)
		return nil, err
	}
	return artifact, nil
}

// RunPlaylist downloads every member into a job-scoped directory and packages it as one zip.
// A failing member is reported and skipped.
func (r *JobRunner) RunPlaylist(ctx context.Context, url string, sink EventSink) (*domain.Artifact, error) {
	playlist, err := r.provider.ResolvePlaylist(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(playlist.Entries) == 0 {
		return nil, domain.ErrEmptyPlaylist
	}

	title := playlist.Title
	if title == "" {
		title = playlist.ID
	}
	count := len(playlist.Entries)

	if err := sink.Send(domain.Event{
		Name: domain.EventPlaylistInfo,
		Data: domain.PlaylistInfoData{Title: title, Count: count},
	}); err != nil {
		return nil, err
	}

	dir, err := r.store.ReserveDir(infrastructure.SanitizeTitle(title))
	if err != nil {
		return nil, domain.NewJobError(domain.KindIOError, "create playlist directory", err)
	}
	packaged := false
	defer func() {
		if !packaged {
			r.store.Discard(dir)
		}
	}()

	progress := newProgressReporter(sink)
	succeeded := 0
	for index, entry := range playlist.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := sink.Send(domain.Event{
			Name: domain.EventNextVideo,
			Data: domain.NextVideoData{Index: index, Title: entry.Title},
		}); err != nil {
			return nil, err
		}

		if err := r.downloadMember(ctx, entry, dir, progress.Member(index, count)); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("Playlist member failed",
				zap.String("playlist", title),
				zap.Int("index", index),
				zap.String("url", entry.URL),
				zap.Error(err))
			if err := sink.Send(domain.NewStatusEvent(fmt.Sprintf("Skipped %q: %s", entry.Title, domain.UserMessage(err)))); err != nil {
				return nil, err
			}
		} else {
			succeeded++
		}

		if err := sink.Send(domain.Event{
			Name: domain.EventVideoDone,
			Data: domain.VideoDoneData{Index: index},
		}); err != nil {
			return nil, err
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("none of the %d playlist videos could be downloaded", count)
	}

	if err := sink.Send(domain.NewStatusEvent("Zipping playlist...")); err != nil {
		return nil, err
	}

	packaged = true
	artifact, err := r.store.Package(dir)
	if err != nil {
		return nil, domain.NewJobError(domain.KindIOError, "package playlist", err)
	}

	if err := progress.Finish(); err != nil {
		r.store.Discard(artifact.Path)
		return nil, err
	}
	return artifact, nil
}

func (r *JobRunner) downloadMember(ctx context.Context, entry domain.PlaylistEntry, dir string, progress *progressReporter) error {
	media, err := r.provider.Resolve(ctx, entry.URL)
	if err != nil {
		return err
	}
	stream, err := media.BestProgressive()
	if err != nil {
		return err
	}
	_, err = r.download(ctx, media, stream, dir, progress)
	return err
}

// ListCaptions returns the video title and its caption tracks in provider order
func (r *JobRunner) ListCaptions(ctx context.Context, url string) (*domain.CaptionsListData, error) {
	media, err := r.provider.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	tracks := make([]domain.CaptionTrack, len(media.Captions))
	copy(tracks, media.Captions)
	return &domain.CaptionsListData{Title: media.Title, Tracks: tracks}, nil
}

// DownloadCaption renders one caption track as {stem}_{code}.srt
func (r *JobRunner) DownloadCaption(ctx context.Context, url, code string, sink EventSink) (*domain.Artifact, error) {
	media, err := r.provider.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	if !media.HasCaption(code) {
		return nil, fmt.Errorf("no caption track for code %q: %w", code, domain.ErrCaptionNotFound)
	}

	caption, err := r.provider.Caption(ctx, media, code)
	if err != nil {
		return nil, err
	}

	// code is one of the provider's own track codes at this point
	name := fmt.Sprintf("%s_%s.srt", infrastructure.SanitizeTitle(media.Title), strings.ReplaceAll(code, " ", "_"))
	f, err := r.store.Reserve(name)
	if err != nil {
		return nil, domain.NewJobError(domain.KindIOError, "create caption file", err)
	}

	_, writeErr := io.WriteString(f, caption.SRT())
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		r.store.Discard(f.Name())
		return nil, domain.NewJobError(domain.KindIOError, "write caption file", writeErr)
	}

	artifact, err := r.store.Stat(f.Name())
	if err != nil {
		r.store.Discard(f.Name())
		return nil, domain.NewJobError(domain.KindIOError, "stat caption file", err)
	}

	if err := newProgressReporter(sink).Finish(); err != nil {
		r.store.Discard(artifact.Path)
		return nil, err
	}
	return artifact, nil
}

// download streams one format into dir, or the store root when dir is empty.
// The partial file is removed on any failure.
func (r *JobRunner) download(ctx context.Context, media *domain.Media, stream domain.Stream, dir string, progress *progressReporter) (*domain.Artifact, error) {
	reader, size, err := r.provider.OpenStream(ctx, media, stream)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	if size <= 0 {
		size = stream.Size
	}

	name := infrastructure.SanitizeTitle(media.Title) + stream.Extension()
	var f *os.File
	if dir == "" {
		f, err = r.store.Reserve(name)
	} else {
		f, err = r.store.ReserveIn(dir, name)
	}
	if err != nil {
		return nil, domain.NewJobError(domain.KindIOError, "create output file", err)
	}

	r.logger.Debug("Downloading stream",
		zap.String("title", media.Title),
		zap.Int("itag", stream.Itag),
		zap.Int64("size", size),
		zap.String("file", f.Name()))

	copyErr := copyWithProgress(ctx, f, reader, size, progress)
	if closeErr := f.Close(); copyErr == nil && closeErr != nil {
		copyErr = domain.NewJobError(domain.KindIOError, "close output file", closeErr)
	}
	if copyErr != nil {
		r.store.Discard(f.Name())
		return nil, copyErr
	}

	artifact, err := r.store.Stat(f.Name())
	if err != nil {
		r.store.Discard(f.Name())
		return nil, domain.NewJobError(domain.KindIOError, "stat output file", err)
	}
	return artifact, nil
}

// copyWithProgress copies in chunks, checking for cancellation between chunks
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress *progressReporter) error {
	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return domain.NewJobError(domain.KindIOError, "write output file", err)
			}
			written += int64(n)
			progress.Update(written, total)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream interrupted: %w", readErr)
		}
	}
}
