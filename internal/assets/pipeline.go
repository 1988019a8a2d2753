package assets

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cardpass/pass-issuer/internal/logger"
	"github.com/cardpass/pass-issuer/internal/pass"
)

// Resolved holds the image members for one pass.
type Resolved struct {
	// Files maps member name to content: the static assets plus, when the profile image could be
	// used, the thumbnails.
	Files map[string][]byte

	// ThumbnailErr records why a requested profile image was left out. Nil when the thumbnails
	// were added or no image was requested.
	ThumbnailErr error
}

// HasThumbnail reports whether the thumbnails were added.
func (r Resolved) HasThumbnail() bool {
	_, ok := r.Files[ThumbnailMember]
	return ok
}

// Pipeline resolves the static assets and the profile thumbnails of a pass.
type Pipeline struct {
	static  *StaticAssets
	fetcher ImageFetcher
}

// NewPipeline returns a pipeline. A nil fetcher disables profile images.
func NewPipeline(static *StaticAssets, fetcher ImageFetcher) *Pipeline {
	return &Pipeline{static: static, fetcher: fetcher}
}

// Resolve loads the static assets and, if imageURL is set, fetches and transforms the profile
// image. Both run concurrently and Resolve waits for both.
//
// A missing or invalid static asset is a fatal asset error. A profile image failure is logged
// and the pass is built without thumbnails.
func (p *Pipeline) Resolve(ctx context.Context, imageURL string) (Resolved, error) {
	reqLogger := logger.ContextRequestLogger(ctx)

	var (
		static       map[string][]byte
		thumbnails   map[string][]byte
		thumbnailErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		files, err := p.static.Load()
		if err != nil {
			return err
		}
		static = files
		return nil
	})

	if imageURL != "" && p.fetcher != nil {
		g.Go(func() error {
			thumbnails, thumbnailErr = p.thumbnails(gctx, imageURL)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if pass.CodeOf(err) == pass.ErrCodeAsset {
			return Resolved{}, err
		}
		return Resolved{}, pass.WrapAssetError(err, "failed to load static assets")
	}

	resolved := Resolved{Files: static}

	switch {
	case thumbnailErr != nil:
		resolved.ThumbnailErr = thumbnailErr
		reqLogger.Warn("profile image unavailable, issuing pass without thumbnail",
			slog.String("component", "assets"),
			slog.String("error", thumbnailErr.Error()),
		)
		logger.ContextWithLogAttrs(ctx, slog.Bool("thumbnail", false))
	case thumbnails != nil:
		for name, data := range thumbnails {
			resolved.Files[name] = data
		}
		logger.ContextWithLogAttrs(ctx, slog.Bool("thumbnail", true))
	}

	return resolved, nil
}

func (p *Pipeline) thumbnails(ctx context.Context, imageURL string) (map[string][]byte, error) {
	data, err := p.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, pass.WrapAssetError(err, "failed to fetch profile image")
	}
	thumbs, err := CircularThumbnails(data)
	if err != nil {
		return nil, pass.WrapAssetError(err, "failed to create thumbnails")
	}
	return thumbs, nil
}
