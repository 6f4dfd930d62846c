package service

import (
	"context"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/metrics"
	"counseling-api/internal/model"
	"counseling-api/internal/storage"
)

var (
	segmentPattern  = regexp.MustCompile(`^[a-z]{1,20}$`)
	filenamePattern = regexp.MustCompile(`^[a-z0-9._-]{1,50}$`)
)

var wishImageExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type StaticStore interface {
	UpsertStaticResource(ctx context.Context, r *model.StaticResource) error
	StaticResourceByID(ctx context.Context, id string) (*model.StaticResource, error)
	ListStaticResources(ctx context.Context, valid *bool) ([]model.StaticResource, error)
	SetStaticResourceValid(ctx context.Context, id string, valid bool) error
	DeleteStaticResource(ctx context.Context, id string) error
	StaleStaticResources(ctx context.Context, cutoff time.Time) ([]model.StaticResource, error)
}

type StaticService struct {
	base
	store   StaticStore
	objects storage.ObjectStore
}

func NewStaticService(st StaticStore, objects storage.ObjectStore, log *zap.Logger) *StaticService {
	return &StaticService{base: newBase(log), store: st, objects: objects}
}

type UploadInput struct {
	Scope       string
	Category    string
	Filename    string
	Description *string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Tree groups resources by scope, then category.
type Tree map[string]map[string][]model.StaticResource

// Upload writes the object and records it. Overwriting an existing path keeps
// the resource's id and validity.
func (s *StaticService) Upload(ctx context.Context, in UploadInput) (*model.StaticResource, error) {
	switch {
	case !segmentPattern.MatchString(in.Scope):
		return nil, apperr.InvalidArg("scope 不合法")
	case !segmentPattern.MatchString(in.Category):
		return nil, apperr.InvalidArg("category 不合法")
	case !filenamePattern.MatchString(in.Filename):
		return nil, apperr.InvalidArg("文件名不合法")
	}

	r := &model.StaticResource{
		ID:          uuid.New().String(),
		Scope:       in.Scope,
		Category:    in.Category,
		Filename:    in.Filename,
		Description: in.Description,
	}
	if err := s.objects.Put(ctx, r.Path(), in.Body, in.Size, in.ContentType); err != nil {
		return nil, s.internal("put object", err)
	}
	if err := s.store.UpsertStaticResource(ctx, r); err != nil {
		return nil, s.internal("upsert static resource", err)
	}
	s.log.Info("static resource stored", zap.String("path", r.Path()), zap.Int64("size", in.Size))
	return r, nil
}

// UploadWishImage stores an image under wish/images with a random name.
func (s *StaticService) UploadWishImage(ctx context.Context, contentType string, body io.Reader, size int64) (*model.StaticResource, error) {
	ext, ok := wishImageExt[strings.ToLower(contentType)]
	if !ok {
		return nil, apperr.ErrUnsupportedImageType
	}
	id := uuid.New()
	desc := "心语图片"
	return s.Upload(ctx, UploadInput{
		Scope:       "wish",
		Category:    "images",
		Filename:    hex.EncodeToString(id[:]) + "." + ext,
		Description: &desc,
		ContentType: contentType,
		Body:        body,
		Size:        size,
	})
}

func (s *StaticService) Tree(ctx context.Context, valid *bool) (Tree, error) {
	list, err := s.store.ListStaticResources(ctx, valid)
	if err != nil {
		return nil, s.internal("list static resources", err)
	}
	tree := Tree{}
	for _, r := range list {
		if tree[r.Scope] == nil {
			tree[r.Scope] = map[string][]model.StaticResource{}
		}
		tree[r.Scope][r.Category] = append(tree[r.Scope][r.Category], r)
	}
	return tree, nil
}

func (s *StaticService) MarkValid(ctx context.Context, id string, valid bool) (*model.StaticResource, error) {
	if err := s.store.SetStaticResourceValid(ctx, id, valid); err != nil {
		return nil, s.notFoundOr("mark static resource", err, apperr.ErrResourceNotFound)
	}
	r, err := s.store.StaticResourceByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr("load static resource", err, apperr.ErrResourceNotFound)
	}
	return r, nil
}

// Delete removes the object and its record.
func (s *StaticService) Delete(ctx context.Context, id string) error {
	r, err := s.store.StaticResourceByID(ctx, id)
	if err != nil {
		return s.notFoundOr("load static resource", err, apperr.ErrResourceNotFound)
	}
	return s.remove(ctx, r)
}

func (s *StaticService) remove(ctx context.Context, r *model.StaticResource) error {
	if err := s.objects.Remove(ctx, r.Path()); err != nil {
		return s.internal("remove object", err)
	}
	if err := s.store.DeleteStaticResource(ctx, r.ID); err != nil {
		return s.notFoundOr("delete static resource", err, apperr.ErrResourceNotFound)
	}
	return nil
}

// PurgeStale deletes resources marked invalid more than olderThan ago.
func (s *StaticService) PurgeStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.store.StaleStaticResources(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range stale {
		if err := s.remove(ctx, &stale[i]); err != nil {
			return n, err
		}
		n++
	}
	metrics.JanitorRemoved(n)
	return n, nil
}
