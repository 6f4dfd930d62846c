package service

import (
	"context"
	"io"
	"math"
	"sort"

	"go.uber.org/zap"

	"counseling-api/internal/apperr"
	"counseling-api/internal/cache"
	"counseling-api/internal/model"
)

type ConsultantStore interface {
	ListConsultants(ctx context.Context) ([]model.Consultant, error)
	ConsultantByID(ctx context.Context, id string) (*model.Consultant, error)
	UpdateConsultant(ctx context.Context, c *model.Consultant) error
	SetConsultantAvatar(ctx context.Context, id, path string) error
	ListConsultantReviews(ctx context.Context, consultantID string) ([]model.Review, error)
}

type ConsultantService struct {
	base
	store  ConsultantStore
	cache  cache.Cache
	static *StaticService
}

func NewConsultantService(st ConsultantStore, c cache.Cache, static *StaticService, log *zap.Logger) *ConsultantService {
	if c == nil {
		c = cache.Nop{}
	}
	return &ConsultantService{base: newBase(log), store: st, cache: c, static: static}
}

// UpdateConsultantInput carries a partial profile; nil fields are left unchanged.
type UpdateConsultantInput struct {
	Name                *string
	Specialty           []string
	Gender              *model.Gender
	Location            *string
	ExperienceYears     *int
	PricePerHour        *int
	TrainingHours       *int
	SupervisionHours    *int
	Bio                 *string
	ConsultationMethods []string
	Availability        *string
	EducationList       []model.Education
	ExperienceList      []model.Experience
	CertificationList   []model.Certification
}

type TagCount struct {
	Tag   string
	Count int
}

type ReviewStats struct {
	Average float64
	Total   int
	Tags    []TagCount
}

// List returns the public directory, served from cache when possible.
func (s *ConsultantService) List(ctx context.Context) ([]model.Consultant, error) {
	var out []model.Consultant
	if ok, err := s.cache.Get(ctx, cache.KeyConsultantList, &out); err != nil {
		s.log.Warn("consultant cache read failed", zap.Error(err))
	} else if ok {
		return out, nil
	}

	out, err := s.store.ListConsultants(ctx)
	if err != nil {
		return nil, s.internal("list consultants", err)
	}
	if err := s.cache.Set(ctx, cache.KeyConsultantList, out, cache.ConsultantsTTL); err != nil {
		s.log.Warn("consultant cache write failed", zap.Error(err))
	}
	return out, nil
}

func (s *ConsultantService) Get(ctx context.Context, id string) (*model.Consultant, error) {
	var c model.Consultant
	if ok, _ := s.cache.Get(ctx, cache.ConsultantKey(id), &c); ok {
		return &c, nil
	}
	got, err := s.store.ConsultantByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr("load consultant", err, apperr.ErrConsultantNotFound)
	}
	if err := s.cache.Set(ctx, cache.ConsultantKey(id), got, cache.ConsultantsTTL); err != nil {
		s.log.Warn("consultant cache write failed", zap.Error(err))
	}
	return got, nil
}

func (s *ConsultantService) Update(ctx context.Context, id string, in UpdateConsultantInput) (*model.Consultant, error) {
	c, err := s.store.ConsultantByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOr("load consultant", err, apperr.ErrConsultantNotFound)
	}

	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Specialty != nil {
		c.Specialty = in.Specialty
	}
	if in.Gender != nil {
		c.Gender = *in.Gender
	}
	if in.Location != nil {
		c.Location = *in.Location
	}
	if in.ExperienceYears != nil {
		c.ExperienceYears = *in.ExperienceYears
	}
	if in.PricePerHour != nil {
		c.PricePerHour = *in.PricePerHour
	}
	if in.TrainingHours != nil {
		c.TrainingHours = *in.TrainingHours
	}
	if in.SupervisionHours != nil {
		c.SupervisionHours = *in.SupervisionHours
	}
	if in.Bio != nil {
		c.Bio = *in.Bio
	}
	if in.ConsultationMethods != nil {
		c.ConsultationMethods = in.ConsultationMethods
	}
	if in.Availability != nil {
		c.Availability = *in.Availability
	}
	if in.EducationList != nil {
		c.EducationList = in.EducationList
	}
	if in.ExperienceList != nil {
		c.ExperienceList = in.ExperienceList
	}
	if in.CertificationList != nil {
		c.CertificationList = in.CertificationList
	}

	if err := s.store.UpdateConsultant(ctx, c); err != nil {
		return nil, s.notFoundOr("update consultant", err, apperr.ErrConsultantNotFound)
	}
	s.invalidate(ctx, id)
	return c, nil
}

// UploadAvatar stores a png or jpeg as consultant/avatars/{id}.{ext} and
// points the profile at it.
func (s *ConsultantService) UploadAvatar(ctx context.Context, id, contentType string, body io.Reader, size int64) (string, error) {
	ext, ok := avatarExt[contentType]
	if !ok {
		return "", apperr.ErrUnsupportedImageType
	}
	c, err := s.store.ConsultantByID(ctx, id)
	if err != nil {
		return "", s.notFoundOr("load consultant", err, apperr.ErrConsultantNotFound)
	}

	desc := "咨询师 " + c.Name + " 的头像"
	res, err := s.static.Upload(ctx, UploadInput{
		Scope:       "consultant",
		Category:    "avatars",
		Filename:    c.ID + "." + ext,
		Description: &desc,
		ContentType: contentType,
		Body:        body,
		Size:        size,
	})
	if err != nil {
		return "", err
	}

	path := res.Path()
	if err := s.store.SetConsultantAvatar(ctx, id, path); err != nil {
		return "", s.notFoundOr("set avatar", err, apperr.ErrConsultantNotFound)
	}
	s.invalidate(ctx, id)
	return path, nil
}

func (s *ConsultantService) Reviews(ctx context.Context, consultantID string) ([]model.Review, error) {
	out, err := s.store.ListConsultantReviews(ctx, consultantID)
	if err != nil {
		return nil, s.internal("list reviews", err)
	}
	return out, nil
}

// Stats summarizes a consultant's reviews: average rounded to two decimals
// and tag frequencies, most frequent first.
func (s *ConsultantService) Stats(ctx context.Context, consultantID string) (*ReviewStats, error) {
	reviews, err := s.Reviews(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	return summarize(reviews), nil
}

func summarize(reviews []model.Review) *ReviewStats {
	st := &ReviewStats{Total: len(reviews), Tags: []TagCount{}}
	if len(reviews) == 0 {
		return st
	}

	sum := 0
	counts := map[string]int{}
	for _, r := range reviews {
		sum += r.Rating
		for _, t := range r.Tags {
			counts[t]++
		}
	}
	st.Average = math.Round(float64(sum)/float64(len(reviews))*100) / 100

	for tag, n := range counts {
		st.Tags = append(st.Tags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(st.Tags, func(i, j int) bool {
		if st.Tags[i].Count != st.Tags[j].Count {
			return st.Tags[i].Count > st.Tags[j].Count
		}
		return st.Tags[i].Tag < st.Tags[j].Tag
	})
	return st
}

func (s *ConsultantService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cache.KeyConsultantList, cache.ConsultantKey(id)); err != nil {
		s.log.Warn("consultant cache invalidation failed", zap.Error(err))
	}
}

var avatarExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
}
