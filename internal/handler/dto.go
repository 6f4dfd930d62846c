package handler

import (
	"time"

	"counseling-api/internal/model"
	"counseling-api/internal/service"
)

const dateLayout = "2006-01-02"

type tokenResponse struct {
	ID           string     `json:"id"`
	Role         model.Role `json:"role"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresIn    int64      `json:"expiresIn"`
}

func toTokens(t *service.Tokens) tokenResponse {
	return tokenResponse{
		ID:           t.SubjectID,
		Role:         t.Role,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    int64(t.ExpiresIn.Seconds()),
	}
}

// profileResponse reports registration defaults as null.
type profileResponse struct {
	ID       string        `json:"id"`
	Phone    string        `json:"phone"`
	Name     *string       `json:"name"`
	Avatar   *string       `json:"avatar"`
	Birthday *string       `json:"birthday"`
	Age      *int          `json:"age"`
	Gender   *model.Gender `json:"gender"`
	Region   *string       `json:"region"`
	Hobby    *string       `json:"hobby"`
}

func unlessEq[T comparable](v, def T) *T {
	if v == def {
		return nil
	}
	return &v
}

func toProfile(u *model.User) profileResponse {
	p := profileResponse{
		ID:     u.ID,
		Phone:  u.Phone,
		Name:   unlessEq(u.Name, model.DefaultUserName),
		Avatar: unlessEq(u.Avatar, model.DefaultUserAvatar),
		Age:    unlessEq(u.Age, 0),
		Gender: unlessEq(u.Gender, model.GenderUnknown),
		Region: unlessEq(u.Region, model.DefaultRegion),
	}
	if p.Name != nil && *p.Name == "" {
		p.Name = nil
	}
	if u.Birthday != nil {
		d := u.Birthday.Format(dateLayout)
		p.Birthday = &d
	}
	if u.Hobby != nil && *u.Hobby != "" {
		p.Hobby = u.Hobby
	}
	return p
}

type consultantResponse struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name"`
	Level               string                `json:"level"`
	Specialty           []string              `json:"specialty"`
	Gender              model.Gender          `json:"gender"`
	Location            string                `json:"location"`
	Rating              float64               `json:"rating"`
	Avatar              string                `json:"avatar"`
	ExperienceYears     int                   `json:"experienceYears"`
	ConsultationCount   int                   `json:"consultationCount"`
	PricePerHour        int                   `json:"pricePerHour"`
	TrainingHours       int                   `json:"trainingHours"`
	SupervisionHours    int                   `json:"supervisionHours"`
	Bio                 string                `json:"bio"`
	ConsultationMethods []string              `json:"consultationMethods"`
	Availability        string                `json:"availability"`
	EducationList       []model.Education     `json:"educationList"`
	ExperienceList      []model.Experience    `json:"experienceList"`
	CertificationList   []model.Certification `json:"certificationList"`
}

func toConsultant(c *model.Consultant) consultantResponse {
	return consultantResponse{
		ID:                  c.ID,
		Name:                c.Name,
		Level:               c.Level,
		Specialty:           nonNil(c.Specialty),
		Gender:              c.Gender,
		Location:            c.Location,
		Rating:              c.Rating,
		Avatar:              c.Avatar,
		ExperienceYears:     c.ExperienceYears,
		ConsultationCount:   c.ConsultationCount,
		PricePerHour:        c.PricePerHour,
		TrainingHours:       c.TrainingHours,
		SupervisionHours:    c.SupervisionHours,
		Bio:                 c.Bio,
		ConsultationMethods: nonNil(c.ConsultationMethods),
		Availability:        c.Availability,
		EducationList:       nonNil(c.EducationList),
		ExperienceList:      nonNil(c.ExperienceList),
		CertificationList:   nonNil(c.CertificationList),
	}
}

type appointmentResponse struct {
	ID             string                  `json:"id"`
	UserID         string                  `json:"userId"`
	UserName       string                  `json:"userName,omitempty"`
	UserAvatar     string                  `json:"userAvatar,omitempty"`
	ConsultantID   string                  `json:"consultantId"`
	ConsultantName string                  `json:"consultantName,omitempty"`
	StartTime      time.Time               `json:"startTime"`
	EndTime        time.Time               `json:"endTime"`
	Status         model.AppointmentStatus `json:"status"`
	Note           *string                 `json:"note"`
	CancelReason   *string                 `json:"cancelReason,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
}

func toAppointment(a *model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		UserName:       a.UserName,
		UserAvatar:     a.UserAvatar,
		ConsultantID:   a.ConsultantID,
		ConsultantName: a.ConsultantName,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Status:         a.Status,
		Note:           a.Note,
		CancelReason:   a.CancelReason,
		CreatedAt:      a.CreatedAt,
	}
}

type reviewResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ConsultantID  string    `json:"consultantId"`
	AppointmentID *string   `json:"appointmentId"`
	Rating        int       `json:"rating"`
	Content       *string   `json:"content"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toReview(r *model.Review) reviewResponse {
	return reviewResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		ConsultantID:  r.ConsultantID,
		AppointmentID: r.AppointmentID,
		Rating:        r.Rating,
		Content:       r.Content,
		Tags:          nonNil(r.Tags),
		CreatedAt:     r.CreatedAt,
	}
}

type statsResponse struct {
	ConsultantID string     `json:"consultantId"`
	AvgRating    float64    `json:"avgRating"`
	TotalReviews int        `json:"totalReviews"`
	Tags         []tagCount `json:"tags"`
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func toStats(id string, s *service.ReviewStats) statsResponse {
	out := statsResponse{ConsultantID: id, AvgRating: s.Average, TotalReviews: s.Total, Tags: []tagCount{}}
	for _, t := range s.Tags {
		out.Tags = append(out.Tags, tagCount{Tag: t.Tag, Count: t.Count})
	}
	return out
}

type applicationResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"userId"`
	Name            string                  `json:"name"`
	IDCardNumber    string                  `json:"idCardNumber"`
	Phone           string                  `json:"phone"`
	Education       string                  `json:"education"`
	University      string                  `json:"university"`
	Major           string                  `json:"major"`
	LicenseNumber   *string                 `json:"licenseNumber"`
	ExperienceYears int                     `json:"experienceYears"`
	Specialty       []string                `json:"specialty"`
	Bio             string                  `json:"bio"`
	Reason          string                  `json:"reason"`
	Status          model.ApplicationStatus `json:"status"`
	ReviewComment   *string                 `json:"reviewComment"`
	CreatedAt       time.Time               `json:"createdAt"`
}

func toApplication(a *model.ConsultantApplication) applicationResponse {
	return applicationResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		Name:            a.Name,
		IDCardNumber:    a.IDCardNumber,
		Phone:           a.Phone,
		Education:       a.Education,
		University:      a.University,
		Major:           a.Major,
		LicenseNumber:   a.LicenseNumber,
		ExperienceYears: a.ExperienceYears,
		Specialty:       nonNil(a.Specialty),
		Bio:             a.Bio,
		Reason:          a.Reason,
		Status:          a.Status,
		ReviewComment:   a.ReviewComment,
		CreatedAt:       a.CreatedAt,
	}
}

type resourceResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path"`
	Valid       bool      `json:"valid"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResource(r *model.StaticResource) resourceResponse {
	return resourceResponse{
		ID:          r.ID,
		Filename:    r.Filename,
		Path:        r.Path(),
		Valid:       r.Valid,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func toTree(t service.Tree) map[string]map[string][]resourceResponse {
	out := make(map[string]map[string][]resourceResponse, len(t))
	for scope, cats := range t {
		out[scope] = make(map[string][]resourceResponse, len(cats))
		for cat, list := range cats {
			items := make([]resourceResponse, len(list))
			for i := range list {
				items[i] = toResource(&list[i])
			}
			out[scope][cat] = items
		}
	}
	return out
}

// wishResponse never carries the author.
type wishResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Images    []string  `json:"images"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"createdAt"`
	LikeCount int64     `json:"likeCount"`
	LikedByMe bool      `json:"likedByMe"`
	Mine      bool      `json:"mine"`
	QuoteID   *string   `json:"quoteId"`
}

func toWish(w *model.WishView, viewerID string) wishResponse {
	return wishResponse{
		ID:        w.ID,
		Content:   w.Content,
		Images:    nonNil(w.Images),
		Anonymous: w.Anonymous,
		CreatedAt: w.CreatedAt,
		LikeCount: w.LikeCount,
		LikedByMe: w.LikedByMe,
		Mine:      w.UserID == viewerID,
		QuoteID:   w.QuoteID,
	}
}

type authorCardResponse struct {
	Anonymous bool    `json:"anonymous"`
	Name      *string `json:"name"`
	JointDate *string `json:"jointDate"`
}

func toAuthorCard(c *service.AuthorCard) authorCardResponse {
	out := authorCardResponse{Anonymous: c.Anonymous, Name: c.Name}
	if c.JoinedAt != nil {
		d := c.JoinedAt.Format(dateLayout)
		out.JointDate = &d
	}
	return out
}

func mapSlice[T, R any](in []T, f func(*T) R) []R {
	out := make([]R, len(in))
	for i := range in {
		out[i] = f(&in[i])
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
