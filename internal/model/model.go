package model

import "time"

type Role string

const (
	RoleUser       Role = "USER"
	RoleConsultant Role = "CONSULTANT"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleConsultant, RoleAdmin:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderUnknown Gender = "UNKNOWN"
)

// defaults assigned at registration; reported as null in profiles
const (
	DefaultUserName         = "开发用户"
	DefaultUserAvatar       = "user/avatars/default.jpg"
	DefaultRegion           = "未知"
	DefaultConsultantAvatar = "consultant/avatars/default.jpg"
	DefaultConsultantLevel  = "初级咨询师"
)

type User struct {
	ID           string
	Phone        string
	PasswordHash string `json:"-"`
	Name         string
	Age          int
	Gender       Gender
	Region       string
	Avatar       string
	Birthday     *time.Time
	Hobby        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Education struct {
	Degree string `json:"degree"`
	School string `json:"school"`
	Major  string `json:"major"`
	Time   string `json:"time"`
}

type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type Certification struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

type Consultant struct {
	ID                  string
	Phone               string
	PasswordHash        string `json:"-"`
	Name                string
	Level               string
	Specialty           []string
	Gender              Gender
	Location            string
	Rating              float64
	Avatar              string
	ExperienceYears     int
	ConsultationCount   int
	PricePerHour        int
	TrainingHours       int
	SupervisionHours    int
	Bio                 string
	ConsultationMethods []string
	Availability        string
	EducationList       []Education
	ExperienceList      []Experience
	CertificationList   []Certification
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

type ConsultantApplication struct {
	ID              string
	UserID          string
	Name            string
	IDCardNumber    string
	Phone           string
	Education       string
	University      string
	Major           string
	LicenseNumber   *string
	ExperienceYears int
	Specialty       []string
	Bio             string
	Reason          string
	Status          ApplicationStatus
	ReviewComment   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Review struct {
	ID            string
	UserID        string
	ConsultantID  string
	AppointmentID *string
	Rating        int
	Content       *string
	Tags          []string
	CreatedAt     time.Time
}

type StaticResource struct {
	ID          string
	Scope       string
	Category    string
	Filename    string
	Description *string
	Valid       bool
	CreatedAt   time.Time
}

// Path is the object key and the relative path stored on profiles.
func (r *StaticResource) Path() string {
	return r.Scope + "/" + r.Category + "/" + r.Filename
}

type RefreshToken struct {
	ID         string
	Subject    string
	Role       Role
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}
