package models

import "time"

type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Name     string
	Nickname string
}

// EmailAuth хранит одноразовую запись подтверждения почты.
type EmailAuth struct {
	ID         int64
	Email      string
	AuthToken  string
	IsChecked  bool
	ExpireDate time.Time
}

func (e *EmailAuth) IsExpired(now time.Time) bool {
	return now.After(e.ExpireDate)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type EmailMessage struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Категории челленджей.
const (
	CategoryPhoto  = "photo"
	CategoryAlgo   = "algo"
	CategoryCommit = "commit"
)

type ChallengeRoom struct {
	ID          int64
	HostID      int64
	Title       string
	Category    string
	Description string
	EntryFee    int64
	Penalty     int64
	Capacity    int
	StartDate   time.Time
	EndDate     time.Time
	ImageURL    string
}

// UserChallenge связывает пользователя с комнатой и хранит проекцию
// его внешних аккаунтов и накопленных показателей.
type UserChallenge struct {
	ID              int64
	UserID          int64
	ChallengeRoomID int64
	Status          string
	Diligence       int
	Payment         int64
	GithubID        string
	BaekjoonID      string
	CommitCount     int
	SolvedCount     int
}

// Статусы участия.
const (
	ChallengeStatusProceed = "proceed"
	ChallengeStatusDone    = "done"
)

type ChallengeRecord struct {
	ID              int64
	UserChallengeID int64
	Category        string
	Success         bool
	ReportCount     int
	PhotoURL        string
	Content         string
	CreatedDate     string // YYYY-MM-DD
}

type Rank struct {
	UserID       int64
	Nickname     string
	SuccessCount int
}

type Progress struct {
	UserID       int64
	RoomID       int64
	TotalDays    int
	SuccessCount int
	FailCount    int
	Percent      int
}
