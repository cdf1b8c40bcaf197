package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound    = errors.New("challenge room not found")
	ErrRoomFull        = errors.New("challenge room is full")
	ErrAlreadyJoined   = errors.New("already joined challenge")
	ErrNotJoined       = errors.New("not a challenge member")
	ErrRoomClosed      = errors.New("challenge room already ended")
	ErrRecordNotFound  = errors.New("record not found")
	ErrRecordExists    = errors.New("record for this day already exists")
	ErrInvalidCategory = errors.New("invalid challenge category")
	ErrInvalidPeriod   = errors.New("invalid challenge period")
)

const dateLayout = "2006-01-02"

type Challenge struct {
	log      *slog.Logger
	rooms    RoomStorage
	members  MemberStorage
	records  RecordStorage
	users    UserDirectory
	photos   PhotoStore
	commits  CommitSource
	problems ProblemSource
}

type RoomStorage interface {
	SaveRoom(ctx context.Context, room models.ChallengeRoom) (int64, error)
	Room(ctx context.Context, id int64) (models.ChallengeRoom, error)
	Rooms(ctx context.Context, ids []int64) ([]models.ChallengeRoom, error)
	SimpleRooms(ctx context.Context, category, search string, size int, offset int64) ([]models.ChallengeRoom, error)
	ActiveRooms(ctx context.Context, date string) ([]models.ChallengeRoom, error)
}

type MemberStorage interface {
	SaveMember(ctx context.Context, m models.UserChallenge) (int64, error)
	Member(ctx context.Context, userID, roomID int64) (models.UserChallenge, error)
	MembersByRoom(ctx context.Context, roomID int64) ([]models.UserChallenge, error)
	MembersByUser(ctx context.Context, userID int64, status string) ([]models.UserChallenge, error)
	MemberCount(ctx context.Context, roomID int64) (int, error)
	UpdateMemberCounts(ctx context.Context, memberID int64, commitCount, solvedCount int) error
	UpdateMemberSettlement(ctx context.Context, memberID int64, payment int64, diligence int) error
	UpdateMemberStatus(ctx context.Context, memberID int64, status string) error
}

type RecordStorage interface {
	SaveRecord(ctx context.Context, rec models.ChallengeRecord) (int64, error)
	Record(ctx context.Context, id int64) (models.ChallengeRecord, error)
	RecordByMemberAndDate(ctx context.Context, memberID int64, date string) (models.ChallengeRecord, error)
	RecordsByMember(ctx context.Context, memberID int64) ([]models.ChallengeRecord, error)
	RecordsByRoomAndDate(ctx context.Context, roomID int64, date string) ([]models.ChallengeRecord, error)
	MarkRecordSuccess(ctx context.Context, recordID int64) error
	IncrementReportCount(ctx context.Context, recordID int64) error
	SuccessCounts(ctx context.Context, roomID int64) (map[int64]int, error)
}

// UserDirectory отдает никнеймы для таблицы рангов.
type UserDirectory interface {
	Nicknames(ctx context.Context, userIDs []int64) (map[int64]string, error)
}

type PhotoStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type CommitSource interface {
	CommitCount(ctx context.Context, githubID string) (int, error)
}

type ProblemSource interface {
	SolvedCount(ctx context.Context, baekjoonID string) (int, error)
}

func New(
	log *slog.Logger,
	rooms RoomStorage,
	members MemberStorage,
	records RecordStorage,
	users UserDirectory,
	photos PhotoStore,
	commits CommitSource,
	problems ProblemSource,
) *Challenge {
	return &Challenge{
		log:      log,
		rooms:    rooms,
		members:  members,
		records:  records,
		users:    users,
		photos:   photos,
		commits:  commits,
		problems: problems,
	}
}

// * CreateRoom создает комнату; картинка (если есть) уходит в хранилище фото.
func (c *Challenge) CreateRoom(ctx context.Context, room models.ChallengeRoom, image []byte, contentType string) (int64, error) {
	const op = "challenge.CreateRoom"

	log := c.log.With(slog.String("op", op))

	switch room.Category {
	case models.CategoryPhoto, models.CategoryAlgo, models.CategoryCommit:
	default:
		return 0, ErrInvalidCategory
	}

	if !room.StartDate.Before(room.EndDate) || room.Capacity <= 0 {
		return 0, ErrInvalidPeriod
	}

	if len(image) > 0 {
		key := fmt.Sprintf("rooms/%s", uuid.New().String())

		url, err := c.photos.Upload(ctx, key, image, contentType)
		if err != nil {
			log.Error("failed to upload room image", sl.Err(err))
			return 0, err
		}

		room.ImageURL = url
	}

	id, err := c.rooms.SaveRoom(ctx, room)
	if err != nil {
		log.Error("failed to save room", sl.Err(err))
		return 0, err
	}

	log.Info("challenge room created", slog.Int64("room_id", id))

	return id, nil
}

func (c *Challenge) Room(ctx context.Context, id int64) (models.ChallengeRoom, error) {
	room, err := c.rooms.Room(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return models.ChallengeRoom{}, ErrRoomNotFound
		}

		return models.ChallengeRoom{}, err
	}

	return room, nil
}

func (c *Challenge) RoomInfoList(ctx context.Context, ids []int64) (map[int64]models.ChallengeRoom, error) {
	rooms, err := c.rooms.Rooms(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.ChallengeRoom, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
	}

	return byID, nil
}

func (c *Challenge) ListSimple(ctx context.Context, category, search string, size int, offset int64) ([]models.ChallengeRoom, error) {
	if size <= 0 || size > 100 {
		size = 20
	}

	return c.rooms.SimpleRooms(ctx, category, search, size, offset)
}

// * JoinRoom добавляет участника с проекцией его внешних аккаунтов.
func (c *Challenge) JoinRoom(ctx context.Context, userID, roomID int64, githubID, baekjoonID string) (int64, error) {
	const op = "challenge.JoinRoom"

	log := c.log.With(slog.String("op", op))

	room, err := c.rooms.Room(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return 0, ErrRoomNotFound
		}

		return 0, err
	}

	if time.Now().After(room.EndDate) {
		log.Warn("room already ended", slog.Int64("room_id", roomID))
		return 0, ErrRoomClosed
	}

	count, err := c.members.MemberCount(ctx, roomID)
	if err != nil {
		log.Error("failed to count members", sl.Err(err))
		return 0, err
	}

	if count >= room.Capacity {
		log.Warn("room is full", slog.Int64("room_id", roomID))
		return 0, ErrRoomFull
	}

	member := models.UserChallenge{
		UserID:          userID,
		ChallengeRoomID: roomID,
		Status:          models.ChallengeStatusProceed,
		Payment:         room.EntryFee,
		GithubID:        githubID,
		BaekjoonID:      baekjoonID,
	}

	id, err := c.members.SaveMember(ctx, member)
	if err != nil {
		if errors.Is(err, storage.ErrMemberExists) {
			return 0, ErrAlreadyJoined
		}

		log.Error("failed to save member", sl.Err(err))
		return 0, err
	}

	log.Info("user joined challenge", slog.Int64("uid", userID), slog.Int64("room_id", roomID))

	return id, nil
}

// * CheckJoin сообщает, состоит ли пользователь в комнате.
func (c *Challenge) CheckJoin(ctx context.Context, userID, roomID int64) (bool, error) {
	_, err := c.members.Member(ctx, userID, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// * MyChallenges возвращает участия пользователя вместе с комнатами.
func (c *Challenge) MyChallenges(ctx context.Context, userID int64, status string) ([]models.UserChallenge, map[int64]models.ChallengeRoom, error) {
	members, err := c.members.MembersByUser(ctx, userID, status)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ChallengeRoomID)
	}

	rooms, err := c.RoomInfoList(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	return members, rooms, nil
}

func (c *Challenge) member(ctx context.Context, userID, roomID int64) (models.UserChallenge, error) {
	m, err := c.members.Member(ctx, userID, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			return models.UserChallenge{}, ErrNotJoined
		}

		return models.UserChallenge{}, err
	}

	return m, nil
}

// * TopRank сортирует участников комнаты по числу успешных записей.
func (c *Challenge) TopRank(ctx context.Context, roomID int64) ([]models.Rank, error) {
	const op = "challenge.TopRank"

	log := c.log.With(slog.String("op", op))

	if _, err := c.Room(ctx, roomID); err != nil {
		return nil, err
	}

	members, err := c.members.MembersByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	counts, err := c.records.SuccessCounts(ctx, roomID)
	if err != nil {
		log.Error("failed to load success counts", sl.Err(err))
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}

	nicknames, err := c.users.Nicknames(ctx, ids)
	if err != nil {
		log.Error("failed to load nicknames", sl.Err(err))
		return nil, err
	}

	ranks := make([]models.Rank, 0, len(members))
	for _, m := range members {
		ranks = append(ranks, models.Rank{
			UserID:       m.UserID,
			Nickname:     nicknames[m.UserID],
			SuccessCount: counts[m.UserID],
		})
	}

	// Стабильная сортировка сохраняет порядок вступления при равных результатах.
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].SuccessCount > ranks[j].SuccessCount
	})

	return ranks, nil
}

// * Progress показывает успехи пользователя относительно прошедших дней.
func (c *Challenge) Progress(ctx context.Context, userID, roomID int64) (models.Progress, error) {
	room, err := c.Room(ctx, roomID)
	if err != nil {
		return models.Progress{}, err
	}

	m, err := c.member(ctx, userID, roomID)
	if err != nil {
		return models.Progress{}, err
	}

	recs, err := c.records.RecordsByMember(ctx, m.ID)
	if err != nil {
		return models.Progress{}, err
	}

	success, fail := 0, 0
	for _, rec := range recs {
		if rec.Success {
			success++
		} else {
			fail++
		}
	}

	total := daysElapsed(room, time.Now())

	percent := 0
	if total > 0 {
		percent = success * 100 / total
	}

	return models.Progress{
		UserID:       userID,
		RoomID:       roomID,
		TotalDays:    total,
		SuccessCount: success,
		FailCount:    fail,
		Percent:      percent,
	}, nil
}

func daysElapsed(room models.ChallengeRoom, now time.Time) int {
	if now.Before(room.StartDate) {
		return 0
	}

	end := now
	if end.After(room.EndDate) {
		end = room.EndDate
	}

	return int(end.Sub(room.StartDate).Hours()/24) + 1
}
