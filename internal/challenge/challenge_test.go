package challenge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rooms   map[int64]models.ChallengeRoom
	members map[int64]models.UserChallenge
	records map[int64]models.ChallengeRecord

	nextRoomID   int64
	nextMemberID int64
	nextRecordID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rooms:        make(map[int64]models.ChallengeRoom),
		members:      make(map[int64]models.UserChallenge),
		records:      make(map[int64]models.ChallengeRecord),
		nextRoomID:   1,
		nextMemberID: 1,
		nextRecordID: 1,
	}
}

func (f *fakeRepo) SaveRoom(_ context.Context, room models.ChallengeRoom) (int64, error) {
	id := f.nextRoomID
	f.nextRoomID++
	room.ID = id
	f.rooms[id] = room

	return id, nil
}

func (f *fakeRepo) Room(_ context.Context, id int64) (models.ChallengeRoom, error) {
	room, ok := f.rooms[id]
	if !ok {
		return models.ChallengeRoom{}, storage.ErrRoomNotFound
	}

	return room, nil
}

func (f *fakeRepo) Rooms(_ context.Context, ids []int64) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom
	for _, id := range ids {
		if room, ok := f.rooms[id]; ok {
			rooms = append(rooms, room)
		}
	}

	return rooms, nil
}

func (f *fakeRepo) SimpleRooms(_ context.Context, category, search string, size int, offset int64) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom
	for _, room := range f.rooms {
		if category == "" || room.Category == category {
			rooms = append(rooms, room)
		}
	}

	return rooms, nil
}

func (f *fakeRepo) ActiveRooms(_ context.Context, date string) ([]models.ChallengeRoom, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, err
	}

	var rooms []models.ChallengeRoom
	for _, room := range f.rooms {
		if !day.Before(room.StartDate) && !day.After(room.EndDate) {
			rooms = append(rooms, room)
		}
	}

	return rooms, nil
}

func (f *fakeRepo) SaveMember(_ context.Context, m models.UserChallenge) (int64, error) {
	for _, existing := range f.members {
		if existing.UserID == m.UserID && existing.ChallengeRoomID == m.ChallengeRoomID {
			return 0, storage.ErrMemberExists
		}
	}

	id := f.nextMemberID
	f.nextMemberID++
	m.ID = id
	f.members[id] = m

	return id, nil
}

func (f *fakeRepo) Member(_ context.Context, userID, roomID int64) (models.UserChallenge, error) {
	for _, m := range f.members {
		if m.UserID == userID && m.ChallengeRoomID == roomID {
			return m, nil
		}
	}

	return models.UserChallenge{}, storage.ErrMemberNotFound
}

func (f *fakeRepo) MembersByRoom(_ context.Context, roomID int64) ([]models.UserChallenge, error) {
	var members []models.UserChallenge
	for _, m := range f.members {
		if m.ChallengeRoomID == roomID {
			members = append(members, m)
		}
	}

	return members, nil
}

func (f *fakeRepo) MembersByUser(_ context.Context, userID int64, status string) ([]models.UserChallenge, error) {
	var members []models.UserChallenge
	for _, m := range f.members {
		if m.UserID == userID && (status == "" || m.Status == status) {
			members = append(members, m)
		}
	}

	return members, nil
}

func (f *fakeRepo) MemberCount(_ context.Context, roomID int64) (int, error) {
	count := 0
	for _, m := range f.members {
		if m.ChallengeRoomID == roomID {
			count++
		}
	}

	return count, nil
}

func (f *fakeRepo) UpdateMemberCounts(_ context.Context, memberID int64, commitCount, solvedCount int) error {
	m, ok := f.members[memberID]
	if !ok {
		return storage.ErrMemberNotFound
	}

	m.CommitCount = commitCount
	m.SolvedCount = solvedCount
	f.members[memberID] = m

	return nil
}

func (f *fakeRepo) UpdateMemberSettlement(_ context.Context, memberID int64, payment int64, diligence int) error {
	m, ok := f.members[memberID]
	if !ok {
		return storage.ErrMemberNotFound
	}

	m.Payment = payment
	m.Diligence = diligence
	f.members[memberID] = m

	return nil
}

func (f *fakeRepo) UpdateMemberStatus(_ context.Context, memberID int64, status string) error {
	m, ok := f.members[memberID]
	if !ok {
		return storage.ErrMemberNotFound
	}

	m.Status = status
	f.members[memberID] = m

	return nil
}

func (f *fakeRepo) SaveRecord(_ context.Context, rec models.ChallengeRecord) (int64, error) {
	id := f.nextRecordID
	f.nextRecordID++
	rec.ID = id
	f.records[id] = rec

	return id, nil
}

func (f *fakeRepo) Record(_ context.Context, id int64) (models.ChallengeRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return models.ChallengeRecord{}, storage.ErrRecordNotFound
	}

	return rec, nil
}

func (f *fakeRepo) RecordByMemberAndDate(_ context.Context, memberID int64, date string) (models.ChallengeRecord, error) {
	for _, rec := range f.records {
		if rec.UserChallengeID == memberID && rec.CreatedDate == date {
			return rec, nil
		}
	}

	return models.ChallengeRecord{}, storage.ErrRecordNotFound
}

func (f *fakeRepo) RecordsByMember(_ context.Context, memberID int64) ([]models.ChallengeRecord, error) {
	var recs []models.ChallengeRecord
	for _, rec := range f.records {
		if rec.UserChallengeID == memberID {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

func (f *fakeRepo) RecordsByRoomAndDate(_ context.Context, roomID int64, date string) ([]models.ChallengeRecord, error) {
	var recs []models.ChallengeRecord
	for _, rec := range f.records {
		m := f.members[rec.UserChallengeID]
		if m.ChallengeRoomID == roomID && rec.CreatedDate == date {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

func (f *fakeRepo) MarkRecordSuccess(_ context.Context, recordID int64) error {
	rec, ok := f.records[recordID]
	if !ok {
		return storage.ErrRecordNotFound
	}

	rec.Success = true
	f.records[recordID] = rec

	return nil
}

func (f *fakeRepo) IncrementReportCount(_ context.Context, recordID int64) error {
	rec, ok := f.records[recordID]
	if !ok {
		return storage.ErrRecordNotFound
	}

	rec.ReportCount++
	f.records[recordID] = rec

	return nil
}

func (f *fakeRepo) SuccessCounts(_ context.Context, roomID int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	for _, m := range f.members {
		if m.ChallengeRoomID != roomID {
			continue
		}

		counts[m.UserID] = 0
		for _, rec := range f.records {
			if rec.UserChallengeID == m.ID && rec.Success {
				counts[m.UserID]++
			}
		}
	}

	return counts, nil
}

func (f *fakeRepo) Nicknames(_ context.Context, userIDs []int64) (map[int64]string, error) {
	nicknames := make(map[int64]string, len(userIDs))
	for _, id := range userIDs {
		nicknames[id] = fmt.Sprintf("user%d", id)
	}

	return nicknames, nil
}

type fakePhotos struct {
	uploads int
}

func (f *fakePhotos) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.uploads++
	return "https://photos.test/" + key, nil
}

type fakeCounter struct {
	count int
	err   error
}

func (f *fakeCounter) CommitCount(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

func (f *fakeCounter) SolvedCount(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

type challengeEnv struct {
	svc     *Challenge
	repo    *fakeRepo
	photos  *fakePhotos
	counter *fakeCounter
}

func newChallengeEnv(t *testing.T) *challengeEnv {
	t.Helper()

	repo := newFakeRepo()
	photos := &fakePhotos{}
	counter := &fakeCounter{}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(log, repo, repo, repo, repo, photos, counter, counter)

	return &challengeEnv{svc: svc, repo: repo, photos: photos, counter: counter}
}

func (e *challengeEnv) addRoom(t *testing.T, category string, capacity int, penalty int64) int64 {
	t.Helper()

	id, err := e.repo.SaveRoom(context.Background(), models.ChallengeRoom{
		HostID:    1,
		Title:     "test room",
		Category:  category,
		Penalty:   penalty,
		Capacity:  capacity,
		StartDate: time.Now().AddDate(0, 0, -3),
		EndDate:   time.Now().AddDate(0, 0, 4),
	})
	require.NoError(t, err)

	return id
}

func TestCreateRoom(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	t.Run("invalid category", func(t *testing.T) {
		_, err := env.svc.CreateRoom(ctx, models.ChallengeRoom{Category: "running"}, nil, "")
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := env.svc.CreateRoom(ctx, models.ChallengeRoom{
			Category:  models.CategoryPhoto,
			Capacity:  5,
			StartDate: time.Now().AddDate(0, 0, 7),
			EndDate:   time.Now(),
		}, nil, "")
		assert.ErrorIs(t, err, ErrInvalidPeriod)
	})

	t.Run("image goes to the photo store", func(t *testing.T) {
		id, err := env.svc.CreateRoom(ctx, models.ChallengeRoom{
			Category:  models.CategoryPhoto,
			Capacity:  5,
			StartDate: time.Now(),
			EndDate:   time.Now().AddDate(0, 0, 7),
		}, []byte("img"), "image/png")
		require.NoError(t, err)

		assert.Equal(t, 1, env.photos.uploads)
		assert.NotEmpty(t, env.repo.rooms[id].ImageURL)
	})
}

func TestJoinRoom(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryCommit, 2, 100)

	_, err := env.svc.JoinRoom(ctx, 10, roomID, "gh10", "")
	require.NoError(t, err)

	t.Run("duplicate join", func(t *testing.T) {
		_, err := env.svc.JoinRoom(ctx, 10, roomID, "gh10", "")
		assert.ErrorIs(t, err, ErrAlreadyJoined)
	})

	t.Run("room full", func(t *testing.T) {
		_, err := env.svc.JoinRoom(ctx, 11, roomID, "gh11", "")
		require.NoError(t, err)

		_, err = env.svc.JoinRoom(ctx, 12, roomID, "gh12", "")
		assert.ErrorIs(t, err, ErrRoomFull)
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := env.svc.JoinRoom(ctx, 10, 999, "", "")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("ended room", func(t *testing.T) {
		endedID, err := env.repo.SaveRoom(ctx, models.ChallengeRoom{
			HostID:    1,
			Title:     "over",
			Category:  models.CategoryCommit,
			Capacity:  5,
			StartDate: time.Now().AddDate(0, 0, -10),
			EndDate:   time.Now().AddDate(0, 0, -3),
		})
		require.NoError(t, err)

		_, err = env.svc.JoinRoom(ctx, 13, endedID, "gh13", "")
		assert.ErrorIs(t, err, ErrRoomClosed)
	})

	t.Run("check join", func(t *testing.T) {
		joined, err := env.svc.CheckJoin(ctx, 10, roomID)
		require.NoError(t, err)
		assert.True(t, joined)

		joined, err = env.svc.CheckJoin(ctx, 99, roomID)
		require.NoError(t, err)
		assert.False(t, joined)
	})
}

func TestCreateCommitRecord(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryCommit, 5, 100)

	memberID, err := env.svc.JoinRoom(ctx, 10, roomID, "gh10", "")
	require.NoError(t, err)

	t.Run("new commits mean success", func(t *testing.T) {
		env.counter.count = 7

		recID, err := env.svc.CreateCommitRecord(ctx, 10, roomID)
		require.NoError(t, err)

		assert.True(t, env.repo.records[recID].Success)
		assert.Equal(t, 7, env.repo.members[memberID].CommitCount)
	})

	t.Run("second record for the same day is rejected", func(t *testing.T) {
		_, err := env.svc.CreateCommitRecord(ctx, 10, roomID)
		assert.ErrorIs(t, err, ErrRecordExists)
	})

	t.Run("not a member", func(t *testing.T) {
		_, err := env.svc.CreateCommitRecord(ctx, 99, roomID)
		assert.ErrorIs(t, err, ErrNotJoined)
	})
}

func TestCreatePhotoRecord(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryPhoto, 5, 100)

	_, err := env.svc.JoinRoom(ctx, 10, roomID, "", "")
	require.NoError(t, err)

	recID, err := env.svc.CreatePhotoRecord(ctx, 10, roomID, []byte("photo"), "image/jpeg", "done!")
	require.NoError(t, err)

	rec := env.repo.records[recID]
	assert.True(t, rec.Success)
	assert.NotEmpty(t, rec.PhotoURL)
	assert.Equal(t, 1, env.photos.uploads)
}

func TestTopRank(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryPhoto, 5, 100)

	m1, err := env.svc.JoinRoom(ctx, 10, roomID, "", "")
	require.NoError(t, err)
	m2, err := env.svc.JoinRoom(ctx, 11, roomID, "", "")
	require.NoError(t, err)

	// Участник 11 успешнее участника 10.
	for i, date := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		_, err := env.repo.SaveRecord(ctx, models.ChallengeRecord{
			UserChallengeID: m2,
			Category:        models.CategoryPhoto,
			Success:         true,
			CreatedDate:     date,
		})
		require.NoError(t, err)

		if i == 0 {
			_, err := env.repo.SaveRecord(ctx, models.ChallengeRecord{
				UserChallengeID: m1,
				Category:        models.CategoryPhoto,
				Success:         true,
				CreatedDate:     date,
			})
			require.NoError(t, err)
		}
	}

	ranks, err := env.svc.TopRank(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, ranks, 2)

	assert.Equal(t, int64(11), ranks[0].UserID)
	assert.Equal(t, 3, ranks[0].SuccessCount)
	assert.Equal(t, "user11", ranks[0].Nickname)
	assert.Equal(t, int64(10), ranks[1].UserID)
}

func TestCreateDailyRecords(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryAlgo, 5, 100)

	m1, err := env.svc.JoinRoom(ctx, 10, roomID, "", "bj10")
	require.NoError(t, err)
	m2, err := env.svc.JoinRoom(ctx, 11, roomID, "", "bj11")
	require.NoError(t, err)

	date := time.Now().Format(dateLayout)

	// У участника 10 запись за день уже есть.
	_, err = env.repo.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m1,
		Category:        models.CategoryAlgo,
		Success:         true,
		CreatedDate:     date,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.CreateDailyRecords(ctx, date))

	rec1, err := env.repo.RecordByMemberAndDate(ctx, m1, date)
	require.NoError(t, err)
	assert.True(t, rec1.Success, "existing record must not be overwritten")

	rec2, err := env.repo.RecordByMemberAndDate(ctx, m2, date)
	require.NoError(t, err)
	assert.False(t, rec2.Success, "missing record becomes a failed placeholder")
}

func TestSelfRecordByDate(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryPhoto, 5, 100)

	m1, err := env.svc.JoinRoom(ctx, 10, roomID, "", "")
	require.NoError(t, err)

	date := time.Now().Format(dateLayout)

	_, err = env.repo.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m1, Category: models.CategoryPhoto, Success: true, Content: "done", CreatedDate: date,
	})
	require.NoError(t, err)

	rec, err := env.svc.SelfRecordByDate(ctx, 10, roomID, date)
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, "done", rec.Content)
	assert.Equal(t, date, rec.CreatedDate)

	t.Run("no record that day", func(t *testing.T) {
		_, err := env.svc.SelfRecordByDate(ctx, 10, roomID, "2026-08-01")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("not a member", func(t *testing.T) {
		_, err := env.svc.SelfRecordByDate(ctx, 99, roomID, date)
		assert.ErrorIs(t, err, ErrNotJoined)
	})
}

func TestCalcDailyPayment(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryPhoto, 5, 100)
	room := env.repo.rooms[roomID]
	room.EntryFee = 1000
	env.repo.rooms[roomID] = room

	m1, err := env.svc.JoinRoom(ctx, 10, roomID, "", "")
	require.NoError(t, err)
	m2, err := env.svc.JoinRoom(ctx, 11, roomID, "", "")
	require.NoError(t, err)

	date := time.Now().Format(dateLayout)

	_, err = env.repo.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m1, Category: models.CategoryPhoto, Success: true, CreatedDate: date,
	})
	require.NoError(t, err)
	_, err = env.repo.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m2, Category: models.CategoryPhoto, Success: false, CreatedDate: date,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.CalcDailyPayment(ctx, date))

	assert.Equal(t, int64(1000), env.repo.members[m1].Payment, "successful member keeps the pot")
	assert.Equal(t, int64(900), env.repo.members[m2].Payment, "failed member pays the penalty")
	assert.Greater(t, env.repo.members[m1].Diligence, env.repo.members[m2].Diligence)
}

func TestProgress(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryPhoto, 5, 100)

	m1, err := env.svc.JoinRoom(ctx, 10, roomID, "", "")
	require.NoError(t, err)

	for _, rec := range []models.ChallengeRecord{
		{UserChallengeID: m1, Success: true, CreatedDate: "2026-08-01"},
		{UserChallengeID: m1, Success: true, CreatedDate: "2026-08-02"},
		{UserChallengeID: m1, Success: false, CreatedDate: "2026-08-03"},
	} {
		_, err := env.repo.SaveRecord(ctx, rec)
		require.NoError(t, err)
	}

	progress, err := env.svc.Progress(ctx, 10, roomID)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.SuccessCount)
	assert.Equal(t, 1, progress.FailCount)
	assert.Equal(t, 4, progress.TotalDays)
	assert.Equal(t, 50, progress.Percent)
}

func TestReportRecord(t *testing.T) {
	env := newChallengeEnv(t)
	ctx := context.Background()

	roomID := env.addRoom(t, models.CategoryPhoto, 5, 100)

	m1, err := env.svc.JoinRoom(ctx, 10, roomID, "", "")
	require.NoError(t, err)

	recID, err := env.repo.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m1, Category: models.CategoryPhoto, CreatedDate: "2026-08-01",
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.ReportRecord(ctx, recID))
	require.NoError(t, env.svc.ReportRecord(ctx, recID))
	assert.Equal(t, 2, env.repo.records[recID].ReportCount)

	assert.ErrorIs(t, env.svc.ReportRecord(ctx, 999), ErrRecordNotFound)
}
