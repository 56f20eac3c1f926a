package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitordesk/internal/events"
	"visitordesk/internal/models"
	"visitordesk/internal/session"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

type recorder struct {
	mu   sync.Mutex
	sent []models.VisitorEvent
}

func (r *recorder) Emit(topic string, data interface{}) {
	if topic != events.TopicVisitorsChanged {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, data.(models.VisitorEvent))
}

const visitorID = "0d6c2f0e-4f5b-4bb1-9d38-0c6f3b7b2a01"

func visitorRows(status models.VisitorStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "company", "host_id", "floor_number", "status", "guest_code", "is_blacklisted"}).
		AddRow(visitorID, "Ann", "Acme", "", 2, string(status), "G-7", false)
}

func TestProfileServiceFindProfile(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewProfileService(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "role", "assigned_floors"}).
		AddRow("u1", "desk@example.com", "Desk", "reception", []byte(`"[1,2]"`))
	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE id = \$1`).WillReturnRows(rows)

	p, err := svc.FindProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, models.RoleReception, p.Role)
	require.JSONEq(t, `"[1,2]"`, string(p.AssignedFloors))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileServiceFindProfileMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewProfileService(db)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE id = \$1`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.FindProfile(context.Background(), "ghost")
	require.ErrorIs(t, err, session.ErrProfileNotFound)
}

func TestProfileServiceSaveIgnoresConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewProfileService(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "profiles" .* ON CONFLICT \("id"\) DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := svc.SaveProfile(context.Background(), &models.Profile{
		ID: "u1", Email: "host@example.com", Role: models.RoleHost, Floors: models.FloorList{"3"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorCheckInPublishesUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recorder{}
	svc := NewVisitorService(db, pub)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "visitors" WHERE id = \$1 .* FOR UPDATE`).WillReturnRows(visitorRows(models.VisitorStatusPending))
	mock.ExpectExec(`UPDATE "visitors" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v, err := svc.CheckIn(context.Background(), visitorID)
	require.NoError(t, err)
	require.Equal(t, models.VisitorStatusCheckedIn, v.Status)
	require.Equal(t, at, *v.CheckedInAt)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.sent, 1)
	evt := pub.sent[0]
	require.Equal(t, models.ChangeUpdate, evt.Type)
	require.Equal(t, models.VisitorStatusCheckedIn, evt.New.Status)
	require.Equal(t, "G-7", evt.New.GuestCode)
	require.Equal(t, 2, evt.New.FloorNumber)
}

func TestVisitorCheckOutRequiresCheckIn(t *testing.T) {
	db, mock := newMockDB(t)
	pub := &recorder{}
	svc := NewVisitorService(db, pub)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "visitors" WHERE id = \$1`).WillReturnRows(visitorRows(models.VisitorStatusPending))
	mock.ExpectRollback()

	_, err := svc.CheckOut(context.Background(), visitorID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Empty(t, pub.sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorMutateMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewVisitorService(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "visitors" WHERE id = \$1`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.SetBlacklisted(context.Background(), "nope", true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBaseListRejectsUnknownFilter(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewBaseService(db, models.Visitor{})

	_, _, err := svc.List(context.Background(), ListQuery{Filters: map[string]interface{}{"1=1; --": "x"}})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestBaseListFiltersByJSONName(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewBaseService(db, models.Visitor{})

	mock.ExpectQuery(`SELECT count\(\*\) FROM "visitors" WHERE floor_number = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "visitors" WHERE floor_number = \$1 .*ORDER BY floor_number DESC`).
		WillReturnRows(visitorRows(models.VisitorStatusPending))

	got, total, err := svc.List(context.Background(), ListQuery{
		Page: 1, Limit: 10,
		Filters: map[string]interface{}{"floorNumber": 2},
		Sort:    "FloorNumber", Desc: true,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, got, 1)
	require.Equal(t, "Ann", got[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
