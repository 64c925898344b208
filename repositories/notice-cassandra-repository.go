package repositories

import (
	"context"
	"fmt"
	"time"

	"taskboard-service/logging"
	"taskboard-service/models"

	"github.com/gocql/gocql"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoticeCassandraRepo stores inboxes as one partition per user, clustered by
// the time-based notice id so a partition reads back in arrival order.
// Flag transitions use lightweight transactions.
type NoticeCassandraRepo struct {
	session *gocql.Session
}

// NewNoticeCassandraRepo creates the keyspace if needed and opens a session on it.
func NewNoticeCassandraRepo(host, keyspace string) (*NoticeCassandraRepo, error) {
	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cassandra: %w", err)
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
		 WITH replication = {
			 'class': 'SimpleStrategy',
			 'replication_factor': 1
		 }`, keyspace)).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("create keyspace %s: %w", keyspace, err)
	}

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.Serial
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", keyspace, err)
	}

	logging.Logger.Infof("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra keyspace %s", keyspace)
	return &NoticeCassandraRepo{session: session}, nil
}

func (r *NoticeCassandraRepo) Close() {
	r.session.Close()
}

func (r *NoticeCassandraRepo) CreateTable(ctx context.Context) error {
	err := r.session.Query(
		`CREATE TABLE IF NOT EXISTS notices (
			user_id TEXT,
			id TIMEUUID,
			text TEXT,
			post_id TEXT,
			noti_type TEXT,
			is_read BOOLEAN,
			deadline TIMESTAMP,
			one_week_reminder_sent BOOLEAN,
			one_day_reminder_sent BOOLEAN,
			one_week_reminder_read BOOLEAN,
			one_day_reminder_read BOOLEAN,
			created_at TIMESTAMP,
			PRIMARY KEY ((user_id), id)
		) WITH CLUSTERING ORDER BY (id ASC)`).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("create notices table: %w", err)
	}
	return nil
}

var cassandraColumns = map[string]string{
	"isRead":              "is_read",
	"oneWeekReminderSent": "one_week_reminder_sent",
	"oneDayReminderSent":  "one_day_reminder_sent",
	"oneWeekReminderRead": "one_week_reminder_read",
	"oneDayReminderRead":  "one_day_reminder_read",
}

func (r *NoticeCassandraRepo) Append(ctx context.Context, userID string, n models.Notice) error {
	id, err := gocql.ParseUUID(n.ID)
	if err != nil {
		return fmt.Errorf("notice id %q is not a uuid: %w", n.ID, err)
	}
	var deadline interface{}
	if n.Deadline != nil {
		deadline = *n.Deadline
	}

	err = r.session.Query(
		`INSERT INTO notices (user_id, id, text, post_id, noti_type, is_read, deadline,
			one_week_reminder_sent, one_day_reminder_sent, one_week_reminder_read, one_day_reminder_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, id, n.Text, n.PostID.Hex(), string(n.NotiType), n.IsRead, deadline,
		n.OneWeekReminderSent, n.OneDayReminderSent, n.OneWeekReminderRead, n.OneDayReminderRead, n.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("append notice for %s: %w", userID, err)
	}
	return nil
}

func (r *NoticeCassandraRepo) Inbox(ctx context.Context, userID string) ([]models.Notice, error) {
	iter := r.session.Query(
		`SELECT id, text, post_id, noti_type, is_read, deadline,
			one_week_reminder_sent, one_day_reminder_sent, one_week_reminder_read, one_day_reminder_read, created_at
		 FROM notices WHERE user_id = ?`, userID,
	).WithContext(ctx).Iter()

	notices := []models.Notice{}
	var (
		id               gocql.UUID
		postID, notiType string
		deadline         time.Time
		n                models.Notice
	)
	for iter.Scan(&id, &n.Text, &postID, &notiType, &n.IsRead, &deadline,
		&n.OneWeekReminderSent, &n.OneDayReminderSent, &n.OneWeekReminderRead, &n.OneDayReminderRead, &n.CreatedAt) {
		n.ID = id.String()
		n.NotiType = models.NoticeType(notiType)
		n.PostID, _ = primitive.ObjectIDFromHex(postID)
		n.Deadline = nil
		if !deadline.IsZero() {
			d := deadline
			n.Deadline = &d
		}
		notices = append(notices, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("load inbox for %s: %w", userID, err)
	}
	return notices, nil
}

func (r *NoticeCassandraRepo) MarkReminderSent(ctx context.Context, userID, noticeID string, kind models.ReminderKind) (bool, error) {
	id, err := gocql.ParseUUID(noticeID)
	if err != nil {
		return false, nil
	}
	column := cassandraColumns[kind.SentField()]
	applied, err := r.session.Query(
		fmt.Sprintf(`UPDATE notices SET %[1]s = true WHERE user_id = ? AND id = ? IF %[1]s = false`, column),
		userID, id,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("mark %s reminder: %w", kind, err)
	}
	return applied, nil
}

func (r *NoticeCassandraRepo) MarkRead(ctx context.Context, userID, noticeID string, kind models.ReadKind) error {
	id, err := gocql.ParseUUID(noticeID)
	if err != nil {
		return models.NotFoundError("notice %s not found", noticeID)
	}
	applied, err := r.session.Query(
		fmt.Sprintf(`UPDATE notices SET %s = true WHERE user_id = ? AND id = ? IF EXISTS`, cassandraColumns[kind.Field()]),
		userID, id,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("mark notice read: %w", err)
	}
	if !applied {
		return models.NotFoundError("notice %s not found", noticeID)
	}
	return nil
}

func (r *NoticeCassandraRepo) unreadIDs(ctx context.Context, userID string) ([]gocql.UUID, error) {
	iter := r.session.Query(`SELECT id, is_read FROM notices WHERE user_id = ?`, userID).WithContext(ctx).Iter()
	var (
		ids    []gocql.UUID
		id     gocql.UUID
		isRead bool
	)
	for iter.Scan(&id, &isRead) {
		if !isRead {
			ids = append(ids, id)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("scan unread notices: %w", err)
	}
	return ids, nil
}

func (r *NoticeCassandraRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	ids, err := r.unreadIDs(ctx, userID)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	batch := r.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, id := range ids {
		batch.Query(`UPDATE notices SET is_read = true WHERE user_id = ? AND id = ?`, userID, id)
	}
	if err := r.session.ExecuteBatch(batch); err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return len(ids), nil
}

func (r *NoticeCassandraRepo) Remove(ctx context.Context, userID, noticeID string) error {
	id, err := gocql.ParseUUID(noticeID)
	if err != nil {
		return models.NotFoundError("notice %s not found", noticeID)
	}
	applied, err := r.session.Query(
		`DELETE FROM notices WHERE user_id = ? AND id = ? IF EXISTS`, userID, id,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("remove notice: %w", err)
	}
	if !applied {
		return models.NotFoundError("notice %s not found", noticeID)
	}
	return nil
}

func (r *NoticeCassandraRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	ids, err := r.unreadIDs(ctx, userID)
	return len(ids), err
}
