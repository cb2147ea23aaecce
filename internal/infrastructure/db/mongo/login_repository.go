package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

const collectionLogins = "login_events"

// LoginRepository stores the login audit trail.
type LoginRepository struct {
	col *mongo.Collection
}

func NewLoginRepository(db *mongo.Database) *LoginRepository {
	return &LoginRepository{col: db.Collection(collectionLogins)}
}

type loginDoc struct {
	SessionID  string    `bson:"session_id"`
	UserID     string    `bson:"user_id"`
	Username   string    `bson:"username"`
	Role       string    `bson:"role"`
	Membership string    `bson:"membership"`
	LoggedInAt time.Time `bson:"logged_in_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// EnsureIndexes creates the per-user history index. It is idempotent.
func (r *LoginRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "logged_in_at", Value: -1}},
		Options: options.Index().SetName("user_logins"),
	})
	if err != nil {
		return fmt.Errorf("create login index: %w", err)
	}
	return nil
}

// InsertLogin appends one login to the audit trail.
func (r *LoginRepository) InsertLogin(ctx context.Context, event *domain.LoginEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, toLoginDoc(event, time.Now().UTC()))
	return err
}

// ListByUser returns the most recent logins of userID, newest first.
func (r *LoginRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]domain.LoginEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "logged_in_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []loginDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	events := make([]domain.LoginEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toDomain())
	}
	return events, nil
}

func toLoginDoc(e *domain.LoginEvent, recordedAt time.Time) loginDoc {
	return loginDoc{
		SessionID:  e.SessionID,
		UserID:     e.UserID,
		Username:   e.Username,
		Role:       string(e.Role),
		Membership: string(e.Membership),
		LoggedInAt: e.LoggedInAt.UTC(),
		RecordedAt: recordedAt,
	}
}

func (d loginDoc) toDomain() domain.LoginEvent {
	return domain.LoginEvent{
		SessionID:  d.SessionID,
		UserID:     d.UserID,
		Username:   d.Username,
		Role:       domain.Role(d.Role),
		Membership: domain.MembershipStatus(d.Membership),
		LoggedInAt: d.LoggedInAt,
	}
}
