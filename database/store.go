package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"issuetracker/config"
	"issuetracker/models"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrIssueNotFound is returned by UpdateIssue and DeleteIssue when no issue
// matches both the id and the project.
var ErrIssueNotFound = errors.New("issue not found")

// Filter selects issues of one project. Conditions are ANDed equality
// matches on wire field names.
type Filter struct {
	Project    string
	Conditions []models.Field
}

// Update is a partial update of one issue. UpdatedOn is always written.
type Update struct {
	Fields    []models.Field
	UpdatedOn time.Time
}

// Store is the persistence boundary used by the HTTP handlers. Every method
// is a single atomic operation against the backing store and is safe for
// concurrent use.
type Store interface {
	FindIssues(ctx context.Context, filter Filter) ([]models.Issue, error)
	InsertIssue(ctx context.Context, issue *models.Issue) error
	UpdateIssue(ctx context.Context, project string, id primitive.ObjectID, update Update) error
	DeleteIssue(ctx context.Context, project string, id primitive.ObjectID) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// Open connects to the backend selected in cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeoutDuration())
	defer cancel()

	switch cfg.Backend {
	case config.BackendMongo:
		return ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	case config.BackendPostgres:
		return ConnectPostgres(ctx, cfg.PostgresURL, logger)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported database backend %q", cfg.Backend)
}

// NewObjectID returns a fresh issue identifier.
func NewObjectID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseObjectID validates the structure of an identifier sent by a client.
func ParseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid issue id %q: %w", hex, err)
	}
	return id, nil
}

func validateUpdate(update Update) error {
	if len(update.Fields) == 0 {
		return errors.New("update has no fields")
	}
	for _, f := range update.Fields {
		if !isMutable(f.Name) {
			return fmt.Errorf("field %s is not mutable", f.Name)
		}
	}
	return nil
}

func isMutable(name string) bool {
	for _, m := range models.MutableFields {
		if m == name {
			return true
		}
	}
	return false
}
