package database

import (
	"context"
	"fmt"
	"time"

	"issuetracker/models"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	issuesCollection = "issues"

	mongoMaxPoolSize     = 25
	mongoMinPoolSize     = 5
	mongoMaxConnIdleTime = 30 * time.Minute
)

// MongoStore keeps each issue as one document in the issues collection.
type MongoStore struct {
	client *mongo.Client
	issues *mongo.Collection
	logger zerolog.Logger
}

func ConnectMongo(ctx context.Context, uri, database string, logger zerolog.Logger) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(mongoMaxPoolSize).
		SetMinPoolSize(mongoMinPoolSize).
		SetMaxConnIdleTime(mongoMaxConnIdleTime)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Info().Str("backend", "mongo").Str("database", database).Msg("database connection established")
	return &MongoStore{
		client: client,
		issues: client.Database(database).Collection(issuesCollection),
		logger: logger,
	}, nil
}

// FindIssues returns the project's issues matching every condition in the
// collection's natural order.
func (s *MongoStore) FindIssues(ctx context.Context, filter Filter) ([]models.Issue, error) {
	start := time.Now()
	defer func() {
		s.logger.Debug().Dur("duration", time.Since(start)).Str("project", filter.Project).
			Int("conditions", len(filter.Conditions)).Msg("FindIssues")
	}()

	query := bson.D{{Key: models.FieldProject, Value: filter.Project}}
	for _, cond := range filter.Conditions {
		if _, ok := columnByField[cond.Name]; !ok {
			return nil, fmt.Errorf("unknown filter field %q", cond.Name)
		}
		query = append(query, bson.E{Key: cond.Name, Value: cond.Value})
	}

	cursor, err := s.issues.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return issues, nil
}

func (s *MongoStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	start := time.Now()
	defer func() {
		s.logger.Debug().Dur("duration", time.Since(start)).Str("project", issue.Project).Msg("InsertIssue")
	}()

	if _, err := s.issues.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateIssue(ctx context.Context, project string, id primitive.ObjectID, update Update) error {
	start := time.Now()
	defer func() {
		s.logger.Debug().Dur("duration", time.Since(start)).Str("project", project).
			Str("id", id.Hex()).Msg("UpdateIssue")
	}()

	if err := validateUpdate(update); err != nil {
		return err
	}

	set := bson.D{}
	for _, f := range update.Fields {
		set = append(set, bson.E{Key: f.Name, Value: f.Value})
	}
	set = append(set, bson.E{Key: models.FieldUpdatedOn, Value: update.UpdatedOn})

	result, err := s.issues.UpdateOne(ctx, byIDAndProject(id, project), bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrIssueNotFound
	}
	return nil
}

func (s *MongoStore) DeleteIssue(ctx context.Context, project string, id primitive.ObjectID) error {
	result, err := s.issues.DeleteOne(ctx, byIDAndProject(id, project))
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrIssueNotFound
	}

	s.logger.Debug().Str("project", project).Str("id", id.Hex()).Msg("DeleteIssue")
	return nil
}

// Migrate creates the project index used by every query.
func (s *MongoStore) Migrate(ctx context.Context) error {
	name, err := s.issues.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: models.FieldProject, Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create project index: %w", err)
	}

	s.logger.Info().Str("index", name).Msg("migration applied")
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to disconnect from mongo")
		return
	}
	s.logger.Info().Str("backend", "mongo").Msg("database connection closed")
}

func byIDAndProject(id primitive.ObjectID, project string) bson.D {
	return bson.D{
		{Key: models.FieldID, Value: id},
		{Key: models.FieldProject, Value: project},
	}
}
