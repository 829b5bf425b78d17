package store

import (
	"AIBoss/backend/go/internal/models"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"
)

// taskDocument 是任务在 MongoDB 中的文档结构，JSON 字段以字符串形式保存。
type taskDocument struct {
	ID            string            `bson:"_id"`
	AgentID       string            `bson:"agent_id"`
	SessionID     string            `bson:"session_id"`
	InputData     string            `bson:"input_data"`
	OutputData    string            `bson:"output_data,omitempty"`
	Status        models.TaskStatus `bson:"status"`
	ErrorMessage  *string           `bson:"error_message"`
	CreatedAt     time.Time         `bson:"created_at"`
	CompletedAt   *time.Time        `bson:"completed_at"`
	ExecutionTime *int64            `bson:"execution_time"`
}

func toDocument(t *models.Task) taskDocument {
	return taskDocument{
		ID:            t.ID,
		AgentID:       t.AgentID,
		SessionID:     t.SessionID,
		InputData:     string(t.InputData),
		OutputData:    string(t.OutputData),
		Status:        t.Status,
		ErrorMessage:  t.ErrorMessage,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
		ExecutionTime: t.ExecutionTime,
	}
}

func (d taskDocument) toTask() *models.Task {
	t := &models.Task{
		ID:            d.ID,
		AgentID:       d.AgentID,
		SessionID:     d.SessionID,
		Status:        d.Status,
		ErrorMessage:  d.ErrorMessage,
		CreatedAt:     d.CreatedAt,
		CompletedAt:   d.CompletedAt,
		ExecutionTime: d.ExecutionTime,
	}
	if d.InputData != "" {
		t.InputData = datatypes.JSON(d.InputData)
	}
	if d.OutputData != "" {
		t.OutputData = datatypes.JSON(d.OutputData)
	}
	return t
}

// MongoTaskStore is an implementation of TaskStore using MongoDB.
type MongoTaskStore struct {
	collection *mongo.Collection
}

// NewMongoTaskStore creates a new MongoTaskStore.
func NewMongoTaskStore(db *mongo.Database, collectionName string) *MongoTaskStore {
	return &MongoTaskStore{
		collection: db.Collection(collectionName),
	}
}

// EnsureIndexes 创建按会话查询所需的索引。
func (s *MongoTaskStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// Create inserts a new task record into the database.
func (s *MongoTaskStore) Create(ctx context.Context, task *models.Task) error {
	_, err := s.collection.InsertOne(ctx, toDocument(task))
	return err
}

// Update writes the terminal fields of an existing task.
func (s *MongoTaskStore) Update(ctx context.Context, task *models.Task) error {
	doc := toDocument(task)
	filter := bson.M{"_id": task.ID}
	update := bson.M{
		"$set": bson.M{
			"status":         doc.Status,
			"output_data":    doc.OutputData,
			"error_message":  doc.ErrorMessage,
			"completed_at":   doc.CompletedAt,
			"execution_time": doc.ExecutionTime,
		},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// GetByID retrieves a task by its ID.
func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var doc taskDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return doc.toTask(), nil
}

// ListBySession retrieves the newest tasks of a session.
func (s *MongoTaskStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Task, error) {
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	opts.SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toTask())
	}
	return tasks, nil
}

// Stats aggregates the task counts of a session.
func (s *MongoTaskStore) Stats(ctx context.Context, sessionID string) (*models.TaskStats, error) {
	countIf := func(status models.TaskStatus) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", status}}, 1, 0}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"session_id": sessionID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"total":     bson.M{"$sum": 1},
			"completed": countIf(models.TaskStatusCompleted),
			"failed":    countIf(models.TaskStatusFailed),
			// $avg 忽略 null，没有耗时的任务不参与平均值计算
			"avg_time": bson.M{"$avg": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.TaskStatusCompleted}}, "$execution_time", nil,
			}}},
		}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total     int64    `bson:"total"`
		Completed int64    `bson:"completed"`
		Failed    int64    `bson:"failed"`
		AvgTime   *float64 `bson:"avg_time"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return statsFrom(0, 0, 0, 0), nil
	}
	var avg float64
	if rows[0].AvgTime != nil {
		avg = *rows[0].AvgTime
	}
	return statsFrom(rows[0].Total, rows[0].Completed, rows[0].Failed, avg), nil
}
