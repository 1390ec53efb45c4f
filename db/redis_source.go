package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"rollcall-roster/models"
)

const (
	DefaultListKey    = "roster:students" // List: student IDs in roster order
	studentInfoPrefix = "student:"        // Hash prefix: student:{id} -> field "class"
	classField        = "class"
)

// redisColumns lays out the {id, class} rows built from Redis replies.
var redisColumns = columns{studentID: 0, class: 1}

// Helper to generate student info key
func getStudentInfoKey(studentID string) string {
	return studentInfoPrefix + studentID
}

// RedisOptions configures the connection used to read a roster snapshot.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewRedisClient creates a Redis client and pings it so an unreachable
// server is reported before any roster read is attempted.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		MaxRetries:  -1,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// RedisSource reads the roster from Redis. The list at ListKey holds student
// IDs in roster order and each student:{id} hash holds the class label.
// The source only reads; it never writes to Redis.
type RedisSource struct {
	Client  *redis.Client
	ListKey string
}

// NewRedisSource creates a RedisSource. An empty listKey selects DefaultListKey.
func NewRedisSource(client *redis.Client, listKey string) *RedisSource {
	if listKey == "" {
		listKey = DefaultListKey
	}
	return &RedisSource{Client: client, ListKey: listKey}
}

func (s *RedisSource) Name() string {
	return "redis:" + s.Client.Options().Addr + "/" + s.ListKey
}

// Students reads the ID list, then fetches every class label in one pipeline.
func (s *RedisSource) Students(ctx context.Context) ([]models.Student, error) {
	n, err := s.Client.Exists(ctx, s.ListKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check roster key %s: %w", s.ListKey, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("redis key %s: %w", s.ListKey, ErrNoRoster)
	}

	ids, err := s.Client.LRange(ctx, s.ListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get student IDs from redis: %w", err)
	}

	pipe := s.Client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, getStudentInfoKey(id), classField)
	}
	if len(ids) > 0 {
		// A missing hash shows up as redis.Nil on its own command below.
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to get student details from redis: %w", err)
		}
	}

	students := make([]models.Student, 0, len(ids))
	for i, id := range ids {
		line := i + 1
		class, err := cmds[i].Result()
		if errors.Is(err, redis.Nil) {
			return nil, &RowError{Line: line, Column: ColumnClass, Value: getStudentInfoKey(id), Err: ErrMissingColumn}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get class for student %s: %w", id, err)
		}
		student, err := redisColumns.parseRow([]string{id, class}, line)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}
