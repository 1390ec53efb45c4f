package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rollcall-roster/models"
)

func TestGetStudentInfoKey(t *testing.T) {
	assert.Equal(t, "student:42", getStudentInfoKey("42"))
}

func TestNewRedisSource(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6390"})
	defer client.Close()

	src := NewRedisSource(client, "")
	assert.Equal(t, DefaultListKey, src.ListKey)
	assert.Equal(t, "redis:127.0.0.1:6390/roster:students", src.Name())

	src = NewRedisSource(client, "term1:students")
	assert.Equal(t, "term1:students", src.ListKey)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is reserved and nothing listens on it.
	client, err := NewRedisClient(ctx, RedisOptions{Addr: "127.0.0.1:1", DialTimeout: 500 * time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

// seedRoster writes ids to the roster list and a class hash per entry of
// classes. Ids without an entry get no hash.
func seedRoster(t *testing.T, mr *miniredis.Miniredis, ids []string, classes map[string]string) {
	t.Helper()
	if len(ids) > 0 {
		_, err := mr.RPush(DefaultListKey, ids...)
		require.NoError(t, err)
	}
	for id, class := range classes {
		mr.HSet(getStudentInfoKey(id), classField, class)
	}
}

func TestRedisSource_Students(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		classes map[string]string
		want    []models.Student
	}{
		{
			name:    "keeps list order",
			ids:     []string{"3", "1", "2"},
			classes: map[string]string{"1": "8I", "2": "2M", "3": "8I"},
			want: []models.Student{
				{StudentID: 3, Class: "8I"},
				{StudentID: 1, Class: "8I"},
				{StudentID: 2, Class: "2M"},
			},
		},
		{
			name:    "duplicate ids pass through",
			ids:     []string{"1", "1"},
			classes: map[string]string{"1": "8I"},
			want:    []models.Student{{StudentID: 1, Class: "8I"}, {StudentID: 1, Class: "8I"}},
		},
		{
			name:    "class is carried as is",
			ids:     []string{" 7 "},
			classes: map[string]string{" 7 ": " 8i "},
			want:    []models.Student{{StudentID: 7, Class: " 8i "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			seedRoster(t, mr, tt.ids, tt.classes)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			defer client.Close()

			students, err := NewRedisSource(client, "").Students(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, students)
		})
	}
}

func TestRedisSource_Errors(t *testing.T) {
	t.Run("missing list key", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		_, err := NewRedisSource(client, "").Students(context.Background())
		assert.ErrorIs(t, err, ErrNoRoster)
	})

	t.Run("missing hash", func(t *testing.T) {
		mr := miniredis.RunT(t)
		seedRoster(t, mr, []string{"1", "2"}, map[string]string{"1": "8I"})
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		_, err := NewRedisSource(client, "").Students(context.Background())
		var rowErr *RowError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, 2, rowErr.Line)
		assert.Equal(t, ColumnClass, rowErr.Column)
		assert.Equal(t, "student:2", rowErr.Value)
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("hash without class field", func(t *testing.T) {
		mr := miniredis.RunT(t)
		seedRoster(t, mr, []string{"1"}, nil)
		mr.HSet(getStudentInfoKey("1"), "name", "Alice")
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		_, err := NewRedisSource(client, "").Students(context.Background())
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("non-integer id", func(t *testing.T) {
		mr := miniredis.RunT(t)
		seedRoster(t, mr, []string{"1", "S-2"}, map[string]string{"1": "8I", "S-2": "2M"})
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		_, err := NewRedisSource(client, "").Students(context.Background())
		var rowErr *RowError
		require.ErrorAs(t, err, &rowErr)
		assert.Equal(t, 2, rowErr.Line)
		assert.Equal(t, ColumnStudentID, rowErr.Column)
		assert.Equal(t, "S-2", rowErr.Value)
	})

	t.Run("list key holds another type", func(t *testing.T) {
		mr := miniredis.RunT(t)
		require.NoError(t, mr.Set(DefaultListKey, "oops"))
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		_, err := NewRedisSource(client, "").Students(context.Background())
		assert.Error(t, err)
	})
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), RedisOptions{Addr: mr.Addr(), DialTimeout: time.Second})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, mr.Addr(), client.Options().Addr)
}

func TestLoad_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	seedRoster(t, mr, []string{"1", "2"}, map[string]string{"1": "8I", "2": "2M"})
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	students, err := Load(context.Background(), NewRedisSource(client, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Student{{StudentID: 1, Class: "8I"}, {StudentID: 2, Class: "2M"}}, students)
}
