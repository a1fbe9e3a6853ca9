package redis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_ErrorIsUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	if !errors.Is(err, domain.ErrBackingStoreUnavailable) {
		t.Fatalf("expected ErrBackingStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestIsRedisErr(t *testing.T) {
	err := mock.Result(mock.RedisError("ERR Index Already Exists")).Error()
	if !isRedisErr(err, "index already exists") {
		t.Error("expected case-insensitive match")
	}
	if isRedisErr(errors.New("index already exists"), "index already exists") {
		t.Error("non-redis errors must not match")
	}
}

// --- hash.go tests ---

func TestHGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	blob := string(vector.Encode([]float32{0.5, -1}))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGET", "movie:1", "plot_embedding")).
		Return(mock.Result(mock.RedisBlobString(blob)))

	s := NewStoreForTest(c)
	data, err := s.HGet(context.Background(), "movie:1", "plot_embedding")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := vector.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Errorf("unexpected vector: %v", got)
	}
}

func TestHGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGET", "movie:9", "plot_embedding")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.HGet(context.Background(), "movie:9", "plot_embedding")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrBackingStoreUnavailable) {
		t.Error("missing key is not an unavailability")
	}
}

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "movie:1" && cmd[2] == "plot_embedding"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "movie:1", map[string]string{"plot_embedding": "xxxx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET"
		})).
		Return(mock.ErrorResult(errors.New("connection reset")))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "movie:1", map[string]string{"f": "v"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error in chain, got %T", err)
	}
	if !errors.Is(err, domain.ErrBackingStoreUnavailable) {
		t.Errorf("expected ErrBackingStoreUnavailable, got %v", err)
	}
}

func TestExists(t *testing.T) {
	tests := []struct {
		name  string
		reply int64
		want  bool
	}{
		{"present", 1, true},
		{"absent", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.Match("EXISTS", "latency:search_movie")).
				Return(mock.Result(mock.RedisInt64(tc.reply)))

			s := NewStoreForTest(c)
			got, err := s.Exists(context.Background(), "latency:search_movie")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Exists = %v, want %v", got, tc.want)
			}
		})
	}
}

// --- index.go tests ---

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.CREATE", "movie_plot_index", "ON", "HASH", "PREFIX", "1", "movie:",
			"SCHEMA", "plot_embedding", "VECTOR", "HNSW", "6",
			"TYPE", "FLOAT32", "DIM", "384", "DISTANCE_METRIC", "COSINE",
		)).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	def, err := db.NewIndex("movie_plot_index").
		Prefix("movie:").
		VectorHNSW("plot_embedding", 384, db.DistanceCosine, 0, 0).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	def, err := db.NewIndex("movie_plot_index").VectorFlat("plot_embedding", 384, db.DistanceCosine).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	err = s.CreateIndex(context.Background(), def)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "idx"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name   string
		result func() rueidis.RedisResult
		want   bool
	}{
		{"exists", func() rueidis.RedisResult { return mock.Result(mock.RedisArray()) }, true},
		{"unknown", func() rueidis.RedisResult { return mock.Result(mock.RedisError("Unknown index name")) }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.Match("FT.INFO", "movie_plot_index")).
				Return(tc.result())

			s := NewStoreForTest(c)
			got, err := s.IndexExists(context.Background(), "movie_plot_index")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("IndexExists = %v, want %v", got, tc.want)
			}
		})
	}
}

// --- search.go tests ---

func TestSearchKNN_BuildsQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var captured []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			captured = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:   "movie_plot_index",
		VectorField: "plot_embedding",
		Vector:      []float32{1, 0},
		K:           20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured[1] != "movie_plot_index" {
		t.Errorf("index = %q", captured[1])
	}
	if captured[2] != "*=>[KNN 20 @plot_embedding $BLOB AS vector_score]" {
		t.Errorf("query = %q", captured[2])
	}
	assertContainsSeq(t, captured, "LIMIT", "0", "20")
	assertContainsSeq(t, captured, "SORTBY", "vector_score", "ASC")
	assertContainsSeq(t, captured, "DIALECT", "2")
}

func TestSearchKNN_ParsesEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("movie:1"),
			mock.RedisArray(mock.RedisString("vector_score"), mock.RedisString("0")),
			mock.RedisString("movie:7"),
			mock.RedisArray(mock.RedisString("vector_score"), mock.RedisString("0.25")),
		)))

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:   "movie_plot_index",
		VectorField: "plot_embedding",
		Vector:      []float32{1},
		K:           2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Entries) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Entries[1].Key != "movie:7" || res.Entries[1].Score != 0.25 {
		t.Errorf("unexpected entry: %+v", res.Entries[1])
	}
	if _, ok := res.Entries[0].Fields["vector_score"]; ok {
		t.Error("score alias should be removed from fields")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	tests := []struct {
		name string
		q    db.KNNQuery
	}{
		{"no index", db.KNNQuery{VectorField: "v", Vector: []float32{1}, K: 1}},
		{"no field", db.KNNQuery{IndexName: "i", Vector: []float32{1}, K: 1}},
		{"no vector", db.KNNQuery{IndexName: "i", VectorField: "v", K: 1}},
		{"zero k", db.KNNQuery{IndexName: "i", VectorField: "v", Vector: []float32{1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.SearchKNN(context.Background(), &tc.q); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("movie_plot_index: no such index")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "movie_plot_index", VectorField: "plot_embedding", Vector: []float32{1}, K: 1,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

// --- tdigest.go tests ---

func TestTDigestCreate_Exists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("TDIGEST.CREATE", "latency:search_movie")).
		Return(mock.Result(mock.RedisError("ERR T-Digest: key already exists")))

	s := NewStoreForTest(c)
	err := s.TDigestCreate(context.Background(), "latency:search_movie")
	if !errors.Is(err, db.ErrDigestExists) {
		t.Errorf("expected ErrDigestExists, got %v", err)
	}
}

func TestTDigestAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("TDIGEST.ADD", "latency:search_movie", "0.125")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.TDigestAdd(context.Background(), "latency:search_movie", 0.125); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTDigestAdd_MissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("ERR T-Digest: key does not exist")))

	s := NewStoreForTest(c)
	err := s.TDigestAdd(context.Background(), "latency:x", 1)
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestTDigestQuantile(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("TDIGEST.QUANTILE", "latency:search_movie", "0.9", "0.95")).
		Return(mock.Result(mock.RedisArray(mock.RedisString("0.2"), mock.RedisString("nan"))))

	s := NewStoreForTest(c)
	got, err := s.TDigestQuantile(context.Background(), "latency:search_movie", 0.9, 0.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 0.2 {
		t.Errorf("p90 = %v, want 0.2", got[0])
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("p95 = %v, want NaN", got[1])
	}
}

func TestTDigestQuantile_NoQuantiles(t *testing.T) {
	s := NewStoreForTest(nil)
	if _, err := s.TDigestQuantile(context.Background(), "k"); err == nil {
		t.Error("expected error")
	}
}

// --- helpers ---

func assertContainsSeq(t *testing.T, cmd []string, seq ...string) {
	t.Helper()
	for i := 0; i+len(seq) <= len(cmd); i++ {
		match := true
		for j := range seq {
			if cmd[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return
		}
	}
	t.Errorf("command %v does not contain %v", cmd, seq)
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "plotq:abc")).
		Return(mock.Result(mock.RedisBlobString("\x01\x02")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "plotq:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "\x01\x02" {
		t.Errorf("unexpected value %q", data)
	}
}

func TestGet_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "plotq:none")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "plotq:none")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_WithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "plotq:abc", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "plotq:abc", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSet_NoTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "plotq:abc", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "plotq:abc", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
