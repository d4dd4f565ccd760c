package vector

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"github.com/jamaly87/codesearch/internal/models"
	"github.com/jamaly87/codesearch/pkg/config"
	"github.com/jamaly87/codesearch/pkg/idgen"
)

// Point is one embedded chunk ready for upsert, carrying the payload
// fields the spec's external interface exposes on a search hit.
type Point struct {
	DocID        string
	RepoRef      string
	RepoName     string
	RelativePath string
	Branches     []string
	Lang         string
	StartLine    int
	EndLine      int
	StartByte    int
	EndByte      int
	Snippet      string
	Vector       []float32
}

// Hit is one vector search result.
type Hit struct {
	Point Point
	Score float64
}

// Store wraps a Qdrant collection dedicated to embedded code chunks.
type Store struct {
	client     *qdrant.Client
	collection string
	cfg        config.VectorDBConfig
	log        zerolog.Logger
}

// NewStore dials Qdrant over gRPC and wraps the configured collection.
func NewStore(cfg config.VectorDBConfig, logger zerolog.Logger) (*Store, error) {
	host, port := "localhost", 6334
	if cfg.Addr != "" {
		h, p, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse qdrant addr %q: %w", cfg.Addr, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse qdrant port %q: %w", p, err)
		}
		host, port = h, n
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	return &Store{
		client:     client,
		collection: cfg.CollectionName,
		cfg:        cfg,
		log:        logger.With().Str("component", "vector.qdrant").Logger(),
	}, nil
}

// Initialize creates the collection if it does not already exist.
func (s *Store) Initialize(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.cfg.VectorSize),
					Distance: distanceMetric(s.cfg.DistanceMetric),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.log.Info().Str("collection", s.collection).Int("dims", s.cfg.VectorSize).Msg("created collection")
	return nil
}

// Upsert writes points to the collection, keyed by a deterministic UUID so
// re-embedding the same span updates in place.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		id := idgen.PointID(p.RepoRef, p.RelativePath, p.StartByte, p.EndByte)
		payload := map[string]*qdrant.Value{
			"doc_id":        qdrant.NewValueString(p.DocID),
			"repo_ref":      qdrant.NewValueString(p.RepoRef),
			"repo_name":     qdrant.NewValueString(p.RepoName),
			"relative_path": qdrant.NewValueString(p.RelativePath),
			"lang":          qdrant.NewValueString(p.Lang),
			"start_line":    qdrant.NewValueInt(int64(p.StartLine)),
			"end_line":      qdrant.NewValueInt(int64(p.EndLine)),
			"start_byte":    qdrant.NewValueInt(int64(p.StartByte)),
			"end_byte":      qdrant.NewValueInt(int64(p.EndByte)),
			"snippet":       qdrant.NewValueString(p.Snippet),
		}
		qpoints[i] = &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: p.Vector}}},
			Payload: payload,
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: s.collection, Points: qpoints})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Search runs a vector similarity query, optionally scoped to repoName.
func (s *Store) Search(ctx context.Context, embedding []float32, repoName string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	limitU := uint64(limit)
	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limitU,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	}
	if repoName != "" {
		query.Filter = repoFilter(repoName)
	}

	results, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		payload := r.Payload
		hits[i] = Hit{
			Score: float64(r.Score),
			Point: Point{
				DocID:        payload["doc_id"].GetStringValue(),
				RepoRef:      payload["repo_ref"].GetStringValue(),
				RepoName:     payload["repo_name"].GetStringValue(),
				RelativePath: payload["relative_path"].GetStringValue(),
				Lang:         payload["lang"].GetStringValue(),
				StartLine:    int(payload["start_line"].GetIntegerValue()),
				EndLine:      int(payload["end_line"].GetIntegerValue()),
				StartByte:    int(payload["start_byte"].GetIntegerValue()),
				EndByte:      int(payload["end_byte"].GetIntegerValue()),
				Snippet:      payload["snippet"].GetStringValue(),
			},
		}
	}
	return hits, nil
}

// DeleteByRepo removes every point belonging to repoName.
func (s *Store) DeleteByRepo(ctx context.Context, repoName string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: repoFilter(repoName)},
		},
	})
	return err
}

// Count returns the number of points belonging to repoName.
func (s *Store) Count(ctx context.Context, repoName string) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         repoFilter(repoName),
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(count), nil
}

// Stats reports a coarse index summary for repoName.
func (s *Store) Stats(ctx context.Context, repoName string) (*models.RepoIndex, error) {
	count, err := s.Count(ctx, repoName)
	if err != nil {
		return nil, err
	}
	return &models.RepoIndex{
		RepoPath:    repoName,
		TotalChunks: count,
		Languages:   make(map[string]int),
		Status:      models.IndexStatusCompleted,
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func repoFilter(repoName string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   "repo_name",
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: repoName}},
					},
				},
			},
		},
	}
}

func distanceMetric(name string) qdrant.Distance {
	switch name {
	case "dot":
		return qdrant.Distance_Dot
	case "euclidean":
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}
