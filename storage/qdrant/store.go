// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package qdrant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

// Default connection settings for a local Qdrant instance.
const (
	DefaultAddr       = "localhost:6334"
	DefaultCollection = "snippets"
)

// pointNamespace is the UUID namespace for deriving point IDs from
// snippet identity. The same project and name always map to the same
// point, which makes Upsert a replace rather than an insert.
var pointNamespace = uuid.MustParse("8b1a7c1e-4f2d-4a7e-9c3b-2d6e8f0a1b4c")

// Config holds connection settings for a Qdrant-backed document store.
type Config struct {
	Addr       string
	Collection string
	ProjectID  string
}

// Store implements storage.DocumentStore against a remote Qdrant
// instance over gRPC. The collection is created lazily on the first
// upsert, sized to the dimensionality of the first vector seen.
type Store struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	config      Config

	mu      sync.Mutex
	ensured bool
}

var _ storage.DocumentStore = (*Store)(nil)

// NewStore dials the Qdrant gRPC endpoint and returns a ready Store.
func NewStore(config Config) (*Store, error) {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.Collection == "" {
		config.Collection = DefaultCollection
	}

	conn, err := grpc.NewClient(config.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", config.Addr, err)
	}

	return &Store{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		config:      config,
	}, nil
}

// Close tears down the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Upsert inserts or replaces the point derived from the document's
// project and name. Writes are acknowledged before returning.
func (s *Store) Upsert(ctx context.Context, doc *core.Document) error {
	if err := s.ensureCollection(ctx, uint64(len(doc.Vector))); err != nil {
		return err
	}

	now := time.Now().UTC()
	doc.UpdatedAt = now
	if doc.InsertedAt.IsZero() {
		doc.InsertedAt = now
	}

	payload := map[string]*pb.Value{
		"name":        {Kind: &pb.Value_StringValue{StringValue: doc.Name}},
		"project_id":  {Kind: &pb.Value_StringValue{StringValue: doc.ProjectID}},
		"code":        {Kind: &pb.Value_StringValue{StringValue: doc.Code}},
		"language":    {Kind: &pb.Value_StringValue{StringValue: doc.Language}},
		"inserted_at": {Kind: &pb.Value_StringValue{StringValue: doc.InsertedAt.Format(time.RFC3339Nano)}},
		"updated_at":  {Kind: &pb.Value_StringValue{StringValue: doc.UpdatedAt.Format(time.RFC3339Nano)}},
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.config.Collection,
		Wait:           proto.Bool(true),
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: s.pointID(doc.ProjectID, doc.Name)}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: doc.Vector}}},
				Payload: payload,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %s: %w", doc.Name, err)
	}
	return nil
}

// GetDocument retrieves a document by name within the configured project.
func (s *Store) GetDocument(ctx context.Context, name string) (*core.Document, error) {
	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.config.Collection,
		Ids: []*pb.PointId{
			{PointIdOptions: &pb.PointId_Uuid{Uuid: s.pointID(s.config.ProjectID, name)}},
		},
		WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors: &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant get %s: %w", name, err)
	}
	if len(resp.Result) == 0 {
		return nil, storage.ErrNotFound
	}

	point := resp.Result[0]
	doc := documentFromPayload(point.Payload)
	if vectors := point.GetVectors(); vectors != nil {
		if v := vectors.GetVector(); v != nil {
			doc.Vector = v.Data
		}
	}
	return doc, nil
}

// FindSimilar performs a nearest-neighbor search and returns hits at or
// above minSimilarity, best first.
func (s *Store) FindSimilar(ctx context.Context, query []float32, minSimilarity float32, limit int) ([]*core.DocumentMatch, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.config.Collection,
		Vector:         query,
		Limit:          uint64(limit),
		ScoreThreshold: proto.Float32(minSimilarity),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]*core.DocumentMatch, 0, len(resp.Result))
	for _, hit := range resp.Result {
		results = append(results, &core.DocumentMatch{
			Document: documentFromPayload(hit.Payload),
			Score:    hit.Score,
		})
	}
	return results, nil
}

// ensureCollection creates the collection on first use, sized to the
// dimensionality of the vectors being stored.
func (s *Store) ensureCollection(ctx context.Context, dimension uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	_, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.config.Collection})
	if err == nil {
		s.ensured = true
		return nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.config.Collection, err)
	}
	s.ensured = true
	return nil
}

func (s *Store) pointID(projectID, name string) string {
	return uuid.NewSHA1(pointNamespace, []byte(projectID+"/"+name)).String()
}

func documentFromPayload(payload map[string]*pb.Value) *core.Document {
	doc := &core.Document{
		Name:      payload["name"].GetStringValue(),
		ProjectID: payload["project_id"].GetStringValue(),
		Code:      payload["code"].GetStringValue(),
		Language:  payload["language"].GetStringValue(),
	}
	if t, err := time.Parse(time.RFC3339Nano, payload["inserted_at"].GetStringValue()); err == nil {
		doc.InsertedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, payload["updated_at"].GetStringValue()); err == nil {
		doc.UpdatedAt = t
	}
	return doc
}
